package services

import (
	"flat-ranker/models"
	"flat-ranker/utils"
)

// CriteriaFilter keeps listings that satisfy every threshold.
type CriteriaFilter struct {
	criteria models.Criteria
	logger   *utils.Logger
}

// NewCriteriaFilter creates a CriteriaFilter.
func NewCriteriaFilter(criteria models.Criteria, logger *utils.Logger) *CriteriaFilter {
	return &CriteriaFilter{criteria: criteria, logger: logger}
}

// Matches reports whether l passes. A listing without distance or duration
// never passes.
func (f *CriteriaFilter) Matches(l *models.Listing) bool {
	if l.Distance == nil || l.Duration == nil {
		return false
	}
	return *l.Distance <= f.criteria.MaxDistanceKM &&
		*l.Duration < f.criteria.MaxDurationMin &&
		l.Area >= f.criteria.MinArea &&
		l.EffectivePrice <= f.criteria.MaxPrice
}

// Apply returns the matching listings in their original order.
func (f *CriteriaFilter) Apply(listings []*models.Listing) []*models.Listing {
	result := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if f.Matches(l) {
			result = append(result, l)
		}
	}

	f.logger.Info("[filter] %d of %d listings meet the criteria (≤%.1f km, <%.0f min, ≥%.0f m2, ≤%.0f zł)",
		len(result), len(listings), f.criteria.MaxDistanceKM, f.criteria.MaxDurationMin,
		f.criteria.MinArea, f.criteria.MaxPrice)
	return result
}
