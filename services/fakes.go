package services

import (
	"math"

	"flat-ranker/models"
	"flat-ranker/utils"
)

// FakeFilter removes listings priced below the size-dependent floor.
type FakeFilter struct {
	model  models.FloorModel
	logger *utils.Logger
}

// NewFakeFilter creates a FakeFilter using the given floor constants.
func NewFakeFilter(model models.FloorModel, logger *utils.Logger) *FakeFilter {
	return &FakeFilter{model: model, logger: logger}
}

// Floor returns the lowest plausible monthly price for an apartment of the
// given area.
func Floor(m models.FloorModel, area float64) float64 {
	return m.C0 - m.K*(1-math.Exp(m.R*area))
}

// IsFake compares the floor against the raw price, not the effective price.
func (f *FakeFilter) IsFake(l *models.Listing) bool {
	return Floor(f.model, l.Area) > l.Price
}

// DropFakes flags every listing and returns the ones that are not fake.
// Dropped listings are not kept anywhere.
func (f *FakeFilter) DropFakes(listings []*models.Listing) []*models.Listing {
	result := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		l.IsFake = f.IsFake(l)
		if l.IsFake {
			f.logger.Debug("[fakes] Dropping %s: %.0f zł for %.1f m2 is below floor %.0f",
				l.URL, l.Price, l.Area, Floor(f.model, l.Area))
			continue
		}
		result = append(result, l)
	}

	f.logger.Info("[fakes] Kept %d of %d listings (dropped %d)",
		len(result), len(listings), len(listings)-len(result))
	return result
}
