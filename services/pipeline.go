package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"flat-ranker/models"
	"flat-ranker/utils"
)

// Stats counts the listings left after each stage.
type Stats struct {
	Raw        int
	Normalized int
	Genuine    int
	Geocoded   int
	Matching   int
}

// Result is the outcome of one pipeline run. Listings is ordered best first.
type Result struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	Listings   []*models.Listing
	GeoResults []models.GeoResult
	Stats      Stats
}

// Empty reports that no listing survived filtering. It is a normal outcome,
// not an error.
func (r *Result) Empty() bool {
	return len(r.Listings) == 0
}

// Pipeline runs the fixed stage sequence: normalize, drop fakes, enrich,
// filter, rank.
type Pipeline struct {
	normalizer *Normalizer
	fakes      *FakeFilter
	enricher   *GeoEnricher
	filter     *CriteriaFilter
	ranker     *RankAggregator
	logger     *utils.Logger
}

// NewPipeline wires the stages.
func NewPipeline(
	criteria models.Criteria,
	floor models.FloorModel,
	enricher *GeoEnricher,
	logger *utils.Logger,
) *Pipeline {
	return &Pipeline{
		normalizer: NewNormalizer(logger),
		fakes:      NewFakeFilter(floor, logger),
		enricher:   enricher,
		filter:     NewCriteriaFilter(criteria, logger),
		ranker:     NewRankAggregator(logger),
		logger:     logger,
	}
}

// Run processes raw listings. Only normalization can fail; lookup failures
// drop the affected listings at the filter stage.
func (p *Pipeline) Run(ctx context.Context, raw []*models.RawListing) (*Result, error) {
	result := &Result{RunID: uuid.New(), StartedAt: time.Now()}
	result.Stats.Raw = len(raw)
	p.logger.Info("[pipeline] Run %s started with %d raw listings", result.RunID, len(raw))

	listings, err := p.normalizer.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	result.Stats.Normalized = len(listings)

	listings = p.fakes.DropFakes(listings)
	result.Stats.Genuine = len(listings)

	result.GeoResults = p.enricher.Enrich(ctx, listings)
	for _, l := range listings {
		if l.HasGeo() {
			result.Stats.Geocoded++
		}
	}

	listings = p.filter.Apply(listings)
	result.Stats.Matching = len(listings)

	result.Listings = p.ranker.Rank(listings)

	if result.Empty() {
		p.logger.Warn("[pipeline] Run %s: no listings meet the criteria", result.RunID)
	} else {
		p.logger.Info("[pipeline] Run %s finished: %d ranked listings in %v",
			result.RunID, len(result.Listings), time.Since(result.StartedAt).Round(time.Millisecond))
	}
	return result, nil
}
