package services

import (
	"math"
	"sort"

	"flat-ranker/models"
	"flat-ranker/utils"
)

// RankAggregator orders listings by the sum of their per-criterion ranks.
type RankAggregator struct {
	logger *utils.Logger
}

// NewRankAggregator creates a RankAggregator.
func NewRankAggregator(logger *utils.Logger) *RankAggregator {
	return &RankAggregator{logger: logger}
}

// RankMax assigns 1-based ranks with the "max" tie method: tied values all
// get the last position their group occupies. descending ranks the largest
// value first.
func RankMax(values []float64, descending bool) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if descending {
			return values[order[a]] > values[order[b]]
		}
		return values[order[a]] < values[order[b]]
	})

	ranks := make([]int, len(values))
	for start := 0; start < len(order); {
		end := start
		for end+1 < len(order) && values[order[end+1]] == values[order[start]] {
			end++
		}
		for k := start; k <= end; k++ {
			ranks[order[k]] = end + 1
		}
		start = end + 1
	}
	return ranks
}

// Rank sets the rank fields on every listing and returns them sorted by
// ascending aggregate rank. Ties keep their input order. A missing distance
// or duration ranks last.
func (r *RankAggregator) Rank(listings []*models.Listing) []*models.Listing {
	n := len(listings)
	area := make([]float64, n)
	price := make([]float64, n)
	distance := make([]float64, n)
	duration := make([]float64, n)
	for i, l := range listings {
		area[i] = l.Area
		price[i] = l.Price
		distance[i] = valueOrInf(l.Distance)
		duration[i] = valueOrInf(l.Duration)
	}

	areaRanks := RankMax(area, true)
	priceRanks := RankMax(price, false)
	distanceRanks := RankMax(distance, false)
	durationRanks := RankMax(duration, false)

	for i, l := range listings {
		l.AreaRank = areaRanks[i]
		l.PriceRank = priceRanks[i]
		l.DistanceRank = distanceRanks[i]
		l.DurationRank = durationRanks[i]
		l.AggregateRank = float64(l.AreaRank + l.PriceRank + l.DistanceRank + l.DurationRank)
	}

	ranked := make([]*models.Listing, n)
	copy(ranked, listings)
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].AggregateRank < ranked[b].AggregateRank
	})

	if n > 0 {
		r.logger.Debug("[rank] Best listing %s with aggregate rank %.0f", ranked[0].URL, ranked[0].AggregateRank)
	}
	return ranked
}

func valueOrInf(v *float64) float64 {
	if v == nil {
		return math.Inf(1)
	}
	return *v
}
