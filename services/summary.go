package services

import (
	"fmt"
	"math"
	"strings"

	"flat-ranker/models"
	"flat-ranker/utils"
)

// cityPrefix is dropped from locality labels; every listing is in the city.
const cityPrefix = "Warszawa, "

const unknownMarker = "???"

// SummaryFormatter renders the best listings as a markdown digest and
// prints run reports to the console.
type SummaryFormatter struct {
	topN   int
	logger *utils.Logger
}

// NewSummaryFormatter creates a SummaryFormatter for the first topN listings.
func NewSummaryFormatter(topN int, logger *utils.Logger) *SummaryFormatter {
	return &SummaryFormatter{topN: topN, logger: logger}
}

// Render returns the digest of the first topN listings. Listings without
// distance or duration are rendered with a placeholder.
func (s *SummaryFormatter) Render(listings []*models.Listing) string {
	if len(listings) > s.topN && s.topN > 0 {
		listings = listings[:s.topN]
	}
	s.logger.Debug("[summary] Rendering %d listings", len(listings))

	entries := make([]string, 0, len(listings))
	for i, l := range listings {
		entries = append(entries, renderEntry(i, l))
	}
	return strings.Join(entries, "\n")
}

func renderEntry(i int, l *models.Listing) string {
	distance, duration := unknownMarker, unknownMarker
	if l.Distance != nil && l.Duration != nil {
		distance = fmt.Sprintf("%.1f", *l.Distance)
		duration = fmt.Sprintf("%.0f", math.Round(*l.Duration))
	}

	rent := fmt.Sprintf("plus czynsz %s zł", unknownMarker)
	if l.RentKnown() {
		rent = fmt.Sprintf("w tym czynsz %szł", formatAmount(l.RentExtra))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- [%d] %s (%skm, %smin do centrum) [link](%s)\n",
		i, LocalityLabel(l), distance, duration, l.URL)
	fmt.Fprintf(&b, "    - %szł (%s) | %d pokoje\n", formatAmount(l.EffectivePrice), rent, l.Rooms)
	fmt.Fprintf(&b, "    - %d m2", int(l.Area))
	if floor := l.Attributes[models.FieldFloor]; floor != "" {
		fmt.Fprintf(&b, " | piętro %s", floor)
	}
	if building := l.Attributes[models.FieldBuildingType]; building != "" {
		fmt.Fprintf(&b, " %s", building)
	}
	b.WriteString("\n")
	return b.String()
}

// LocalityLabel is the raw locality without the city prefix.
func LocalityLabel(l *models.Listing) string {
	return strings.TrimPrefix(strings.TrimSpace(l.LocalizationInfo), cityPrefix)
}

func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// Print writes a coloured run report to stdout.
func (s *SummaryFormatter) Print(r *Result) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🏠 APARTMENT RANKING\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Pipeline\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Raw listings       : \033[1m%d\033[0m\n", r.Stats.Raw)
	fmt.Printf("  After normalizing  : \033[1m%d\033[0m\n", r.Stats.Normalized)
	fmt.Printf("  After fake filter  : \033[1m%d\033[0m\n", r.Stats.Genuine)
	fmt.Printf("  Geocoded           : \033[1m%d\033[0m\n", r.Stats.Geocoded)
	fmt.Printf("  Meeting criteria   : \033[1m%d\033[0m\n", r.Stats.Matching)
	fmt.Println()

	fmt.Printf("\033[1;33m  Top %d\033[0m\n", s.topN)
	fmt.Printf("  %s\n", thin)
	if r.Empty() {
		fmt.Printf("  No listings meet the criteria\n")
	} else {
		top := r.Listings
		if len(top) > s.topN && s.topN > 0 {
			top = top[:s.topN]
		}
		for i, l := range top {
			fmt.Printf("  \033[1m%2d.\033[0m %-34s \033[1;32m%7szł\033[0m %5.1f m2  rank %.0f\n",
				i+1, truncate(LocalityLabel(l), 34), formatAmount(l.EffectivePrice), l.Area, l.AggregateRank)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
