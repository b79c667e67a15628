package models

import (
	"sort"
	"strings"
	"time"
)

// Field names of the scraped field bag. Detail-page attributes keep the
// labels the site renders.
const (
	FieldPrice        = "price"
	FieldRooms        = "rooms"
	FieldArea         = "area"
	FieldLocalization = "localization_info"
	FieldDeposit      = "Kaucja"
	FieldRentExtra    = "Czynsz"
	FieldFloor        = "Piętro"
	FieldBuildingType = "Rodzaj zabudowy"
)

// Unknown marks a deposit or rent the lister withheld ("zapytaj").
const Unknown = -1.0

// RawListing holds unprocessed scraped data directly from the browser.
// Every value is the text as rendered on the page.
type RawListing struct {
	URL       string
	Fields    map[string]string
	ScrapedAt time.Time
}

// Get returns the raw value of a field and whether it was scraped at all.
func (r *RawListing) Get(field string) (string, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// Key is a canonical encoding of the URL and every field, used to detect
// exact duplicate rows. ScrapedAt is not part of the row.
func (r *RawListing) Key() string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(r.URL)
	for _, k := range keys {
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte(1)
		b.WriteString(r.Fields[k])
	}
	return b.String()
}

// Locality is the comma separated address hierarchy split into its parts.
// DistrictL2 is nil for three-segment localities.
type Locality struct {
	City       string
	DistrictL1 string
	DistrictL2 *string
	Street     string
}

// Listing is the typed record that flows through the pipeline stages.
// Lat, Lon, Distance and Duration are either all nil or all set.
type Listing struct {
	URL              string
	LocalizationInfo string
	Locality

	Price          float64
	Deposit        float64
	RentExtra      float64
	Rooms          int
	Area           float64
	EffectivePrice float64

	Lat      *float64
	Lon      *float64
	Distance *float64 // km
	Duration *float64 // minutes

	IsFake bool

	AreaRank      int
	PriceRank     int
	DistanceRank  int
	DurationRank  int
	AggregateRank float64

	// Attributes carries the detail-page fields that have no typed column.
	Attributes map[string]string
	ScrapedAt  time.Time
}

// HasGeo reports whether geocoding and routing both succeeded.
func (l *Listing) HasGeo() bool {
	return l.Lat != nil && l.Lon != nil && l.Distance != nil && l.Duration != nil
}

// RentKnown reports whether the lister disclosed the extra monthly charges.
func (l *Listing) RentKnown() bool {
	return l.RentExtra != Unknown
}

// Criteria are the thresholds a listing must satisfy to be ranked.
type Criteria struct {
	MaxPrice       float64 `yaml:"max_price"`
	MinArea        float64 `yaml:"min_area"`
	MaxDistanceKM  float64 `yaml:"max_distance_km"`
	MaxDurationMin float64 `yaml:"max_duration_min"`
	TopNSummary    int     `yaml:"top_n_summary"`
}

// DefaultCriteria returns the thresholds used when nothing overrides them.
func DefaultCriteria() Criteria {
	return Criteria{
		MaxPrice:       4200,
		MinArea:        50,
		MaxDistanceKM:  4,
		MaxDurationMin: 7,
		TopNSummary:    15,
	}
}

// FloorModel is the size-dependent price floor below which a listing is
// treated as fake: C0 - K*(1 - exp(R*area)).
type FloorModel struct {
	C0 float64 `yaml:"c0"`
	K  float64 `yaml:"k"`
	R  float64 `yaml:"r"`
}

// DefaultFloorModel returns the floor constants the pipeline ships with.
func DefaultFloorModel() FloorModel {
	return FloorModel{C0: 2300, K: 1.9, R: 0.095}
}
