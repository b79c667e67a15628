package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"flat-ranker/models"
	"flat-ranker/utils"
)

const askToken = "zapytaj"

var (
	// numberRegexp matches a cleaned decimal number, nothing else
	numberRegexp = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)
	// digitsRegexp captures the first run of digits, e.g. "3" in "3 pokoje"
	digitsRegexp = regexp.MustCompile(`\d+`)
)

// typedFields are the raw fields converted into Listing columns; every
// other scraped field is carried through as an attribute.
var typedFields = map[string]struct{}{
	models.FieldPrice:        {},
	models.FieldRooms:        {},
	models.FieldArea:         {},
	models.FieldLocalization: {},
	models.FieldDeposit:      {},
	models.FieldRentExtra:    {},
}

// Normalizer turns scraped field bags into typed Listings.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize drops exact duplicate rows and converts the rest. It stops at
// the first row with an unparseable required field and returns a
// *ParseError or *SchemaError naming that row.
func (n *Normalizer) Normalize(raw []*models.RawListing) ([]*models.Listing, error) {
	unique := DropDuplicates(raw)
	if dropped := len(raw) - len(unique); dropped > 0 {
		n.logger.Debug("[normalizer] Dropped %d duplicate rows", dropped)
	}

	result := make([]*models.Listing, 0, len(unique))
	for i, r := range unique {
		l, err := NormalizeListing(r)
		if err != nil {
			return nil, withRow(err, i, r.URL)
		}
		result = append(result, l)
	}

	n.logger.Info("[normalizer] Normalized %d → %d listings", len(raw), len(result))
	return result, nil
}

// DropDuplicates keeps the first occurrence of every distinct row. Rows are
// equal when their URL and every field value match.
func DropDuplicates(raw []*models.RawListing) []*models.RawListing {
	seen := make(map[string]struct{}, len(raw))
	result := make([]*models.RawListing, 0, len(raw))
	for _, r := range raw {
		key := r.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, r)
	}
	return result
}

// NormalizeListing converts one field bag. Errors carry no row position.
func NormalizeListing(r *models.RawListing) (*models.Listing, error) {
	rawPrice, _ := r.Get(models.FieldPrice)
	price, err := ParsePrice(rawPrice)
	if err != nil {
		return nil, err
	}

	rawDeposit, ok := r.Get(models.FieldDeposit)
	deposit, err := ParseDeposit(rawDeposit, ok)
	if err != nil {
		return nil, err
	}

	rawRent, ok := r.Get(models.FieldRentExtra)
	rent, err := ParseRentExtra(rawRent, ok)
	if err != nil {
		return nil, err
	}

	rawRooms, _ := r.Get(models.FieldRooms)
	rooms, err := ParseRooms(rawRooms)
	if err != nil {
		return nil, err
	}

	rawArea, _ := r.Get(models.FieldArea)
	area, err := ParseArea(rawArea)
	if err != nil {
		return nil, err
	}

	rawLocality, _ := r.Get(models.FieldLocalization)
	locality, err := SplitLocality(rawLocality)
	if err != nil {
		return nil, err
	}

	attrs := make(map[string]string)
	for k, v := range r.Fields {
		if _, typed := typedFields[k]; !typed {
			attrs[k] = strings.TrimSpace(v)
		}
	}

	return &models.Listing{
		URL:              r.URL,
		LocalizationInfo: rawLocality,
		Locality:         locality,
		Price:            price,
		Deposit:          deposit,
		RentExtra:        rent,
		Rooms:            rooms,
		Area:             area,
		EffectivePrice:   EffectivePrice(price, rent),
		Attributes:       attrs,
		ScrapedAt:        r.ScrapedAt,
	}, nil
}

// EffectivePrice adds the extra monthly charges to the rent when they are
// known. An unknown (-1) charge adds nothing.
func EffectivePrice(price, rentExtra float64) float64 {
	if rentExtra > 0 {
		return price + rentExtra
	}
	return price
}

// ParsePrice parses a monthly rent such as "2 500 zł/mc" or "2500,50 zł".
func ParsePrice(raw string) (float64, error) {
	v, err := parseAmount(raw, "zł/mc", "zł")
	if err != nil {
		return 0, &ParseError{Row: -1, Field: models.FieldPrice, Value: raw, Err: err}
	}
	if v < 0 {
		return 0, &ParseError{Row: -1, Field: models.FieldPrice, Value: raw, Err: errNegative}
	}
	return v, nil
}

// ParseDeposit parses the "Kaucja" field. "zapytaj" yields models.Unknown
// and a field that was never scraped counts as no deposit.
func ParseDeposit(raw string, present bool) (float64, error) {
	if !present || strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return parseOptionalAmount(models.FieldDeposit, raw, "zł")
}

// ParseRentExtra parses the "Czynsz" field. "zapytaj" yields models.Unknown;
// unlike the deposit a missing value is an error, never a silent zero.
func ParseRentExtra(raw string, present bool) (float64, error) {
	if !present || strings.TrimSpace(raw) == "" {
		return 0, &ParseError{Row: -1, Field: models.FieldRentExtra, Value: raw, Err: errMissing}
	}
	return parseOptionalAmount(models.FieldRentExtra, raw, "zł/miesiąc", "zł")
}

// ParseRooms extracts the first run of digits, e.g. 3 from "3 pokoje".
func ParseRooms(raw string) (int, error) {
	match := digitsRegexp.FindString(normalizeText(raw))
	if match == "" {
		return 0, &ParseError{Row: -1, Field: models.FieldRooms, Value: raw, Err: errNoDigits}
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, &ParseError{Row: -1, Field: models.FieldRooms, Value: raw, Err: err}
	}
	return n, nil
}

// ParseArea parses a floor area such as "48,5 m²".
func ParseArea(raw string) (float64, error) {
	v, err := parseAmount(raw, "m2")
	if err != nil {
		return 0, &ParseError{Row: -1, Field: models.FieldArea, Value: raw, Err: err}
	}
	if v < 0 {
		return 0, &ParseError{Row: -1, Field: models.FieldArea, Value: raw, Err: errNegative}
	}
	return v, nil
}

// SplitLocality splits "city, district, [subdistrict,] street".
func SplitLocality(raw string) (models.Locality, error) {
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch len(parts) {
	case 4:
		l2 := parts[2]
		street := parts[3]
		if street == "" {
			street = l2
		}
		return models.Locality{City: parts[0], DistrictL1: parts[1], DistrictL2: &l2, Street: street}, nil
	case 3:
		return models.Locality{City: parts[0], DistrictL1: parts[1], Street: parts[2]}, nil
	}
	return models.Locality{}, &SchemaError{Row: -1, Value: raw, Segments: len(parts)}
}

func parseOptionalAmount(field, raw string, suffixes ...string) (float64, error) {
	if strings.Contains(strings.ToLower(raw), askToken) {
		return models.Unknown, nil
	}
	v, err := parseAmount(raw, suffixes...)
	if err != nil {
		return 0, &ParseError{Row: -1, Field: field, Value: raw, Err: err}
	}
	return v, nil
}

// parseAmount strips the unit suffixes and every whitespace separator, reads
// a comma as the decimal point and parses what is left.
func parseAmount(raw string, suffixes ...string) (float64, error) {
	s := strings.ToLower(normalizeText(raw))
	for _, suffix := range suffixes {
		s = strings.ReplaceAll(s, normalizeText(suffix), "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.ReplaceAll(s, ",", ".")

	if !numberRegexp.MatchString(s) {
		return 0, errNoNumber
	}
	return strconv.ParseFloat(s, 64)
}

// normalizeText applies compatibility decomposition, which turns the
// non-breaking spaces and "²" the site renders into plain characters.
func normalizeText(s string) string {
	return norm.NFKD.String(s)
}
