package services

import (
	"errors"
	"testing"

	"flat-ranker/models"
	"flat-ranker/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLogger() }

func rawListing(url string, fields map[string]string) *models.RawListing {
	return &models.RawListing{URL: url, Fields: fields}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"2500 zł/mc", 2500},
		{"2000zł/mc", 2000},
		{"2 500 zł/mc", 2500},
		{"3 199,50 zł/mc", 3199.5},
		{"4100 zł", 4100},
		{"0 zł/mc", 0},
	}

	for _, tt := range tests {
		got, err := ParsePrice(tt.raw)
		if err != nil {
			t.Errorf("ParsePrice(%q): unexpected error %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePrice(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestParsePriceErrors(t *testing.T) {
	for _, raw := range []string{"", "Zapytaj o cenę", "zł/mc", "-200 zł/mc", "inf"} {
		_, err := ParsePrice(raw)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("ParsePrice(%q): expected *ParseError, got %v", raw, err)
			continue
		}
		if pe.Field != models.FieldPrice {
			t.Errorf("ParsePrice(%q): field = %q", raw, pe.Field)
		}
	}
}

func TestParseDeposit(t *testing.T) {
	tests := []struct {
		raw     string
		present bool
		want    float64
	}{
		{"3 000 zł", true, 3000},
		{"zapytaj", true, models.Unknown},
		{"Zapytaj", true, models.Unknown},
		{"", false, 0},
		{"  ", true, 0},
		{"1500,5 zł", true, 1500.5},
	}

	for _, tt := range tests {
		got, err := ParseDeposit(tt.raw, tt.present)
		if err != nil {
			t.Errorf("ParseDeposit(%q): unexpected error %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDeposit(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}

	if _, err := ParseDeposit("brak", true); err == nil {
		t.Error("ParseDeposit(\"brak\"): expected error")
	}
}

func TestParseRentExtra(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"500 zł/miesiąc", 500},
		{"1 200 zł/miesiąc", 1200},
		{"zapytaj", models.Unknown},
		{"350,5 zł", 350.5},
	}

	for _, tt := range tests {
		got, err := ParseRentExtra(tt.raw, true)
		if err != nil {
			t.Errorf("ParseRentExtra(%q): unexpected error %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRentExtra(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestParseRentExtraMissingIsError(t *testing.T) {
	for _, present := range []bool{false, true} {
		_, err := ParseRentExtra("", present)
		if !errors.Is(err, errMissing) {
			t.Errorf("present=%v: expected errMissing, got %v", present, err)
		}
	}
}

func TestParseRooms(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"2 pokoje", 2},
		{"1 pokój", 1},
		{"pokoje: 3", 3},
		{"10 pokoi", 10},
	}

	for _, tt := range tests {
		got, err := ParseRooms(tt.raw)
		if err != nil {
			t.Errorf("ParseRooms(%q): unexpected error %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRooms(%q) = %d; want %d", tt.raw, got, tt.want)
		}
	}

	if _, err := ParseRooms("kawalerka"); !errors.Is(err, errNoDigits) {
		t.Errorf("ParseRooms(\"kawalerka\"): expected errNoDigits, got %v", err)
	}
}

func TestParseArea(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"60m2", 60},
		{"60 m²", 60},
		{"48,5 m²", 48.5},
		{" 120 m2 ", 120},
	}

	for _, tt := range tests {
		got, err := ParseArea(tt.raw)
		if err != nil {
			t.Errorf("ParseArea(%q): unexpected error %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseArea(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}

	if _, err := ParseArea("m2"); err == nil {
		t.Error("ParseArea(\"m2\"): expected error")
	}
}

func TestSplitLocalityFourSegments(t *testing.T) {
	loc, err := SplitLocality("Warszawa, Mokotów, Górny, Puławska")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.City != "Warszawa" || loc.DistrictL1 != "Mokotów" || loc.Street != "Puławska" {
		t.Errorf("got %+v", loc)
	}
	if loc.DistrictL2 == nil || *loc.DistrictL2 != "Górny" {
		t.Errorf("DistrictL2: got %v, want Górny", loc.DistrictL2)
	}
}

func TestSplitLocalityBlankStreetDefaultsToDistrict(t *testing.T) {
	loc, err := SplitLocality("Warszawa, Mokotów, Górny, ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Street != "Górny" {
		t.Errorf("Street: got %q, want Górny", loc.Street)
	}
}

func TestSplitLocalityThreeSegments(t *testing.T) {
	loc, err := SplitLocality("Warszawa, Mokotów, Puławska")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Street != "Puławska" || loc.DistrictL1 != "Mokotów" {
		t.Errorf("got %+v", loc)
	}
	if loc.DistrictL2 != nil {
		t.Errorf("DistrictL2: got %q, want nil", *loc.DistrictL2)
	}
}

func TestSplitLocalityUnsupported(t *testing.T) {
	for _, raw := range []string{"Warszawa, Mokotów", "a, b, c, d, e", ""} {
		_, err := SplitLocality(raw)
		var se *SchemaError
		if !errors.As(err, &se) {
			t.Errorf("SplitLocality(%q): expected *SchemaError, got %v", raw, err)
		}
	}
}

func TestEffectivePrice(t *testing.T) {
	if got := EffectivePrice(3000, 500); got != 3500 {
		t.Errorf("known rent: got %.0f, want 3500", got)
	}
	if got := EffectivePrice(3000, models.Unknown); got != 3000 {
		t.Errorf("unknown rent must not be added: got %.0f, want 3000", got)
	}
	if got := EffectivePrice(3000, 0); got != 3000 {
		t.Errorf("zero rent: got %.0f, want 3000", got)
	}
}

func validFields() map[string]string {
	return map[string]string{
		models.FieldPrice:        "3000 zł/mc",
		models.FieldRooms:        "2 pokoje",
		models.FieldArea:         "55 m²",
		models.FieldLocalization: "Warszawa, Mokotów, Puławska",
		models.FieldDeposit:      "zapytaj",
		models.FieldRentExtra:    "600 zł/miesiąc",
		models.FieldFloor:        "3/5",
	}
}

func TestNormalizeConvertsRow(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	out, err := n.Normalize([]*models.RawListing{rawListing("https://www.otodom.pl/pl/oferta/1", validFields())})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(out))
	}
	l := out[0]
	if l.Price != 3000 || l.RentExtra != 600 || l.EffectivePrice != 3600 {
		t.Errorf("prices: got price=%.0f rent=%.0f effective=%.0f", l.Price, l.RentExtra, l.EffectivePrice)
	}
	if l.Deposit != models.Unknown {
		t.Errorf("Deposit: got %.0f, want -1", l.Deposit)
	}
	if l.Rooms != 2 || l.Area != 55 {
		t.Errorf("rooms/area: got %d/%.1f", l.Rooms, l.Area)
	}
	if l.Attributes[models.FieldFloor] != "3/5" {
		t.Errorf("floor attribute: got %q", l.Attributes[models.FieldFloor])
	}
	if _, leaked := l.Attributes[models.FieldPrice]; leaked {
		t.Error("typed field should not be kept as attribute")
	}
	if l.Lat != nil || l.Distance != nil {
		t.Error("geo fields must be nil before enrichment")
	}
}

func TestNormalizeDropsExactDuplicatesOnly(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	changed := validFields()
	changed[models.FieldPrice] = "3100 zł/mc"

	raw := []*models.RawListing{
		rawListing("https://www.otodom.pl/pl/oferta/1", validFields()),
		rawListing("https://www.otodom.pl/pl/oferta/1", validFields()),
		rawListing("https://www.otodom.pl/pl/oferta/1", changed),
	}

	out, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("expected 2 listings (same URL, different price survives), got %d", len(out))
	}
}

func TestNormalizeFailsFastWithRow(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	bad := validFields()
	bad[models.FieldArea] = "brak danych"

	raw := []*models.RawListing{
		rawListing("https://www.otodom.pl/pl/oferta/1", validFields()),
		rawListing("https://www.otodom.pl/pl/oferta/2", bad),
	}

	_, err := n.Normalize(raw)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Row != 1 || pe.URL != "https://www.otodom.pl/pl/oferta/2" || pe.Field != models.FieldArea {
		t.Errorf("error should identify row 1 area field, got %+v", pe)
	}
}

func TestNormalizeSchemaError(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	bad := validFields()
	bad[models.FieldLocalization] = "Warszawa"

	_, err := n.Normalize([]*models.RawListing{rawListing("https://www.otodom.pl/pl/oferta/9", bad)})
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if se.Row != 0 || se.Segments != 1 {
		t.Errorf("got %+v", se)
	}
}
