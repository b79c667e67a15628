package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"flat-ranker/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return records
}

func TestOutputPaths(t *testing.T) {
	at := time.Date(2022, 7, 2, 21, 16, 17, 0, time.UTC)

	if got := RawCSVPath("data/raw", at); got != filepath.Join("data/raw", "scrapped_raw_data_2022_07_02__21_16_17.csv") {
		t.Errorf("raw path: %s", got)
	}
	if got := ProcessedCSVPath("data/processed", at); got != filepath.Join("data/processed", "processed_data_2022_07_02__21_16_17.csv") {
		t.Errorf("processed path: %s", got)
	}
	if got := SummaryPath("summary", at); got != filepath.Join("summary", "message_2022_07_02.md") {
		t.Errorf("summary path: %s", got)
	}
}

func TestRawCSVWriterUnionOfFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "raw.csv")
	w, err := NewRawCSVWriter(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	err = w.WriteRaw([]*models.RawListing{
		{URL: "a", Fields: map[string]string{"price": "3000 zł/mc", "Czynsz": "500 zł"}, ScrapedAt: at},
		{URL: "b", Fields: map[string]string{"price": "4000 zł/mc", "Piętro": "2/4"}, ScrapedAt: at},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	records := readCSV(t, path)
	wantHeader := []string{"listing_url", "scraped_at", "Czynsz", "Piętro", "price"}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d records", len(records))
	}
	for i, h := range wantHeader {
		if records[0][i] != h {
			t.Errorf("header[%d]: got %q, want %q", i, records[0][i], h)
		}
	}
	// b has no Czynsz: empty cell
	if records[2][2] != "" || records[2][3] != "2/4" {
		t.Errorf("row b: %v", records[2])
	}
}

func TestProcessedCSVWriterNullableColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.csv")
	w, err := NewProcessedCSVWriter(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	dist, dur := 2.5, 6.0
	l2 := "Stary Mokotów"
	listings := []*models.Listing{
		{
			URL:            "a",
			Locality:       models.Locality{City: "Warszawa", DistrictL1: "Mokotów", DistrictL2: &l2, Street: "Puławska"},
			Price:          3000,
			RentExtra:      500,
			EffectivePrice: 3500,
			Distance:       &dist,
			Duration:       &dur,
			AggregateRank:  4,
			Attributes:     map[string]string{models.FieldFloor: "2/4"},
		},
		{URL: "b", Price: 2000, RentExtra: models.Unknown, EffectivePrice: 2000},
	}
	if err := w.Write(listings); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Close()

	records := readCSV(t, path)
	col := make(map[string]int)
	for i, h := range records[0] {
		col[h] = i
	}

	a, b := records[1], records[2]
	if a[col["district_l2"]] != "Stary Mokotów" || a[col["distance"]] != "2.5" || a[col["_price"]] != "3500" {
		t.Errorf("row a: %v", a)
	}
	if a[col[models.FieldFloor]] != "2/4" {
		t.Errorf("floor attribute: %q", a[col[models.FieldFloor]])
	}
	if b[col["distance"]] != "" || b[col["district_l2"]] != "" || b[col["Czynsz"]] != "-1" {
		t.Errorf("row b: %v", b)
	}
}

func TestWriteSummary(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "summary")
	day := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

	path, err := WriteSummary(dir, day, "- [0] Mokotów\n")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "- [0] Mokotów\n" {
		t.Errorf("content: %q", data)
	}
}
