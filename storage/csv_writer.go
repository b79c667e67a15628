package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"flat-ranker/models"
)

// RunStamp formats the run time used in every output file name.
func RunStamp(t time.Time) string {
	return t.Format("2006_01_02__15_04_05")
}

// RawCSVPath is where the raw table of a run is written.
func RawCSVPath(dir string, runAt time.Time) string {
	return filepath.Join(dir, "scrapped_raw_data_"+RunStamp(runAt)+".csv")
}

// ProcessedCSVPath is where the ranked table of a run is written.
func ProcessedCSVPath(dir string, runAt time.Time) string {
	return filepath.Join(dir, "processed_data_"+RunStamp(runAt)+".csv")
}

// csvFile is a CSV file that is safe for concurrent use.
type csvFile struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// createCSV creates (or truncates) the file at path. Intermediate
// directories are created automatically.
func createCSV(path string) (*csvFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}
	return &csvFile{file: f, writer: csv.NewWriter(f)}, nil
}

func (c *csvFile) writeAll(header []string, rows [][]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, row := range rows {
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *csvFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}

// RawCSVWriter writes the scraped field bags as they came in. Columns are
// the union of every field name, sorted, after listing_url and scraped_at.
type RawCSVWriter struct {
	*csvFile
}

// NewRawCSVWriter creates the raw table file at path.
func NewRawCSVWriter(path string) (*RawCSVWriter, error) {
	f, err := createCSV(path)
	if err != nil {
		return nil, err
	}
	return &RawCSVWriter{csvFile: f}, nil
}

// WriteRaw writes a header and one row per raw listing.
func (w *RawCSVWriter) WriteRaw(listings []*models.RawListing) error {
	seen := make(map[string]struct{})
	var fields []string
	for _, l := range listings {
		for k := range l.Fields {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				fields = append(fields, k)
			}
		}
	}
	sort.Strings(fields)

	header := append([]string{"listing_url", "scraped_at"}, fields...)
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		row := make([]string, 0, len(header))
		row = append(row, l.URL, l.ScrapedAt.Format(time.RFC3339))
		for _, f := range fields {
			row = append(row, l.Fields[f])
		}
		rows = append(rows, row)
	}
	return w.writeAll(header, rows)
}

// processedHeader lists the ranked table columns in output order.
var processedHeader = []string{
	"listing_url", "price", "Kaucja", "Czynsz", "rooms", "area",
	"localization_info", "city", "district_l1", "district_l2", "street",
	"lat", "lon", "distance", "duration", "fake", "_price",
	"_area_rank", "_price_rank", "_distance_rank", "_duration_rank", "_rank",
	models.FieldFloor, models.FieldBuildingType,
}

// ProcessedCSVWriter writes the ranked table. Missing values are empty cells.
type ProcessedCSVWriter struct {
	*csvFile
}

// NewProcessedCSVWriter creates the processed table file at path.
func NewProcessedCSVWriter(path string) (*ProcessedCSVWriter, error) {
	f, err := createCSV(path)
	if err != nil {
		return nil, err
	}
	return &ProcessedCSVWriter{csvFile: f}, nil
}

// Write writes a header and one row per listing, in the given order.
func (w *ProcessedCSVWriter) Write(listings []*models.Listing) error {
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, []string{
			l.URL,
			formatFloat(l.Price),
			formatFloat(l.Deposit),
			formatFloat(l.RentExtra),
			strconv.Itoa(l.Rooms),
			formatFloat(l.Area),
			l.LocalizationInfo,
			l.City,
			l.DistrictL1,
			stringOrEmpty(l.DistrictL2),
			l.Street,
			floatOrEmpty(l.Lat),
			floatOrEmpty(l.Lon),
			floatOrEmpty(l.Distance),
			floatOrEmpty(l.Duration),
			strconv.FormatBool(l.IsFake),
			formatFloat(l.EffectivePrice),
			strconv.Itoa(l.AreaRank),
			strconv.Itoa(l.PriceRank),
			strconv.Itoa(l.DistanceRank),
			strconv.Itoa(l.DurationRank),
			formatFloat(l.AggregateRank),
			l.Attributes[models.FieldFloor],
			l.Attributes[models.FieldBuildingType],
		})
	}
	return w.writeAll(processedHeader, rows)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func floatOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
