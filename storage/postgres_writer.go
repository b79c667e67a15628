package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/mmcloughlin/geohash"

	"flat-ranker/models"
	"flat-ranker/utils"
)

// geohashPrecision of the stored cell, about 5 m across.
const geohashPrecision = 9

// listingColumns in insert order. Each listing row binds one value per column.
var listingColumns = []string{
	"run_id", "url", "localization_info", "city", "district_l1", "district_l2", "street",
	"price", "deposit", "rent_extra", "rooms", "area", "effective_price",
	"lat", "lon", "distance_km", "duration_min", "geohash",
	"area_rank", "price_rank", "distance_rank", "duration_rank", "aggregate_rank",
	"attributes",
}

// PostgresWriter persists ranked listings to PostgreSQL. Every row is
// tagged with the run that produced it, so earlier runs stay queryable.
type PostgresWriter struct {
	db    *sql.DB
	runID uuid.UUID
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it to accept
// connections, runs schema migrations and returns a writer bound to runID.
func NewPostgresWriter(ctx context.Context, dsn string, runID uuid.UUID, retry utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres ping", func() error {
		return db.PingContext(ctx)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db, runID: runID}
	if err := pw.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS apartments (
			id                SERIAL PRIMARY KEY,
			run_id            UUID          NOT NULL,
			url               TEXT          NOT NULL,
			localization_info TEXT          NOT NULL DEFAULT '',
			city              TEXT          NOT NULL DEFAULT '',
			district_l1       TEXT          NOT NULL DEFAULT '',
			district_l2       TEXT,
			street            TEXT          NOT NULL DEFAULT '',
			price             NUMERIC(10,2) NOT NULL,
			deposit           NUMERIC(10,2) NOT NULL,
			rent_extra        NUMERIC(10,2) NOT NULL,
			rooms             INTEGER       NOT NULL,
			area              NUMERIC(8,2)  NOT NULL,
			effective_price   NUMERIC(10,2) NOT NULL,
			lat               DOUBLE PRECISION,
			lon               DOUBLE PRECISION,
			distance_km       DOUBLE PRECISION,
			duration_min      DOUBLE PRECISION,
			geohash           VARCHAR(12),
			area_rank         INTEGER       NOT NULL,
			price_rank        INTEGER       NOT NULL,
			distance_rank     INTEGER       NOT NULL,
			duration_rank     INTEGER       NOT NULL,
			aggregate_rank    NUMERIC(8,2)  NOT NULL,
			attributes        JSONB         NOT NULL DEFAULT '{}',
			created_at        TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			UNIQUE (run_id, url)
		);

		CREATE INDEX IF NOT EXISTS idx_apartments_run     ON apartments(run_id);
		CREATE INDEX IF NOT EXISTS idx_apartments_rank    ON apartments(run_id, aggregate_rank);
		CREATE INDEX IF NOT EXISTS idx_apartments_geohash ON apartments(geohash);
	`)
	return err
}

// Write batch-inserts the ranked listings of this run. A URL already
// stored for the run is skipped.
func (pw *PostgresWriter) Write(listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := pw.insertBatch(listings[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// insertQuery builds a multi-row INSERT for n listings.
func insertQuery(n int) string {
	cols := len(listingColumns)
	valueStrings := make([]string, 0, n)
	for idx := 0; idx < n; idx++ {
		ph := make([]string, cols)
		for c := range ph {
			ph[c] = fmt.Sprintf("$%d", idx*cols+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
	}

	return fmt.Sprintf(`
		INSERT INTO apartments (%s)
		VALUES %s
		ON CONFLICT (run_id, url) DO NOTHING
	`, strings.Join(listingColumns, ", "), strings.Join(valueStrings, ","))
}

func (pw *PostgresWriter) insertBatch(batch []*models.Listing) error {
	valueArgs := make([]interface{}, 0, len(batch)*len(listingColumns))

	for _, l := range batch {
		attrs, err := json.Marshal(l.Attributes)
		if err != nil {
			return fmt.Errorf("postgres: encode attributes of %s: %w", l.URL, err)
		}
		if l.Attributes == nil {
			attrs = []byte("{}")
		}

		var cell sql.NullString
		if l.HasGeo() {
			cell = sql.NullString{String: geohash.EncodeWithPrecision(*l.Lat, *l.Lon, geohashPrecision), Valid: true}
		}

		valueArgs = append(valueArgs,
			pw.runID, l.URL, l.LocalizationInfo, l.City, l.DistrictL1, nullString(l.DistrictL2), l.Street,
			l.Price, l.Deposit, l.RentExtra, l.Rooms, l.Area, l.EffectivePrice,
			nullFloat(l.Lat), nullFloat(l.Lon), nullFloat(l.Distance), nullFloat(l.Duration), cell,
			l.AreaRank, l.PriceRank, l.DistanceRank, l.DurationRank, l.AggregateRank,
			string(attrs),
		)
	}

	_, err := pw.db.Exec(insertQuery(len(batch)), valueArgs...)
	if err != nil {
		return fmt.Errorf("postgres: insert batch: %w", err)
	}
	return nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchRun retrieves the listings stored for this run, best ranked first.
func (pw *PostgresWriter) FetchRun(ctx context.Context) ([]*models.Listing, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT url, localization_info, city, district_l1, district_l2, street,
		       price, deposit, rent_extra, rooms, area, effective_price,
		       lat, lon, distance_km, duration_min,
		       area_rank, price_rank, distance_rank, duration_rank, aggregate_rank,
		       attributes, created_at
		FROM apartments
		WHERE run_id = $1
		ORDER BY aggregate_rank, id
	`, pw.runID)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch run %s: %w", pw.runID, err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		var (
			district2           sql.NullString
			lat, lon, dist, dur sql.NullFloat64
			attrs               []byte
		)
		if err := rows.Scan(
			&l.URL, &l.LocalizationInfo, &l.City, &l.DistrictL1, &district2, &l.Street,
			&l.Price, &l.Deposit, &l.RentExtra, &l.Rooms, &l.Area, &l.EffectivePrice,
			&lat, &lon, &dist, &dur,
			&l.AreaRank, &l.PriceRank, &l.DistanceRank, &l.DurationRank, &l.AggregateRank,
			&attrs, &l.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}

		if district2.Valid {
			l.DistrictL2 = &district2.String
		}
		l.Lat, l.Lon, l.Distance, l.Duration = floatPtr(lat), floatPtr(lon), floatPtr(dist), floatPtr(dur)
		if err := json.Unmarshal(attrs, &l.Attributes); err != nil {
			return nil, fmt.Errorf("postgres: decode attributes of %s: %w", l.URL, err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
