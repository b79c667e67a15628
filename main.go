package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flat-ranker/config"
	"flat-ranker/geo"
	"flat-ranker/models"
	"flat-ranker/scraper/otodom"
	"flat-ranker/services"
	"flat-ranker/storage"
	"flat-ranker/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	logger := utils.NewLoggerWithLevel(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		var pe *services.ParseError
		if errors.As(err, &pe) {
			logger.Error("Malformed input at row %d (%s): %v", pe.Row, pe.URL, err)
		} else {
			logger.Error("Run failed: %v", err)
		}
		os.Exit(1)
	}
}

// applyFlags lets a single invocation override the configured criteria.
func applyFlags(cfg *config.Config) {
	c := &cfg.Criteria
	flag.Float64Var(&c.MaxPrice, "max-price", c.MaxPrice, "maximum monthly price including extra charges (zł)")
	flag.Float64Var(&c.MinArea, "min-area", c.MinArea, "minimum area (m2)")
	flag.Float64Var(&c.MaxDistanceKM, "max-distance", c.MaxDistanceKM, "maximum route distance to the centre (km)")
	flag.Float64Var(&c.MaxDurationMin, "max-duration", c.MaxDurationMin, "route duration to the centre must be below this (min)")
	flag.IntVar(&c.TopNSummary, "top", c.TopNSummary, "number of listings in the summary")
	flag.Parse()
}

func run(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	runAt := time.Now()

	logger.Info("=== Flat ranking run starting ===")
	logger.Info("Criteria: price <= %.0f zł | area >= %.0f m2 | distance <= %.1f km | duration < %.0f min",
		cfg.Criteria.MaxPrice, cfg.Criteria.MinArea, cfg.Criteria.MaxDistanceKM, cfg.Criteria.MaxDurationMin)

	rawListings, err := otodom.New(cfg, logger).Scrape(ctx)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}
	if len(rawListings) == 0 {
		logger.Warn("No listings were scraped, nothing to rank")
		return nil
	}

	rawPath := storage.RawCSVPath(cfg.RawDataDir, runAt)
	if err := writeRaw(rawPath, rawListings); err != nil {
		logger.Error("Raw CSV write failed: %v", err)
	} else {
		logger.Info("Raw listings saved to %s", rawPath)
	}

	router := geo.NewCachedRouter(geo.NewOSRM(cfg.RouterURL, cfg.GeoTimeout))
	enricher := services.NewGeoEnricher(
		geo.NewNominatim(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeoTimeout),
		router,
		services.GeoEnricherConfig{
			Center:      cfg.Center,
			Concurrency: cfg.GeoConcurrency,
			RateLimitMs: cfg.GeoRateLimitMs,
			Timeout:     cfg.GeoTimeout,
		},
		logger,
	)

	pipeline := services.NewPipeline(cfg.Criteria, cfg.Floor, enricher, logger)
	result, err := pipeline.Run(ctx, rawListings)
	if err != nil {
		return err
	}
	logger.Debug("Route cache hits: %d", router.Hits())

	processedPath := storage.ProcessedCSVPath(cfg.ProcessedDataDir, runAt)
	if err := writeProcessed(processedPath, result.Listings); err != nil {
		logger.Error("Processed CSV write failed: %v", err)
	} else {
		logger.Info("Ranked listings saved to %s", processedPath)
	}

	listings := result.Listings
	if cfg.PostgresEnabled && !result.Empty() {
		listings = persist(ctx, cfg, result, logger)
	}

	formatter := services.NewSummaryFormatter(cfg.Criteria.TopNSummary, logger)
	if result.Empty() {
		logger.Warn("No listings meet the criteria, no summary written")
	} else {
		summaryPath, err := storage.WriteSummary(cfg.SummaryDir, runAt, formatter.Render(listings))
		if err != nil {
			logger.Error("Summary write failed: %v", err)
		} else {
			logger.Info("Summary saved to %s", summaryPath)
		}
	}

	formatter.Print(result)
	return nil
}

// persist stores the ranked listings and reads them back in rank order.
// On any database failure the in-memory listings are used instead.
func persist(ctx context.Context, cfg *config.Config, result *services.Result, logger *utils.Logger) []*models.Listing {
	pgWriter, err := storage.NewPostgresWriter(ctx, cfg.DSN(), result.RunID, utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		return result.Listings
	}
	defer pgWriter.Close()

	if err := pgWriter.Write(result.Listings); err != nil {
		logger.Error("PostgreSQL write failed: %v", err)
		return result.Listings
	}
	logger.Info("Ranked listings stored in PostgreSQL (table: apartments, run %s)", result.RunID)

	stored, err := pgWriter.FetchRun(ctx)
	if err != nil {
		logger.Error("Failed to fetch run %s back from PostgreSQL: %v", result.RunID, err)
		return result.Listings
	}
	return stored
}

func writeRaw(path string, raw []*models.RawListing) error {
	w, err := storage.NewRawCSVWriter(path)
	if err != nil {
		return err
	}
	return closeAfter(w, w.WriteRaw(raw))
}

func writeProcessed(path string, listings []*models.Listing) error {
	w, err := storage.NewProcessedCSVWriter(path)
	if err != nil {
		return err
	}
	return closeAfter(w, w.Write(listings))
}

// closeAfter closes w and reports the write error first.
func closeAfter(w interface{ Close() error }, writeErr error) error {
	closeErr := w.Close()
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}
