package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"flat-ranker/models"
	"flat-ranker/utils"
)

// Geocoder resolves a free-text address. A nil result with a nil error
// means the service had no match.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
}

// Router computes a driving route between two points.
type Router interface {
	Route(ctx context.Context, from, to models.Coordinates) (*models.Route, error)
}

var errNoMatch = errors.New("no match")

// addressNoise is stripped from addresses before geocoding.
var addressNoise = strings.NewReplacer("ul. ", "", "os. ", "", "/", "")

// GeoEnricherConfig bounds the lookups made by a GeoEnricher.
type GeoEnricherConfig struct {
	Center      models.Coordinates
	Concurrency int
	RateLimitMs int
	Timeout     time.Duration
}

// GeoEnricher attaches coordinates and the route to the reference point to
// every listing. A failed lookup only affects its own listing.
type GeoEnricher struct {
	geocoder Geocoder
	router   Router
	cfg      GeoEnricherConfig
	logger   *utils.Logger
}

// NewGeoEnricher creates a GeoEnricher.
func NewGeoEnricher(geocoder Geocoder, router Router, cfg GeoEnricherConfig, logger *utils.Logger) *GeoEnricher {
	return &GeoEnricher{geocoder: geocoder, router: router, cfg: cfg, logger: logger}
}

// CleanAddress builds the geocoder query from city, district and street.
func CleanAddress(l *models.Listing) string {
	address := strings.Join([]string{l.City, l.DistrictL1, l.Street}, " ")
	return strings.TrimSpace(addressNoise.Replace(address))
}

// Enrich looks up every listing, applies the results in table order and
// returns them. It never fails as a whole.
func (e *GeoEnricher) Enrich(ctx context.Context, listings []*models.Listing) []models.GeoResult {
	e.logger.Info("[geo] Enriching %d listings (concurrency %d)", len(listings), e.cfg.Concurrency)

	results := make([]models.GeoResult, len(listings))
	pool := utils.NewWorkerPool(e.cfg.Concurrency, e.cfg.RateLimitMs)
	for i, l := range listings {
		i, l := i, l
		pool.Submit(func() {
			results[i] = e.Lookup(ctx, l)
		})
	}
	pool.Wait()

	var ok int
	for i, l := range listings {
		res := results[i]
		ApplyGeoResult(l, res)
		if res.Status == models.GeoOK {
			ok++
			continue
		}
		e.logger.Warn("[geo] %s (%s): %v", l.URL, res.Status, res.Err)
	}

	e.logger.Info("[geo] Enriched %d of %d listings", ok, len(listings))
	return results
}

// Lookup geocodes one listing and, when that succeeds, routes it to the
// reference point. The route is skipped when there are no coordinates.
func (e *GeoEnricher) Lookup(ctx context.Context, l *models.Listing) models.GeoResult {
	address := CleanAddress(l)
	res := models.GeoResult{Address: address}

	coords, err := e.geocode(ctx, address)
	if err != nil {
		res.Status = models.GeoLookupFailed
		res.Err = &LookupFailure{Stage: "geocode", Address: address, Err: err}
		return res
	}
	if coords == nil {
		res.Status = models.GeoNoMatch
		res.Err = &LookupFailure{Stage: "geocode", Address: address, Err: errNoMatch}
		return res
	}

	route, err := e.route(ctx, *coords)
	if err == nil && route == nil {
		err = errors.New("empty route")
	}
	if err != nil {
		res.Status = models.GeoRouteFailed
		res.Err = &LookupFailure{Stage: "route", Address: address, Err: err}
		return res
	}

	res.Status = models.GeoOK
	res.Coordinates = coords
	res.Route = route
	return res
}

func (e *GeoEnricher) geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.geocoder.Geocode(ctx, address)
}

func (e *GeoEnricher) route(ctx context.Context, from models.Coordinates) (*models.Route, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.router.Route(ctx, from, e.cfg.Center)
}

func (e *GeoEnricher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.Timeout)
}

// ApplyGeoResult sets the four geo fields together on success and clears
// them together otherwise.
func ApplyGeoResult(l *models.Listing, res models.GeoResult) {
	if res.Status != models.GeoOK || res.Coordinates == nil || res.Route == nil {
		l.Lat, l.Lon, l.Distance, l.Duration = nil, nil, nil, nil
		return
	}
	lat, lon := res.Coordinates.Lat, res.Coordinates.Lon
	distance, duration := res.Route.DistanceKM, res.Route.DurationMin
	l.Lat, l.Lon, l.Distance, l.Duration = &lat, &lon, &distance, &duration
}
