package geo

import (
	"context"
	"sync"

	"github.com/mmcloughlin/geohash"

	"flat-ranker/models"
)

// CellPrecision is the geohash length used for cache keys, a cell of
// roughly 5 m.
const CellPrecision = 9

// RouteSource is anything that can compute a route between two points.
type RouteSource interface {
	Route(ctx context.Context, from, to models.Coordinates) (*models.Route, error)
}

// Cell returns the geohash cell of a point.
func Cell(c models.Coordinates) string {
	return geohash.EncodeWithPrecision(c.Lat, c.Lon, CellPrecision)
}

// CachedRouter remembers successful routes by the geohash cells of both
// ends. Listings that geocode to the same street centroid share one call.
// Failures are not cached. Safe for concurrent use.
type CachedRouter struct {
	next RouteSource

	mu     sync.Mutex
	routes map[string]models.Route
	hits   int
}

// NewCachedRouter wraps next with a route cache.
func NewCachedRouter(next RouteSource) *CachedRouter {
	return &CachedRouter{next: next, routes: make(map[string]models.Route)}
}

func (c *CachedRouter) Route(ctx context.Context, from, to models.Coordinates) (*models.Route, error) {
	key := Cell(from) + ":" + Cell(to)

	c.mu.Lock()
	if r, ok := c.routes[key]; ok {
		c.hits++
		c.mu.Unlock()
		return &r, nil
	}
	c.mu.Unlock()

	r, err := c.next.Route(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNoRoute
	}

	c.mu.Lock()
	c.routes[key] = *r
	c.mu.Unlock()
	return r, nil
}

// Hits returns how many lookups were served from the cache.
func (c *CachedRouter) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}
