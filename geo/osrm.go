package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"flat-ranker/models"
)

// ErrNoRoute is returned when the routing service finds no route.
var ErrNoRoute = errors.New("no route found")

// OSRM computes driving routes through an OSRM /route/v1/<profile> endpoint.
type OSRM struct {
	baseURL string
	client  *http.Client
}

// NewOSRM creates a router. baseURL includes the profile, e.g.
// http://router.project-osrm.org/route/v1/driving.
func NewOSRM(baseURL string, timeout time.Duration) *OSRM {
	return &OSRM{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}

// Route returns the driving distance in km and duration in minutes.
func (o *OSRM) Route(ctx context.Context, from, to models.Coordinates) (*models.Route, error) {
	// OSRM takes lon,lat pairs
	endpoint := fmt.Sprintf("%s/%s,%s;%s,%s?overview=false", o.baseURL,
		formatCoord(from.Lon), formatCoord(from.Lat),
		formatCoord(to.Lon), formatCoord(to.Lat))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("route: build request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}
	defer resp.Body.Close()

	var payload osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("route: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || payload.Code != "Ok" {
		return nil, fmt.Errorf("route: service responded %d %s: %s", resp.StatusCode, payload.Code, payload.Message)
	}
	if len(payload.Routes) == 0 {
		return nil, ErrNoRoute
	}

	r := payload.Routes[0]
	return &models.Route{
		DistanceKM:  r.Distance / 1000,
		DurationMin: r.Duration / 60,
	}, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
