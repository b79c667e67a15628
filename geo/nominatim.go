package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"flat-ranker/models"
)

// Nominatim resolves free-text addresses through an OpenStreetMap
// Nominatim /search endpoint.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatim creates a geocoder. Every request is bounded by timeout.
func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "?&/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// Geocode returns the best match for address, or nil when the service has
// no match.
func (n *Nominatim) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: build request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept-Language", "pl")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: service responded with status %d", resp.StatusCode)
	}

	var payload []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("geocode: decode response: %w", err)
	}
	if len(payload) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(payload[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode: bad latitude %q: %w", payload[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(payload[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode: bad longitude %q: %w", payload[0].Lon, err)
	}
	return &models.Coordinates{Lat: lat, Lon: lon}, nil
}
