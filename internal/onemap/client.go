// Package onemap is the client for the external OneMap services: reverse
// geocoding of SVY21 pairs, free-text address search (autocomplete), and
// drive routing. Reverse geocoding and routing require a short-lived access
// token obtained from the backend; address search is public.
package onemap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/parkfind/parkfind/internal/model"
)

// ErrNoResults is returned when the service finds nothing for a query.
var ErrNoResults = errors.New("no geocoding results")

// Client calls the OneMap public API.
type Client struct {
	baseURL    string
	buffer     int
	httpClient *http.Client
}

// New creates a OneMap client. buffer is the reverse-geocode search radius
// in meters.
func New(baseURL string, buffer int) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		buffer:     buffer,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type geocodeInfo struct {
	Latitude  string `json:"LATITUDE"`
	Longitude string `json:"LONGITUDE"`
}

// ReverseGeocodeXY resolves an SVY21 easting/northing pair to WGS84 using
// the revgeocodexy endpoint. The token goes in the Authorization header as-is.
func (c *Client) ReverseGeocodeXY(ctx context.Context, token string, x, y float64) (model.LatLng, error) {
	endpoint := fmt.Sprintf(
		"%s/api/public/revgeocodexy?location=%s,%s&buffer=%d&addressType=All&otherFeatures=N",
		c.baseURL,
		strconv.FormatFloat(x, 'f', -1, 64),
		strconv.FormatFloat(y, 'f', -1, 64),
		c.buffer,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.LatLng{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.LatLng{}, fmt.Errorf("reverse geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.LatLng{}, fmt.Errorf("reverse geocode returned status %d", resp.StatusCode)
	}
	var payload struct {
		GeocodeInfo []geocodeInfo `json:"GeocodeInfo"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.LatLng{}, fmt.Errorf("failed to decode reverse geocode response: %w", err)
	}
	if len(payload.GeocodeInfo) == 0 {
		return model.LatLng{}, ErrNoResults
	}
	return parseLatLng(payload.GeocodeInfo[0].Latitude, payload.GeocodeInfo[0].Longitude)
}

// Search queries the address search endpoint with a free-text value and
// returns structured suggestions with geometry.
func (c *Client) Search(ctx context.Context, value string) ([]model.Destination, error) {
	endpoint := fmt.Sprintf(
		"%s/api/common/elastic/search?searchVal=%s&returnGeom=Y&getAddrDetails=Y",
		c.baseURL, url.QueryEscape(value),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("address search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("address search returned status %d", resp.StatusCode)
	}
	var payload struct {
		Results []model.Destination `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode address search response: %w", err)
	}
	return payload.Results, nil
}

// RouteSummary is the drive-route metrics between two points.
type RouteSummary struct {
	TotalDistance float64 `json:"total_distance"` // meters
	TotalTime     float64 `json:"total_time"`     // seconds
}

// Route requests a drive route between two WGS84 points. The token goes in
// the Authorization header with a Bearer prefix.
func (c *Client) Route(ctx context.Context, token string, start, end model.LatLng) (RouteSummary, error) {
	endpoint := fmt.Sprintf(
		"%s/api/public/routingsvc/route?start=%s&end=%s&routeType=drive",
		c.baseURL, start.String(), end.String(),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return RouteSummary{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return RouteSummary{}, fmt.Errorf("route request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RouteSummary{}, fmt.Errorf("route returned status %d", resp.StatusCode)
	}
	var payload struct {
		Summary RouteSummary `json:"route_summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return RouteSummary{}, fmt.Errorf("failed to decode route response: %w", err)
	}
	return payload.Summary, nil
}

func parseLatLng(lat, lng string) (model.LatLng, error) {
	latF, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return model.LatLng{}, fmt.Errorf("invalid latitude %q: %w", lat, err)
	}
	lngF, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return model.LatLng{}, fmt.Errorf("invalid longitude %q: %w", lng, err)
	}
	return model.LatLng{Lat: latF, Lng: lngF}, nil
}
