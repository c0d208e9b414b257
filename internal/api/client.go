// Package api is the typed client for the carpark-finder backend.
// One operation per backend capability; a non-2xx response surfaces as an
// *Error keyed by HTTP status. No retries.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/parkfind/parkfind/internal/model"
)

// Client handles communication with the carpark-finder backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

// Login verifies credentials and returns the user ID.
func (c *Client) Login(ctx context.Context, username, password string) (int, error) {
	resp, err := c.postJSON(ctx, "/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return 0, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, errorFromResponse(resp)
	}
	var payload struct {
		UserID int `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode login response: %w", err)
	}
	return payload.UserID, nil
}

// Register creates a new account and returns the new user ID.
func (c *Client) Register(ctx context.Context, username, email, password string) (int, error) {
	resp, err := c.postJSON(ctx, "/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return 0, fmt.Errorf("register request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, errorFromResponse(resp)
	}
	var payload struct {
		UserID int `json:"userID"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode register response: %w", err)
	}
	return payload.UserID, nil
}

// ResetPassword updates the password for an existing account.
// The backend answers 201 on success.
func (c *Client) ResetPassword(ctx context.Context, email, username, password string) error {
	resp, err := c.postJSON(ctx, "/forgotPassword", map[string]string{
		"email":    email,
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("reset password request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return errorFromResponse(resp)
	}
	return nil
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	return nil
}

// CurrentUser resolves the display name for the given user ID.
// The ID travels as text, matching what the backend expects.
func (c *Client) CurrentUser(ctx context.Context, userID int) (string, error) {
	resp, err := c.postJSON(ctx, "/getCurrentUser", map[string]string{
		"userID": strconv.Itoa(userID),
	})
	if err != nil {
		return "", fmt.Errorf("current user request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errorFromResponse(resp)
	}
	var payload struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode current user response: %w", err)
	}
	return payload.Username, nil
}

// SearchCarparks runs a carpark search for the destination and vehicle type.
// It returns the parsed result and the raw response body; the raw bytes are
// what gets cached in the session so a later read is byte-identical.
func (c *Client) SearchCarparks(ctx context.Context, vehicle, destination string) (model.SearchResult, []byte, error) {
	resp, err := c.postJSON(ctx, "/getCarparks", map[string]string{
		"vehicleSearch":    vehicle,
		"destinationValue": destination,
	})
	if err != nil {
		return model.SearchResult{}, nil, fmt.Errorf("carpark search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.SearchResult{}, nil, errorFromResponse(resp)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.SearchResult{}, nil, fmt.Errorf("failed to read carpark search response: %w", err)
	}
	var result model.SearchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return model.SearchResult{}, nil, fmt.Errorf("failed to decode carpark search response: %w", err)
	}
	return result, raw, nil
}

// LoadHistory fetches one page of past searches. The backend returns a
// JSON object keyed by row number; entries come back ordered by key.
func (c *Client) LoadHistory(ctx context.Context, count int) ([]model.HistoryEntry, error) {
	resp, err := c.postJSON(ctx, "/loadHistory", map[string]int{
		"number_of_history": count,
	})
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}
	var payload map[string]model.HistoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode history response: %w", err)
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})

	entries := make([]model.HistoryEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, payload[k])
	}
	return entries, nil
}

// AddDestination reports a chosen carpark destination to the backend.
func (c *Client) AddDestination(ctx context.Context, userID int, pos model.LatLng, carparkID string) error {
	resp, err := c.postJSON(ctx, "/addDestinations", map[string]any{
		"user_id":    userID,
		"lat":        pos.Lat,
		"lng":        pos.Lng,
		"carpark_id": carparkID,
	})
	if err != nil {
		return fmt.Errorf("add destination request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}
	return nil
}

// AccessToken fetches a short-lived credential for the geocoding service.
// Tokens are fetched fresh per marker batch and never cached.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get_access_token", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("access token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errorFromResponse(resp)
	}
	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode access token response: %w", err)
	}
	return payload.AccessToken, nil
}
