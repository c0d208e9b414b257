// Package search implements the destination search flow: input validation,
// the backend carpark search, session caching, and destination autocomplete
// against the OneMap address service.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parkfind/parkfind/internal/api"
	"github.com/parkfind/parkfind/internal/model"
	"github.com/parkfind/parkfind/internal/onemap"
	"github.com/parkfind/parkfind/internal/session"
)

const (
	// MsgEmptyDestination rejects a blank search before any network call.
	MsgEmptyDestination = "Destination cannot be empty. Please input a destination."
	// MsgSearchFailed is the generic fallback when the backend gives no reason.
	MsgSearchFailed = "An error occurred."

	// autocompleteMinChars is the typed-prefix length below which the
	// address service is not queried.
	autocompleteMinChars = 3
)

// ErrEmptyDestination is the validation rejection for blank input.
type ErrEmptyDestination struct{}

func (ErrEmptyDestination) Error() string {
	return MsgEmptyDestination
}

// Flow orchestrates one destination search.
type Flow struct {
	client *api.Client
	onemap *onemap.Client
	store  session.Store
	log    *slog.Logger
}

// NewFlow creates a search flow.
func NewFlow(client *api.Client, om *onemap.Client, store session.Store, log *slog.Logger) *Flow {
	return &Flow{client: client, onemap: om, store: store, log: log}
}

// Search validates the destination, queries the backend, and caches the
// result in the session for the rendering flow. The cached payload is the
// raw server response, byte for byte. vehicle is optional.
func (f *Flow) Search(ctx context.Context, destination, vehicle string) (model.SearchResult, error) {
	if strings.TrimSpace(destination) == "" {
		return model.SearchResult{}, ErrEmptyDestination{}
	}

	result, raw, err := f.client.SearchCarparks(ctx, vehicle, destination)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("Search failed: %s: %w", api.MessageOf(err, MsgSearchFailed), err)
	}

	f.store.Set(session.KeyCarparkData, string(raw))
	f.store.Set(session.KeyDestination, destination)
	if err := session.SetJSON(f.store, session.KeyVehicle, vehicle); err != nil {
		return model.SearchResult{}, fmt.Errorf("failed to cache vehicle type: %w", err)
	}

	f.log.Info("carpark search successful", "carparks", len(result.Carparks), "vehicle", vehicle)
	return result, nil
}

// Autocomplete returns address suggestions for the typed prefix. Fewer than
// three characters yields no suggestions and no network call. Service
// failures are logged and yield an empty list; suggestions are best-effort.
func (f *Flow) Autocomplete(ctx context.Context, input string) []model.Destination {
	if len(input) < autocompleteMinChars {
		return nil
	}
	suggestions, err := f.onemap.Search(ctx, input)
	if err != nil {
		f.log.Error("failed to fetch destination suggestions", "error", err)
		return nil
	}
	return suggestions
}

// Selection is the filled-in destination input after picking a suggestion:
// the JSON-encoded structured address as the search value, and the
// human-readable label shown to the user.
type Selection struct {
	Value string
	Label string
}

// Select encodes the chosen suggestion into the destination input.
func Select(d model.Destination) (Selection, error) {
	encoded, err := json.Marshal(d)
	if err != nil {
		return Selection{}, fmt.Errorf("failed to encode destination: %w", err)
	}
	return Selection{
		Value: string(encoded),
		Label: d.Label(),
	}, nil
}
