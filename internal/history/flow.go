// Package history implements the paginated search-history view: each load
// fetches one page and appends it to the accumulated list, which is then
// re-rendered in full.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/parkfind/parkfind/internal/api"
	"github.com/parkfind/parkfind/internal/model"
	"github.com/parkfind/parkfind/internal/session"
)

// Failure presentations, one per backend status class.
const (
	MsgUnauthorized = "You must be logged in to view your history."
	MsgServerError  = "There was an issue with the server. Please try again later."
	MsgGeneric      = "An unexpected error occurred. Please try again."

	// MsgNoHistory is the empty-state indicator for a logged-in user with
	// no past searches. Not an alert.
	MsgNoHistory = "No past search history."
	// MsgLoginToView is the empty-state indicator for an anonymous session.
	MsgLoginToView = "You must be logged in to view history."
)

// ErrNotFound marks the 404 presentation: render the empty state instead
// of an alert.
type ErrNotFound struct{}

func (ErrNotFound) Error() string {
	return MsgNoHistory
}

// Card is one rendered history entry.
type Card struct {
	CarparkID string
	Address   string
	Date      string
}

// Flow accumulates history pages for the current view.
type Flow struct {
	client   *api.Client
	store    session.Store
	pageSize int
	log      *slog.Logger

	accumulated []model.HistoryEntry
}

// NewFlow creates a history flow fetching pages of the given size.
func NewFlow(client *api.Client, store session.Store, pageSize int, log *slog.Logger) *Flow {
	return &Flow{
		client:   client,
		store:    store,
		pageSize: pageSize,
		log:      log,
	}
}

// LoadMore fetches the next page and appends it to the accumulated list.
// Entries are never deduplicated; two loads of ten append to twenty. The
// full accumulated list is returned for re-rendering.
func (f *Flow) LoadMore(ctx context.Context) ([]Card, error) {
	entries, err := f.client.LoadHistory(ctx, f.pageSize)
	if err != nil {
		switch api.StatusOf(err) {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("%s: %w", MsgUnauthorized, err)
		case http.StatusNotFound:
			return nil, ErrNotFound{}
		case http.StatusInternalServerError:
			return nil, fmt.Errorf("%s: %w", MsgServerError, err)
		default:
			return nil, fmt.Errorf("%s: %w", MsgGeneric, err)
		}
	}

	f.accumulated = append(f.accumulated, entries...)
	f.log.Info("history page loaded", "page", len(entries), "total", len(f.accumulated))
	return f.Cards(), nil
}

// Cards renders the full accumulated list.
func (f *Flow) Cards() []Card {
	cards := make([]Card, 0, len(f.accumulated))
	for _, e := range f.accumulated {
		cards = append(cards, Card{
			CarparkID: e.CarparkID,
			Address:   e.Address,
			Date:      formatDateLong(e.Datetime),
		})
	}
	return cards
}

// Count returns the number of accumulated entries.
func (f *Flow) Count() int {
	return len(f.accumulated)
}

// EmptyMessage picks the empty-state caption from the session identity:
// an anonymous session is prompted to log in, a logged-in user simply has
// no history yet.
func (f *Flow) EmptyMessage() string {
	raw, ok := f.store.Get(session.KeyUserID)
	if !ok {
		return MsgLoginToView
	}
	userID, err := strconv.Atoi(raw)
	if err != nil || userID == 0 {
		return MsgLoginToView
	}
	return MsgNoHistory
}

// datetime layouts the backend has been seen emitting.
var dateLayouts = []string{
	time.RFC1123,
	time.RFC1123Z,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// formatDateLong renders a backend datetime as "2 January 2006 15:04".
// An unparsable value passes through unchanged.
func formatDateLong(value string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2 January 2006 15:04")
		}
	}
	return value
}
