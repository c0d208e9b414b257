// Package carpark implements the rendering and routing flow: it loads the
// cached search result, renders carpark cards, places map markers through
// the reverse-geocoding service, and draws a route from the user's live
// location to a selected carpark.
package carpark

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/parkfind/parkfind/internal/api"
	"github.com/parkfind/parkfind/internal/geo"
	"github.com/parkfind/parkfind/internal/metrics"
	"github.com/parkfind/parkfind/internal/model"
	"github.com/parkfind/parkfind/internal/onemap"
	"github.com/parkfind/parkfind/internal/session"
)

// NoCarparksMessage is the empty-state indicator.
const NoCarparksMessage = "There are no carparks."

// State is the flow's position in its lifecycle over one search result.
type State int

const (
	// StateIdle means no data has been loaded yet.
	StateIdle State = iota
	// StateLoaded means carpark cards are rendered.
	StateLoaded
	// StateEmpty means the session held no carparks; the empty-state
	// indicator is shown. This is a valid state, not an error.
	StateEmpty
	// StateMapped means the marker batch has settled.
	StateMapped
	// StateRouting means a route to a selected carpark is drawn.
	StateRouting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateEmpty:
		return "empty"
	case StateMapped:
		return "mapped"
	case StateRouting:
		return "routing"
	default:
		return "unknown"
	}
}

// Card is one carpark rendered for display, with missing attributes
// already defaulted.
type Card struct {
	ID               string
	Address          string
	LotsAvailable    int
	XCoord           string
	YCoord           string
	Type             string
	ParkingSystem    string
	ShortTermParking string
	FreeParking      string
	NightParking     string
	Decks            string
	GantryHeight     string
	Basement         string
}

// Flow drives rendering and routing for the cached search result.
type Flow struct {
	client     *api.Client
	onemap     *onemap.Client
	store      session.Store
	geolocator Geolocator
	metrics    *metrics.Manager
	log        *slog.Logger

	mapView *Map
	zoom    int

	mu       sync.Mutex
	state    State
	carparks []model.Carpark

	// in-flight destination reports
	reports sync.WaitGroup

	placed  metric.Int64Counter
	skipped metric.Int64Counter
}

// NewFlow creates the flow with its map view centered on the default
// destination. Metrics use the global OTel meter (no-op if not configured);
// mgr may be nil to disable Influx timings.
func NewFlow(
	client *api.Client,
	om *onemap.Client,
	store session.Store,
	locator Geolocator,
	mgr *metrics.Manager,
	defaultCenter model.LatLng,
	zoom int,
	log *slog.Logger,
) (*Flow, error) {
	f := &Flow{
		client:     client,
		onemap:     om,
		store:      store,
		geolocator: locator,
		metrics:    mgr,
		log:        log,
		mapView:    NewMap(defaultCenter, zoom),
		zoom:       zoom,
		state:      StateIdle,
	}

	m := otel.GetMeterProvider().Meter("parkfind/carpark")

	var err error
	f.placed, err = m.Int64Counter(
		"markers.placed",
		metric.WithDescription("Carpark markers successfully placed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating placed counter: %w", err)
	}
	f.skipped, err = m.Int64Counter(
		"markers.skipped",
		metric.WithDescription("Carpark markers skipped due to token or geocode failure"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating skipped counter: %w", err)
	}

	return f, nil
}

// State returns the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Map exposes the map view for rendering.
func (f *Flow) Map() *Map {
	return f.mapView
}

// Load reads the cached search result from the session. An absent or empty
// result is the Empty state with zero cards. When the session destination
// resolves to a coordinate, the view re-centers on it and the cards are
// ordered by straight-line distance from it.
func (f *Flow) Load() []Card {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Each load renders the cached result alone. Markers placed for a
	// superseded result must not survive it.
	f.mapView.ClearCarparkMarkers()

	dest, hasDest := f.destinationLatLng()
	if hasDest {
		f.mapView.SetView(dest, f.zoom)
	}

	raw, ok := f.store.Get(session.KeyCarparkData)
	if !ok {
		f.state = StateEmpty
		f.carparks = nil
		return nil
	}

	var result model.SearchResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		f.log.Error("failed to decode cached carpark data", "error", err)
		f.state = StateEmpty
		f.carparks = nil
		return nil
	}
	if len(result.Carparks) == 0 {
		f.state = StateEmpty
		f.carparks = nil
		return nil
	}

	f.carparks = result.Carparks
	if hasDest {
		sortByProximity(f.carparks, dest)
	}
	f.state = StateLoaded

	cards := make([]Card, 0, len(f.carparks))
	for _, cp := range f.carparks {
		cards = append(cards, cardFor(cp))
	}
	f.log.Info("carpark data loaded", "count", len(cards))
	return cards
}

// PlaceMarkers resolves each loaded carpark's coordinates through the
// reverse-geocoding service and places map markers. One goroutine per
// carpark; each fetches its own access token and then geocodes, strictly
// in that order. A failure for one carpark is logged and skipped, never
// blocking the others. After the batch settles the flow is Mapped.
func (f *Flow) PlaceMarkers(ctx context.Context) {
	f.mu.Lock()
	carparks := f.carparks
	f.mu.Unlock()

	start := time.Now()
	var wg sync.WaitGroup
	for _, cp := range carparks {
		if !cp.HasCoordinates() {
			continue
		}
		wg.Add(1)
		go func(cp model.Carpark) {
			defer wg.Done()
			f.placeMarker(ctx, cp)
		}(cp)
	}
	wg.Wait()

	f.mu.Lock()
	if f.state == StateLoaded {
		f.state = StateMapped
	}
	f.mu.Unlock()

	if f.metrics != nil {
		f.metrics.WritePoint("marker_batch",
			map[string]string{},
			map[string]interface{}{
				"carparks":    len(carparks),
				"placed":      f.mapView.MarkerCount(),
				"duration_ms": time.Since(start).Milliseconds(),
			},
		)
	}
}

func (f *Flow) placeMarker(ctx context.Context, cp model.Carpark) {
	token, err := f.client.AccessToken(ctx)
	if err != nil {
		f.log.Error("failed to fetch access token", "carpark", cp.ID, "error", err)
		f.skipped.Add(ctx, 1)
		return
	}

	pos, err := f.onemap.ReverseGeocodeXY(ctx, token, cp.XCoord, cp.YCoord)
	if err != nil {
		f.log.Error("failed to geocode carpark", "carpark", cp.ID, "error", err)
		f.skipped.Add(ctx, 1)
		return
	}

	popup := fmt.Sprintf("%s\n%s\nType: %s",
		cp.DisplayID(), cp.DisplayAddress(), model.OrDefault(cp.Type))
	if !f.mapView.AddCarparkMarker(Marker{
		CarparkID: cp.ID,
		Position:  pos,
		Popup:     popup,
	}) {
		f.log.Error("carpark position outside map bounds", "carpark", cp.ID, "position", pos)
		f.skipped.Add(ctx, 1)
		return
	}
	f.placed.Add(ctx, 1)
	f.log.Debug("marker placed", "carpark", cp.ID, "position", pos)
}

// ShowRoute draws a route from the user's current position to the selected
// carpark's resolved location. The previous user marker and route, if any,
// are replaced as one step. When the device location is unavailable the
// transition aborts and the previous route stays. The chosen destination is
// reported to the backend asynchronously; a report failure is only logged.
func (f *Flow) ShowRoute(ctx context.Context, carparkID string) (Route, error) {
	marker, ok := f.mapView.FindMarker(carparkID)
	if !ok {
		return Route{}, fmt.Errorf("no marker placed for carpark %s", carparkID)
	}

	origin, err := f.geolocator.CurrentPosition(ctx)
	if err != nil {
		f.log.Error("failed to get user location", "error", err)
		return Route{}, fmt.Errorf("failed to get user location: %w", err)
	}

	route := Route{From: origin, To: marker.Position}
	if line, err := geo.RouteLine(origin, marker.Position); err == nil {
		route.Line = line
	}

	// Drive metrics from the routing service; fall back to the
	// great-circle distance when it is unreachable.
	if token, err := f.client.AccessToken(ctx); err == nil {
		if summary, err := f.onemap.Route(ctx, token, origin, marker.Position); err == nil {
			route.DistanceMeters = summary.TotalDistance
			route.DurationSeconds = summary.TotalTime
		} else {
			f.log.Error("routing service failed, using direct distance", "error", err)
			route.DistanceMeters = geo.Distance(origin, marker.Position)
		}
	} else {
		f.log.Error("failed to fetch access token for routing", "error", err)
		route.DistanceMeters = geo.Distance(origin, marker.Position)
	}

	f.mapView.SetUserRoute(Marker{
		Position: origin,
		Popup:    "You are here",
	}, route)

	f.mu.Lock()
	f.state = StateRouting
	f.mu.Unlock()

	f.reportDestination(marker.Position, carparkID)
	f.log.Info("route drawn", "carpark", carparkID,
		"from", origin, "to", marker.Position, "distance_m", route.DistanceMeters)
	return route, nil
}

// reportDestination sends the chosen destination to the backend without
// blocking the routing transition.
func (f *Flow) reportDestination(pos model.LatLng, carparkID string) {
	userID := 0
	if raw, ok := f.store.Get(session.KeyUserID); ok {
		if id, err := strconv.Atoi(raw); err == nil {
			userID = id
		}
	}

	f.reports.Add(1)
	go func() {
		defer f.reports.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := f.client.AddDestination(ctx, userID, pos, carparkID); err != nil {
			f.log.Error("failed to store destination on server", "carpark", carparkID, "error", err)
			return
		}
		f.log.Debug("destination stored on server", "carpark", carparkID, "userID", userID)
	}()
}

// Flush waits for in-flight destination reports to finish.
func (f *Flow) Flush() {
	f.reports.Wait()
}

// destinationLatLng resolves the session destination to a coordinate.
// The slot may hold a structured address (JSON) or free text; only the
// former carries geometry.
func (f *Flow) destinationLatLng() (model.LatLng, bool) {
	raw, ok := f.store.Get(session.KeyDestination)
	if !ok {
		return model.LatLng{}, false
	}
	var dest model.Destination
	if err := json.Unmarshal([]byte(raw), &dest); err != nil {
		return model.LatLng{}, false
	}
	lat, errLat := strconv.ParseFloat(dest.Latitude, 64)
	lng, errLng := strconv.ParseFloat(dest.Longitude, 64)
	if errLat != nil || errLng != nil {
		return model.LatLng{}, false
	}
	return model.LatLng{Lat: lat, Lng: lng}, true
}

// sortByProximity orders carparks by straight-line distance from the
// destination, converting SVY21 locally. Carparks without a resolvable
// position sort last, keeping their relative order.
func sortByProximity(carparks []model.Carpark, dest model.LatLng) {
	distances := make([]float64, len(carparks))
	for i, cp := range carparks {
		pos, err := geo.FromSVY21(cp.XCoord, cp.YCoord)
		if err != nil {
			distances[i] = math.Inf(1)
			continue
		}
		distances[i] = geo.Distance(dest, pos)
	}
	idx := make([]int, len(carparks))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return distances[idx[a]] < distances[idx[b]]
	})
	ordered := make([]model.Carpark, len(carparks))
	for i, j := range idx {
		ordered[i] = carparks[j]
	}
	copy(carparks, ordered)
}

func cardFor(cp model.Carpark) Card {
	return Card{
		ID:               cp.DisplayID(),
		Address:          cp.DisplayAddress(),
		LotsAvailable:    cp.LotsAvailable,
		XCoord:           formatCoord(cp.XCoord),
		YCoord:           formatCoord(cp.YCoord),
		Type:             model.OrDefault(cp.Type),
		ParkingSystem:    model.OrDefault(cp.ParkingSystem),
		ShortTermParking: model.OrDefault(cp.ShortTermParking),
		FreeParking:      model.OrDefault(cp.FreeParking),
		NightParking:     cp.DisplayNightParking(),
		Decks:            formatCount(cp.Decks),
		GantryHeight:     formatGantry(cp.GantryHeight),
		Basement:         model.OrDefault(cp.Basement),
	}
}

func formatCoord(v float64) string {
	if v == 0 {
		return model.NotAvailable
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatCount(v int) string {
	if v == 0 {
		return model.NotAvailable
	}
	return strconv.Itoa(v)
}

func formatGantry(v float64) string {
	if v == 0 {
		return model.NotAvailable
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
