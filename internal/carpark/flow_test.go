package carpark

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/parkfind/parkfind/internal/api"
	"github.com/parkfind/parkfind/internal/model"
	"github.com/parkfind/parkfind/internal/onemap"
	"github.com/parkfind/parkfind/internal/session"
)

var defaultCenter = model.LatLng{Lat: 1.2868108, Lng: 103.8545349}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestFlow wires a flow against one server standing in for both the
// backend and the geocoding service.
func newTestFlow(t *testing.T, serverURL string, store session.Store, locator Geolocator) *Flow {
	t.Helper()
	flow, err := NewFlow(
		api.New(serverURL),
		onemap.New(serverURL, 40),
		store,
		locator,
		nil,
		defaultCenter,
		16,
		discardLogger(),
	)
	if err != nil {
		t.Fatalf("NewFlow failed: %v", err)
	}
	return flow
}

func TestLoad_EmptySession(t *testing.T) {
	store := session.NewMemoryStore()
	flow := newTestFlow(t, "http://127.0.0.1:0", store, StaticGeolocator{})

	cards := flow.Load()
	if len(cards) != 0 {
		t.Errorf("expected no cards, got %d", len(cards))
	}
	if flow.State() != StateEmpty {
		t.Errorf("expected empty state, got %s", flow.State())
	}
}

func TestLoad_EmptyResult(t *testing.T) {
	store := session.NewMemoryStore()
	store.Set(session.KeyCarparkData, `{"result": []}`)
	flow := newTestFlow(t, "http://127.0.0.1:0", store, StaticGeolocator{})

	if cards := flow.Load(); len(cards) != 0 {
		t.Errorf("expected no cards, got %d", len(cards))
	}
	if flow.State() != StateEmpty {
		t.Errorf("expected empty state, got %s", flow.State())
	}
}

func TestLoad_CorruptPayload(t *testing.T) {
	store := session.NewMemoryStore()
	store.Set(session.KeyCarparkData, `{not json`)
	flow := newTestFlow(t, "http://127.0.0.1:0", store, StaticGeolocator{})

	if cards := flow.Load(); len(cards) != 0 {
		t.Errorf("expected no cards for corrupt payload, got %d", len(cards))
	}
	if flow.State() != StateEmpty {
		t.Errorf("expected empty state, got %s", flow.State())
	}
}

func TestLoad_RendersCardsWithDefaults(t *testing.T) {
	store := session.NewMemoryStore()
	store.Set(session.KeyCarparkData, `{"result": [
		{"carpark_id": "A1", "address": "Blk 1", "lots_available": 12,
		 "X_coord": 30000, "Y_coord": 30000, "carpark_type": "SURFACE CAR PARK",
		 "night_parking": 1, "carpark_decks": 2, "gantry_height": 2.15},
		{"carpark_id": "", "address": ""}
	]}`)
	flow := newTestFlow(t, "http://127.0.0.1:0", store, StaticGeolocator{})

	cards := flow.Load()
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if flow.State() != StateLoaded {
		t.Errorf("expected loaded state, got %s", flow.State())
	}

	full := cards[0]
	if full.ID != "A1" || full.Address != "Blk 1" || full.LotsAvailable != 12 {
		t.Errorf("unexpected card %+v", full)
	}
	if full.NightParking != "Yes" {
		t.Errorf("expected night parking Yes, got %q", full.NightParking)
	}
	if full.GantryHeight != "2.15" {
		t.Errorf("expected gantry height 2.15, got %q", full.GantryHeight)
	}

	empty := cards[1]
	if empty.ID != "N/A" {
		t.Errorf("expected N/A identifier, got %q", empty.ID)
	}
	if empty.Address != "No Address Available" {
		t.Errorf("expected address default, got %q", empty.Address)
	}
	if empty.Type != model.NotAvailable || empty.NightParking != model.NotAvailable {
		t.Errorf("expected display defaults, got %+v", empty)
	}
}

func TestLoad_RecentersAndSortsByDestination(t *testing.T) {
	store := session.NewMemoryStore()
	// Structured destination near the SVY21 origin (1.3667N 103.8333E).
	store.Set(session.KeyDestination,
		`{"SEARCHVAL": "TEST", "LATITUDE": "1.3666667", "LONGITUDE": "103.8333333"}`)
	// FAR sits roughly 14 km south-west of NEAR.
	store.Set(session.KeyCarparkData, `{"result": [
		{"carpark_id": "FAR", "address": "far", "X_coord": 18000, "Y_coord": 29000},
		{"carpark_id": "NEAR", "address": "near", "X_coord": 28001.642, "Y_coord": 38744.572}
	]}`)
	flow := newTestFlow(t, "http://127.0.0.1:0", store, StaticGeolocator{})

	cards := flow.Load()
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if cards[0].ID != "NEAR" || cards[1].ID != "FAR" {
		t.Errorf("expected proximity order NEAR, FAR; got %s, %s", cards[0].ID, cards[1].ID)
	}

	center := flow.Map().Center()
	if center.Lat != 1.3666667 || center.Lng != 103.8333333 {
		t.Errorf("expected view re-centered on destination, got %v", center)
	}
}

func TestLoad_FreeTextDestinationKeepsDefaultCenter(t *testing.T) {
	store := session.NewMemoryStore()
	store.Set(session.KeyDestination, "orchard road")
	store.Set(session.KeyCarparkData, `{"result": [{"carpark_id": "A1", "address": "Blk 1"}]}`)
	flow := newTestFlow(t, "http://127.0.0.1:0", store, StaticGeolocator{})

	flow.Load()
	if center := flow.Map().Center(); center != defaultCenter {
		t.Errorf("expected default center for free-text destination, got %v", center)
	}
}

func TestPlaceMarkers_SkipsFailuresIndependently(t *testing.T) {
	var tokens int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/get_access_token":
			atomic.AddInt32(&tokens, 1)
			w.Write([]byte(`{"access_token": "tok"}`))
		case r.URL.Path == "/api/public/revgeocodexy":
			// The carpark at x=40000 has no reverse-geocode result.
			if strings.HasPrefix(r.URL.Query().Get("location"), "40000") {
				w.Write([]byte(`{"GeocodeInfo": []}`))
				return
			}
			w.Write([]byte(`{"GeocodeInfo": [{"LATITUDE": "1.30", "LONGITUDE": "103.85"}]}`))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))
	defer server.Close()

	store := session.NewMemoryStore()
	store.Set(session.KeyCarparkData, `{"result": [
		{"carpark_id": "OK1", "address": "a", "X_coord": 30000, "Y_coord": 30000},
		{"carpark_id": "BAD", "address": "b", "X_coord": 40000, "Y_coord": 30000},
		{"carpark_id": "NOCOORD", "address": "c"}
	]}`)
	flow := newTestFlow(t, server.URL, store, StaticGeolocator{})

	flow.Load()
	flow.PlaceMarkers(context.Background())

	if flow.State() != StateMapped {
		t.Errorf("expected mapped state, got %s", flow.State())
	}
	if n := flow.Map().MarkerCount(); n != 1 {
		t.Errorf("expected exactly 1 marker, got %d", n)
	}
	if _, ok := flow.Map().FindMarker("OK1"); !ok {
		t.Error("expected marker for OK1")
	}
	// A token per geocoded carpark; the coordinate-less one never asks.
	if n := atomic.LoadInt32(&tokens); n != 2 {
		t.Errorf("expected 2 token fetches, got %d", n)
	}
}

func TestPlaceMarkers_NewSearchReplacesOldMarkers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get_access_token":
			w.Write([]byte(`{"access_token": "tok"}`))
		case "/api/public/revgeocodexy":
			w.Write([]byte(`{"GeocodeInfo": [{"LATITUDE": "1.30", "LONGITUDE": "103.85"}]}`))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))
	defer server.Close()

	store := session.NewMemoryStore()
	store.Set(session.KeyCarparkData,
		`{"result": [{"carpark_id": "A1", "address": "a", "X_coord": 30000, "Y_coord": 30000}]}`)
	flow := newTestFlow(t, server.URL, store, StaticGeolocator{})

	ctx := context.Background()
	flow.Load()
	flow.PlaceMarkers(ctx)
	if n := flow.Map().MarkerCount(); n != 1 {
		t.Fatalf("expected 1 marker after first batch, got %d", n)
	}

	// A later search supersedes the cached result; rendering it must leave
	// only the new result's markers on the map.
	store.Set(session.KeyCarparkData,
		`{"result": [{"carpark_id": "B2", "address": "b", "X_coord": 31000, "Y_coord": 31000}]}`)
	flow.Load()
	flow.PlaceMarkers(ctx)

	if n := flow.Map().MarkerCount(); n != 1 {
		t.Errorf("expected exactly the new result's markers, got %d", n)
	}
	if _, ok := flow.Map().FindMarker("A1"); ok {
		t.Error("marker from the superseded result must not survive")
	}
	if _, ok := flow.Map().FindMarker("B2"); !ok {
		t.Error("expected marker for B2")
	}
}

func TestShowRoute_ReplacesPreviousRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get_access_token":
			w.Write([]byte(`{"access_token": "tok"}`))
		case "/api/public/routingsvc/route":
			w.Write([]byte(`{"route_summary": {"total_distance": 4215, "total_time": 522}}`))
		case "/addDestinations":
			w.WriteHeader(http.StatusCreated)
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))
	defer server.Close()

	store := session.NewMemoryStore()
	store.Set(session.KeyUserID, "42")
	locator := StaticGeolocator{Enabled: true, Position: model.LatLng{Lat: 1.32, Lng: 103.82}}
	flow := newTestFlow(t, server.URL, store, locator)

	flow.Map().AddCarparkMarker(Marker{CarparkID: "A1", Position: model.LatLng{Lat: 1.30, Lng: 103.85}})
	flow.Map().AddCarparkMarker(Marker{CarparkID: "B2", Position: model.LatLng{Lat: 1.31, Lng: 103.86}})

	ctx := context.Background()
	route, err := flow.ShowRoute(ctx, "A1")
	if err != nil {
		t.Fatalf("ShowRoute failed: %v", err)
	}
	if route.DistanceMeters != 4215 || route.DurationSeconds != 522 {
		t.Errorf("expected routing service metrics, got %+v", route)
	}
	if flow.State() != StateRouting {
		t.Errorf("expected routing state, got %s", flow.State())
	}

	// Routing to a second carpark leaves exactly one marker/route pair.
	if _, err := flow.ShowRoute(ctx, "B2"); err != nil {
		t.Fatalf("second ShowRoute failed: %v", err)
	}
	current, ok := flow.Map().Route()
	if !ok {
		t.Fatal("expected a route")
	}
	if current.To != (model.LatLng{Lat: 1.31, Lng: 103.86}) {
		t.Errorf("expected route to B2, got %v", current.To)
	}
	user, ok := flow.Map().UserMarker()
	if !ok {
		t.Fatal("expected a user marker")
	}
	if user.Position != locator.Position {
		t.Errorf("expected user marker at %v, got %v", locator.Position, user.Position)
	}

	flow.Flush()
}

func TestShowRoute_LocationDeniedKeepsPreviousRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get_access_token":
			w.Write([]byte(`{"access_token": "tok"}`))
		case "/api/public/routingsvc/route":
			w.Write([]byte(`{"route_summary": {"total_distance": 1000, "total_time": 120}}`))
		case "/addDestinations":
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer server.Close()

	store := session.NewMemoryStore()
	enabled := &toggleGeolocator{position: model.LatLng{Lat: 1.32, Lng: 103.82}, enabled: true}
	flow := newTestFlow(t, server.URL, store, enabled)
	flow.Map().AddCarparkMarker(Marker{CarparkID: "A1", Position: model.LatLng{Lat: 1.30, Lng: 103.85}})

	ctx := context.Background()
	if _, err := flow.ShowRoute(ctx, "A1"); err != nil {
		t.Fatalf("ShowRoute failed: %v", err)
	}

	enabled.enabled = false
	if _, err := flow.ShowRoute(ctx, "A1"); err == nil {
		t.Fatal("expected error when location is denied")
	}
	if _, ok := flow.Map().Route(); !ok {
		t.Error("previous route must survive a denied location")
	}

	flow.Flush()
}

func TestShowRoute_UnknownCarpark(t *testing.T) {
	flow := newTestFlow(t, "http://127.0.0.1:0", session.NewMemoryStore(),
		StaticGeolocator{Enabled: true, Position: model.LatLng{Lat: 1.32, Lng: 103.82}})

	if _, err := flow.ShowRoute(context.Background(), "MISSING"); err == nil {
		t.Error("expected error for a carpark without a marker")
	}
}

func TestShowRoute_RoutingServiceDownFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get_access_token":
			w.Write([]byte(`{"access_token": "tok"}`))
		case "/api/public/routingsvc/route":
			w.WriteHeader(http.StatusInternalServerError)
		case "/addDestinations":
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer server.Close()

	locator := StaticGeolocator{Enabled: true, Position: model.LatLng{Lat: 1.32, Lng: 103.82}}
	flow := newTestFlow(t, server.URL, session.NewMemoryStore(), locator)
	flow.Map().AddCarparkMarker(Marker{CarparkID: "A1", Position: model.LatLng{Lat: 1.30, Lng: 103.85}})

	route, err := flow.ShowRoute(context.Background(), "A1")
	if err != nil {
		t.Fatalf("ShowRoute failed: %v", err)
	}
	// Falls back to the direct distance, a few kilometers here.
	if route.DistanceMeters < 1000 || route.DistanceMeters > 10000 {
		t.Errorf("expected a plausible direct distance, got %f", route.DistanceMeters)
	}

	flow.Flush()
}

func TestStaticGeolocator(t *testing.T) {
	pos := model.LatLng{Lat: 1.3, Lng: 103.8}
	g := StaticGeolocator{Enabled: true, Position: pos}
	got, err := g.CurrentPosition(context.Background())
	if err != nil {
		t.Fatalf("CurrentPosition failed: %v", err)
	}
	if got != pos {
		t.Errorf("expected %v, got %v", pos, got)
	}

	denied := StaticGeolocator{}
	if _, err := denied.CurrentPosition(context.Background()); err != ErrLocationDenied {
		t.Errorf("expected ErrLocationDenied, got %v", err)
	}
}

// toggleGeolocator flips availability between calls.
type toggleGeolocator struct {
	position model.LatLng
	enabled  bool
}

func (g *toggleGeolocator) CurrentPosition(_ context.Context) (model.LatLng, error) {
	if !g.enabled {
		return model.LatLng{}, ErrLocationDenied
	}
	return g.position, nil
}
