package carpark

import (
	"sort"
	"sync"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/parkfind/parkfind/internal/geo"
	"github.com/parkfind/parkfind/internal/model"
)

// Marker is a point of interest on the map view.
type Marker struct {
	CarparkID string
	Position  model.LatLng
	Popup     string
	Point     geom.Point
}

// Route is the currently drawn path from the user to a carpark.
type Route struct {
	From            model.LatLng
	To              model.LatLng
	Line            geom.LineString
	DistanceMeters  float64
	DurationSeconds float64
}

// Map is the in-memory map view: one fixed destination marker, carpark
// markers keyed by identifier, and at most one user marker/route pair.
// Marker placement goroutines write to it concurrently.
type Map struct {
	mu sync.Mutex

	center model.LatLng
	zoom   int
	bounds geo.Bounds

	destination *Marker
	carparks    map[string]Marker
	userMarker  *Marker
	route       *Route
}

// NewMap creates a map view centered on the destination, bounded to the
// Singapore extent, with the fixed destination marker placed.
func NewMap(center model.LatLng, zoom int) *Map {
	return &Map{
		center:      center,
		zoom:        zoom,
		bounds:      geo.SingaporeBounds,
		destination: destinationMarker(center),
		carparks:    make(map[string]Marker),
	}
}

// destinationMarker builds the fixed destination marker. A center that
// cannot be expressed as geometry keeps the zero Point.
func destinationMarker(center model.LatLng) *Marker {
	mk := &Marker{
		Position: center,
		Popup:    "Destination",
	}
	if pt, err := geo.Point(center); err == nil {
		mk.Point = pt
	}
	return mk
}

// SetView re-centers the view and moves the destination marker with it.
func (m *Map) SetView(center model.LatLng, zoom int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.center = center
	m.zoom = zoom
	m.destination = destinationMarker(center)
}

// Center returns the current view center.
func (m *Map) Center() model.LatLng {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.center
}

// Destination returns the fixed destination marker.
func (m *Map) Destination() Marker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.destination
}

// AddCarparkMarker places a carpark marker. Out-of-bounds positions are
// rejected; a marker for the same carpark is replaced.
func (m *Map) AddCarparkMarker(mk Marker) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.bounds.Contains(mk.Position) {
		return false
	}
	pt, err := geo.Point(mk.Position)
	if err != nil {
		return false
	}
	mk.Point = pt
	m.carparks[mk.CarparkID] = mk
	return true
}

// CarparkMarkers returns the placed carpark markers ordered by identifier.
func (m *Map) CarparkMarkers() []Marker {
	m.mu.Lock()
	defer m.mu.Unlock()
	markers := make([]Marker, 0, len(m.carparks))
	for _, mk := range m.carparks {
		markers = append(markers, mk)
	}
	sort.Slice(markers, func(i, j int) bool {
		return markers[i].CarparkID < markers[j].CarparkID
	})
	return markers
}

// MarkerCount returns the number of placed carpark markers.
func (m *Map) MarkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.carparks)
}

// FindMarker returns the marker for a carpark, if placed.
func (m *Map) FindMarker(carparkID string) (Marker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk, ok := m.carparks[carparkID]
	return mk, ok
}

// SetUserRoute replaces the user marker and route as one step, removing
// any previous pair first. Replacement is idempotent: however many times
// a route is shown, exactly one pair remains.
func (m *Map) SetUserRoute(user Marker, route Route) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userMarker = &user
	m.route = &route
}

// UserMarker returns the current user marker, if a route has been shown.
func (m *Map) UserMarker() (Marker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userMarker == nil {
		return Marker{}, false
	}
	return *m.userMarker, true
}

// Route returns the currently drawn route, if any.
func (m *Map) Route() (Route, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.route == nil {
		return Route{}, false
	}
	return *m.route, true
}

// ClearCarparkMarkers removes all carpark markers, keeping the
// destination marker and any user route.
func (m *Map) ClearCarparkMarkers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carparks = make(map[string]Marker)
}
