package carpark

import (
	"context"
	"errors"

	"github.com/parkfind/parkfind/internal/model"
)

// ErrLocationDenied is returned when no device location is available.
// The routing flow aborts and leaves any previous route intact.
var ErrLocationDenied = errors.New("geolocation unavailable or denied")

// Geolocator supplies the user's current position.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (model.LatLng, error)
}

// StaticGeolocator reports a fixed position from configuration, or denies
// when disabled. It stands in for a device location provider.
type StaticGeolocator struct {
	Enabled  bool
	Position model.LatLng
}

// CurrentPosition returns the configured position.
func (g StaticGeolocator) CurrentPosition(_ context.Context) (model.LatLng, error) {
	if !g.Enabled {
		return model.LatLng{}, ErrLocationDenied
	}
	return g.Position, nil
}
