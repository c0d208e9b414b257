// Package geo provides coordinate handling for the carpark finder: SVY21
// (EPSG:3414) to WGS84 conversion, distance, and map-view geometry.
package geo

import (
	"errors"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/parkfind/parkfind/internal/model"
)

// ErrInvalidCoordinates is returned when a coordinate pair is unusable.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// SVY21 is the Singapore plane coordinate system carpark records use:
// a Transverse Mercator projection on the WGS84 spheroid with natural
// origin 1°22'N 103°50'E, false easting 28001.642 and false northing
// 38744.572 (EPSG:3414).
var svy21 = wgs84.WGS84().TransverseMercator(
	103.83333333333333, 1.3666666666666667, 1, 28001.642, 38744.572,
)

// FromSVY21 converts an SVY21 easting/northing pair to WGS84.
// The external reverse-geocoding service remains authoritative for marker
// placement; this local transform serves distance ordering and fallbacks.
func FromSVY21(x, y float64) (model.LatLng, error) {
	if x == 0 || y == 0 {
		return model.LatLng{}, ErrInvalidCoordinates
	}
	lng, lat, _ := svy21.To(wgs84.LonLat())(x, y, 0)
	return model.LatLng{Lat: lat, Lng: lng}, nil
}

const earthRadiusMeters = 6371000

// Distance returns the great-circle distance between two points in meters.
func Distance(a, b model.LatLng) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Bounds is a latitude/longitude view rectangle.
type Bounds struct {
	SouthWest model.LatLng
	NorthEast model.LatLng
}

// SingaporeBounds is the maximum extent of the map view.
var SingaporeBounds = Bounds{
	SouthWest: model.LatLng{Lat: 1.144, Lng: 103.535},
	NorthEast: model.LatLng{Lat: 1.494, Lng: 104.502},
}

// Contains reports whether the point lies within the bounds.
func (b Bounds) Contains(p model.LatLng) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}

// Point builds a geometry point from a coordinate pair. Non-finite
// coordinates are rejected by the constructor.
func Point(p model.LatLng) (geom.Point, error) {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.Lng, Y: p.Lat},
		Type: geom.DimXY,
	})
}

// RouteLine builds a LineString through the given waypoints, in order.
func RouteLine(points ...model.LatLng) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, errors.New("route needs at least 2 waypoints")
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.Lng, p.Lat)
	}
	seq := geom.NewSequence(flat, geom.DimXY)
	return geom.NewLineString(seq)
}
