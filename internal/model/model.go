// Package model defines the wire-level domain types shared by the carpark
// finder flows. Field tags match the backend and OneMap JSON payloads exactly.
package model

import (
	"fmt"
	"strings"
)

// NotAvailable is the display default for missing carpark attributes.
const NotAvailable = "Not Available"

// Carpark is a parking facility record returned by the backend search.
// Coordinates are SVY21 (EPSG:3414) easting/northing.
type Carpark struct {
	ID               string  `json:"carpark_id"`
	Address          string  `json:"address"`
	XCoord           float64 `json:"X_coord"`
	YCoord           float64 `json:"Y_coord"`
	LotsAvailable    int     `json:"lots_available"`
	Type             string  `json:"carpark_type"`
	ParkingSystem    string  `json:"parking_system"`
	ShortTermParking string  `json:"short_term_parking"`
	FreeParking      string  `json:"free_parking"`
	NightParking     *int    `json:"night_parking,omitempty"`
	Decks            int     `json:"carpark_decks"`
	GantryHeight     float64 `json:"gantry_height"`
	Basement         string  `json:"carpark_basement"`
}

// HasCoordinates reports whether the carpark carries a usable SVY21 pair.
func (c Carpark) HasCoordinates() bool {
	return c.XCoord != 0 && c.YCoord != 0
}

// DisplayID returns the carpark identifier or "N/A" when missing.
func (c Carpark) DisplayID() string {
	if c.ID == "" {
		return "N/A"
	}
	return c.ID
}

// DisplayAddress returns the address or its display default.
func (c Carpark) DisplayAddress() string {
	if c.Address == "" {
		return "No Address Available"
	}
	return c.Address
}

// DisplayNightParking renders the tri-state night-parking flag.
func (c Carpark) DisplayNightParking() string {
	if c.NightParking == nil {
		return NotAvailable
	}
	switch *c.NightParking {
	case 1:
		return "Yes"
	case 0:
		return "No"
	default:
		return NotAvailable
	}
}

// OrDefault substitutes the display default for an empty attribute.
func OrDefault(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

// Destination is a structured address selected from the OneMap
// autocomplete service, with its resolved WGS84 coordinate pair.
// The uppercase keys are OneMap's, preserved on the wire.
type Destination struct {
	SearchVal string `json:"SEARCHVAL"`
	BlockNo   string `json:"BLK_NO"`
	RoadName  string `json:"ROAD_NAME"`
	Building  string `json:"BUILDING"`
	Address   string `json:"ADDRESS"`
	Postal    string `json:"POSTAL"`
	Latitude  string `json:"LATITUDE"`
	Longitude string `json:"LONGITUDE"`
}

// Label renders the human-readable suggestion line for a destination.
func (d Destination) Label() string {
	return strings.Join([]string{
		d.SearchVal, d.BlockNo, d.RoadName, d.Building, d.Address, d.Postal,
	}, ", ")
}

// SearchResult is one server-returned carpark search. It is superseded by
// the next search.
type SearchResult struct {
	Carparks []Carpark `json:"result"`
}

// Identity is the session user. UserID 0 is the anonymous sentinel.
type Identity struct {
	UserID   int
	Username string
}

// Anonymous reports whether the identity belongs to no logged-in user.
func (i Identity) Anonymous() bool {
	return i.UserID == 0
}

// HistoryEntry is one past search returned by the backend history endpoint.
type HistoryEntry struct {
	CarparkID string `json:"carparkID"`
	Address   string `json:"address"`
	Datetime  string `json:"datetime"`
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p LatLng) String() string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}
