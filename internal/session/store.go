// Package session holds the per-run ephemeral key/value state: the logged-in
// identity and the cached search payload. Values are text; structured values
// cross the boundary as JSON. Nothing survives the process.
package session

import "encoding/json"

// Storage keys used by the flows.
const (
	KeyUserID      = "userID"
	KeyCarparkData = "carparkData"
	KeyDestination = "destination"
	KeyVehicle     = "vehicle"
)

// Store is a string-keyed slot store scoped to the current run.
type Store interface {
	// Get returns the stored value and whether the slot is populated.
	Get(key string) (string, bool)
	// Set stores a value, replacing any previous one.
	Set(key, value string)
	// Clear removes a single slot.
	Clear(key string)
	// Reset removes every slot.
	Reset()
}

// SetJSON encodes v and stores it under key.
func SetJSON(s Store, key string, v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.Set(key, string(encoded))
	return nil
}

// GetJSON decodes the slot under key into v. A missing slot returns false
// with v untouched.
func GetJSON(s Store, key string, v any) (bool, error) {
	raw, ok := s.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, err
	}
	return true, nil
}
