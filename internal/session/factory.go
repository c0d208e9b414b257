package session

import "fmt"

// NewStore creates a session backend based on configuration.
func NewStore(backend string) (Store, error) {
	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore()
	default:
		return nil, fmt.Errorf("unknown session backend: %s", backend)
	}
}
