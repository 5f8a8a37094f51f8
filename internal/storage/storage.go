package storage

import (
	"time"
)

type SetOptions struct {
	TTL time.Duration // key lifetime, 0 means no expiration
}

// Stats is a point-in-time view of a storage
type Stats struct {
	Keys    int    // keys held, including expired ones nobody has read yet
	Expires int    // keys with a pending expiration
	Evicted uint64 // keys removed because a read found them expired
}

// Storage is a common interface for working with key-value storages
type Storage interface {
	// Get returns the value and true if the key is found and not expired. Otherwise, "", false.
	// An expired key is removed as a side effect
	Get(key string) (string, bool)

	// Set writes the value, replacing any previous value and expiration of the key
	Set(key, value string, options SetOptions)

	// Stats returns key counters
	Stats() Stats
}
