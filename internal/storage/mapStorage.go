package storage

import (
	"sync"
	"time"
)

// MapStorage is a thread-safe key-value storage with lazy expiration.
// One mutex guards the values and the expiry index together
type MapStorage struct {
	data    map[string]string // key - value
	expires *expiryIndex      // key - expires time nanoseconds
	evicted uint64
	now     func() time.Time
	mu      sync.Mutex
}

// NewMapStorage creates a new instance of MapStorage.
func NewMapStorage() *MapStorage {
	return &MapStorage{
		data:    make(map[string]string),
		expires: newExpiryIndex(),
		now:     time.Now,
	}
}

// Get returns the value and true if the key is found. Otherwise, "", false
func (m *MapStorage) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	val, ok := m.data[key]
	if !ok {
		return "", false
	}

	if exp, hasExp := m.expires.deadline(key); hasExp && m.now().UnixNano() > exp {
		delete(m.data, key)
		m.expires.cancel(key)
		m.evicted++
		return "", false
	}

	return val, true
}

// Set writes the value. A TTL replaces the previous expiration, no TTL removes it
func (m *MapStorage) Set(key, value string, options SetOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value

	if options.TTL > 0 {
		m.expires.schedule(key, m.now().Add(options.TTL).UnixNano())
	} else {
		// deleting the expiration date if it was earlier
		m.expires.cancel(key)
	}
}

// Stats returns key counters
func (m *MapStorage) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		Keys:    len(m.data),
		Expires: m.expires.len(),
		Evicted: m.evicted,
	}
}
