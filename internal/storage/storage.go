// Package storage provides the string key/value stores the planner persists
// into. Persistent storage (diskv or SQLite) plays the role of the browser's
// local storage; the in-memory backend plays session storage.
package storage

import (
	"errors"
	"fmt"
	"sort"
)

// ErrQuotaExceeded is returned by a quota-limited Storage when a Set would
// grow the stored bytes past the limit.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// Storage is a flat string key/value store.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	Keys() ([]string, error)
	Close() error
}

// Open opens a persistent backend by driver name.
func Open(driver, path string) (Storage, error) {
	switch driver {
	case "disk", "":
		return OpenDisk(path)
	case "sqlite":
		return OpenSQLite(path)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}

// quota wraps a Storage and caps the total size of stored values.
type quota struct {
	Storage
	max int
}

// WithQuota limits the combined length of all values to max bytes.
// A max of zero or less returns s unchanged.
func WithQuota(s Storage, max int) Storage {
	if max <= 0 {
		return s
	}
	return &quota{Storage: s, max: max}
}

func (q *quota) Set(key, value string) error {
	keys, err := q.Keys()
	if err != nil {
		return err
	}
	total := len(value)
	for _, k := range keys {
		if k == key {
			continue
		}
		v, ok, err := q.Get(k)
		if err != nil {
			return err
		}
		if ok {
			total += len(v)
		}
	}
	if total > q.max {
		return fmt.Errorf("%w: %d > %d bytes", ErrQuotaExceeded, total, q.max)
	}
	return q.Storage.Set(key, value)
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
