package planner

import (
	"encoding/json"

	appLog "meno/internal/log"
	"meno/internal/model"
	"meno/internal/storage"
)

// Persisted keys.
const (
	KeyEvents       = "meno_events"
	KeyLegacyMeals  = "meno_meals"
	KeyLegacyPlans  = "meno_plans"
	KeyMigratedFlag = "meno_events_migrated_v1"
	KeySyncedFlag   = "meno_google_synced_v1"
)

// Store reads and writes the whole Event Store Document under one key.
// Failures are absorbed here: a corrupt document reads as empty and a
// failed write is dropped. Both are logged.
type Store struct {
	s storage.Storage
}

func NewStore(s storage.Storage) *Store {
	return &Store{s: s}
}

// Storage exposes the backing key/value store (migration reads the legacy
// keys from it).
func (st *Store) Storage() storage.Storage {
	return st.s
}

// Read returns the persisted document, or an empty one when absent or
// unreadable.
func (st *Store) Read() Document {
	raw, ok, err := st.s.Get(KeyEvents)
	if err != nil {
		appLog.Error("store read failed", err, "key", KeyEvents)
		return Document{}
	}
	if !ok || raw == "" {
		return Document{}
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		appLog.Error("store document corrupt; treating as empty", err, "key", KeyEvents, "bytes", len(raw))
		return Document{}
	}
	if doc == nil {
		return Document{}
	}
	for k, v := range doc {
		if v == nil {
			doc[k] = []model.Item{}
		}
	}
	return doc
}

// Write persists doc. It reports whether the write landed; callers that
// only care about the in-memory result may ignore it.
func (st *Store) Write(doc Document) bool {
	if doc == nil {
		doc = Document{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		appLog.Error("store encode failed", err, "key", KeyEvents)
		return false
	}
	if err := st.s.Set(KeyEvents, string(data)); err != nil {
		appLog.Error("store write failed; change not persisted", err, "key", KeyEvents, "bytes", len(data))
		return false
	}
	return true
}

// Clear removes the whole document. Development use only.
func (st *Store) Clear() bool {
	_, existed, _ := st.s.Get(KeyEvents)
	if err := st.s.Remove(KeyEvents); err != nil {
		appLog.Error("store clear failed", err, "key", KeyEvents)
		return false
	}
	return existed
}

// ClearAll removes the document, both legacy documents and the migration
// flag, so the next start migrates again.
func (st *Store) ClearAll() bool {
	existed := st.Clear()
	for _, k := range []string{KeyLegacyMeals, KeyLegacyPlans, KeyMigratedFlag} {
		if err := st.s.Remove(k); err != nil {
			appLog.Error("store clear failed", err, "key", k)
		}
	}
	return existed
}
