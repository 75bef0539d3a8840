package planner

import (
	"encoding/json"
	"fmt"
	"sort"

	appLog "meno/internal/log"
	"meno/internal/model"
)

// MigrationResult reports what a migration run did.
type MigrationResult struct {
	// Skipped is true when the migration flag was already set.
	Skipped bool
	Meals   int
	Plans   int
}

type legacySource struct {
	key    string
	source model.Source
	typ    model.Type
}

var legacySources = []legacySource{
	{key: KeyLegacyMeals, source: model.SourceLegacyMeal, typ: model.TypeMeal},
	{key: KeyLegacyPlans, source: model.SourceLegacyPlan, typ: model.TypeShopping},
}

// Migrate folds the two legacy per-feature documents into the unified
// document, once. The migration flag gates it; legacy keys are left in
// place.
func Migrate(st *Store) (MigrationResult, error) {
	s := st.Storage()

	if _, done, err := s.Get(KeyMigratedFlag); err != nil {
		return MigrationResult{}, fmt.Errorf("migrate: read flag: %w", err)
	} else if done {
		return MigrationResult{Skipped: true}, nil
	}

	raws := make([]string, len(legacySources))
	found := false
	for i, ls := range legacySources {
		v, ok, err := s.Get(ls.key)
		if err != nil {
			return MigrationResult{}, fmt.Errorf("migrate: read %s: %w", ls.key, err)
		}
		if ok && v != "" {
			raws[i] = v
			found = true
		}
	}

	var res MigrationResult
	if found {
		doc := st.Read()
		for i, ls := range legacySources {
			if raws[i] == "" {
				continue
			}
			n := mergeLegacy(doc, raws[i], ls)
			if ls.typ == model.TypeMeal {
				res.Meals = n
			} else {
				res.Plans = n
			}
		}
		st.Write(doc)
	}

	if err := s.Set(KeyMigratedFlag, "1"); err != nil {
		return res, fmt.Errorf("migrate: set flag: %w", err)
	}
	if found {
		appLog.Info("legacy stores migrated (non-destructive)", "meals", res.Meals, "plans", res.Plans)
	}
	return res, nil
}

// mergeLegacy appends every record of one legacy document to doc and
// returns how many were added. A malformed document is logged and skipped.
func mergeLegacy(doc Document, raw string, ls legacySource) int {
	var days map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &days); err != nil || days == nil {
		if err == nil {
			err = fmt.Errorf("not an object")
		}
		appLog.Warn("legacy document unreadable; skipped", "key", ls.key, "err", err)
		return 0
	}

	added := 0
	for _, key := range sortedDayKeys(days) {
		var records []json.RawMessage
		if err := json.Unmarshal(days[key], &records); err != nil {
			// Not a list; nothing to import for this day.
			continue
		}
		doc.ensure(key)
		for _, rec := range records {
			it, err := normalizeLegacy(rec, key, ls)
			if err != nil {
				appLog.Warn("legacy record skipped", "key", ls.key, "date", key, "err", err)
				continue
			}
			doc[key] = append(doc[key], it)
			added++
		}
	}
	return added
}

// normalizeLegacy lays the record's own fields over the defaults, so any
// field the legacy record carries wins.
func normalizeLegacy(rec json.RawMessage, key string, ls legacySource) (model.Item, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rec, &fields); err != nil {
		return model.Item{}, err
	}
	if fields == nil {
		return model.Item{}, fmt.Errorf("null record")
	}

	title := "Untitled"
	for _, k := range []string{"title", "name"} {
		var s string
		if json.Unmarshal(fields[k], &s) == nil && s != "" {
			title = s
			break
		}
	}

	merged := map[string]any{
		"title":     title,
		"time":      "",
		"completed": false,
		"source":    string(ls.source),
		"date":      key,
		"type":      string(ls.typ),
	}
	for k, v := range fields {
		merged[k] = v
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return model.Item{}, err
	}
	var it model.Item
	if err := json.Unmarshal(data, &it); err != nil {
		return model.Item{}, err
	}
	if it.ID == "" {
		it.ID = model.NewID()
	}
	return it, nil
}

func sortedDayKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
