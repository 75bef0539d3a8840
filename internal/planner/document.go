// Package planner is the unified event store: a date-keyed document of
// items, the rules for resolving view rows back to records, and the
// mutations every view funnels through.
package planner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"meno/internal/model"
)

// Document maps a date key to that day's ordered items.
type Document map[string][]model.Item

// DateKey formats t as YEAR-MONTH-DAY with 1-based, unpadded month and day.
// Every view joins on this key.
func DateKey(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}

// ParseDateKey parses a key produced by DateKey into midnight in loc.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(key, "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("date key %q: want YEAR-MONTH-DAY", key)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("date key %q: %w", key, err)
		}
		nums[i] = n
	}
	if loc == nil {
		loc = time.Local
	}
	t := time.Date(nums[0], time.Month(nums[1]), nums[2], 0, 0, 0, 0, loc)
	if DateKey(t) != key {
		return time.Time{}, errors.New("date key " + strconv.Quote(key) + ": not a calendar date")
	}
	return t, nil
}

// ItemsForDate returns the stored sequence for key, or an empty one.
func ItemsForDate(doc Document, key string) []model.Item {
	if items, ok := doc[key]; ok && items != nil {
		return items
	}
	return []model.Item{}
}

// Matches reports whether it passes filter. The empty filter matches all.
func Matches(it model.Item, filter model.Type) bool {
	return filter == "" || it.Type() == filter
}

// FilterByType keeps items of the given type, preserving order.
func FilterByType(items []model.Item, filter model.Type) []model.Item {
	if filter == "" {
		return items
	}
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if Matches(it, filter) {
			out = append(out, it)
		}
	}
	return out
}

// FilterIndices returns the positions in items that pass filter, in order.
// Position i of the filtered view is items[FilterIndices(...)[i]].
func FilterIndices(items []model.Item, filter model.Type) []int {
	out := make([]int, 0, len(items))
	for i, it := range items {
		if Matches(it, filter) {
			out = append(out, i)
		}
	}
	return out
}

// ensure creates the sequence for key on first write.
func (d Document) ensure(key string) []model.Item {
	if d[key] == nil {
		d[key] = []model.Item{}
	}
	return d[key]
}

// Keys returns the date keys holding at least one item.
func (d Document) Keys() []string {
	out := make([]string, 0, len(d))
	for k, v := range d {
		if len(v) > 0 {
			out = append(out, k)
		}
	}
	return out
}
