package holidays

import (
	"context"
	"time"
)

// Fallback is the built-in list used when every real source fails. Easter
// Monday is a fixed approximation.
type Fallback struct{}

func (Fallback) Name() string { return "fallback" }

func (Fallback) Entries(_ context.Context, from, _ time.Time) ([]Entry, error) {
	return FixedHolidays(from.Year()), nil
}

// FixedHolidays returns the fallback holidays for year.
func FixedHolidays(year int) []Entry {
	day := func(m time.Month, d int) time.Time { return time.Date(year, m, d, 0, 0, 0, 0, time.UTC) }
	entry := func(summary string, start time.Time) Entry {
		return Entry{Summary: summary, Start: allDay(start), End: allDay(start.AddDate(0, 0, 1))}
	}
	return []Entry{
		entry("New Year's Day", day(time.January, 1)),
		entry("Christmas Day", day(time.December, 25)),
		entry("Easter Monday", day(time.March, 21)),
	}
}
