// Package holidays serves the external calendar proxy: a year of public
// holidays and events from the first provider that answers.
package holidays

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured marks a provider that has nothing to ask.
var ErrNotConfigured = errors.New("holidays: provider not configured")

// Date is the start or end of an Entry. Exactly one field is set: Date for
// all-day entries (YYYY-MM-DD), DateTime (RFC 3339) otherwise.
type Date struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
}

// Entry is one calendar entry in the Google Calendar v3 shape.
type Entry struct {
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Start       Date   `json:"start"`
	End         Date   `json:"end"`
}

// Response is the proxy's JSON body.
type Response struct {
	Success bool    `json:"success"`
	Items   []Entry `json:"items,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Provider lists the entries between from and to.
type Provider interface {
	Name() string
	Entries(ctx context.Context, from, to time.Time) ([]Entry, error)
}

// YearWindow is the proxy's query window: Jan 1 00:00 through Dec 31
// 23:59:59 of t's year, in t's zone.
func YearWindow(t time.Time) (from, to time.Time) {
	from = time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	to = time.Date(t.Year(), time.December, 31, 23, 59, 59, 0, t.Location())
	return from, to
}

func allDay(d time.Time) Date {
	return Date{Date: d.Format("2006-01-02")}
}
