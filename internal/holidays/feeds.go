package holidays

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meno/internal/ics"
)

// Feeds reads holidays from iCalendar subscriptions.
type Feeds struct {
	fetcher *ics.Fetcher
	feeds   []ics.Feed
}

func NewFeeds(fetcher *ics.Fetcher, feeds []ics.Feed) *Feeds {
	return &Feeds{fetcher: fetcher, feeds: feeds}
}

func (f *Feeds) Name() string { return "ics" }

// Entries fails only when no feed produced a usable calendar.
func (f *Feeds) Entries(ctx context.Context, from, to time.Time) ([]Entry, error) {
	if len(f.feeds) == 0 {
		return nil, ErrNotConfigured
	}

	bodies, errs := f.fetcher.FetchAll(ctx, f.feeds)
	var events []ics.Event
	parsed := 0
	for _, b := range bodies {
		evs, err := ics.Parse(b.Feed, b.Data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Feed.ID, err))
			continue
		}
		parsed++
		events = append(events, evs...)
	}
	if parsed == 0 {
		return nil, fmt.Errorf("ics feeds: %w", errors.Join(errs...))
	}

	occ := ics.Expand(events, ics.Window{From: from, To: to, Loc: from.Location()})
	out := make([]Entry, 0, len(occ))
	for _, o := range occ {
		out = append(out, toEntry(o))
	}
	return out, nil
}

func toEntry(o ics.Occurrence) Entry {
	e := Entry{Summary: o.Summary, Description: o.Description}
	if o.AllDay {
		e.Start, e.End = allDay(o.Start), allDay(o.End)
		return e
	}
	e.Start = Date{DateTime: o.Start.Format(time.RFC3339)}
	e.End = Date{DateTime: o.End.Format(time.RFC3339)}
	return e
}
