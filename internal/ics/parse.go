package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "meno/internal/log"
)

// Event is one VEVENT. Recurrence is recorded, not expanded.
type Event struct {
	Feed        string
	UID         string
	Summary     string
	Description string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule   string
	ExDates []time.Time
	// RecurrenceID is set on an override of one recurring instance.
	RecurrenceID *time.Time
}

// Parse decodes an iCalendar payload. A malformed VEVENT is logged and
// skipped; a malformed calendar is an error.
func Parse(feed Feed, data []byte) ([]Event, error) {
	if len(data) == 0 {
		return nil, errors.New("empty ICS body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var out []Event
	for _, ve := range cal.Events() {
		ev, err := parseEvent(feed, ve)
		if err != nil {
			appLog.Warn("ics event skipped", "id", feed.ID, "err", err)
			continue
		}
		out = append(out, ev)
	}
	appLog.Debug("ics parsed", "id", feed.ID, "events", len(out))
	return out, nil
}

func parseEvent(feed Feed, ve *ical.VEvent) (Event, error) {
	ev := Event{Feed: feed.ID}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return ev, errors.New("missing UID")
	}
	ev.UID = uid.Value
	ev.Summary = propValue(ve, ical.ComponentPropertySummary)
	ev.Description = propValue(ve, ical.ComponentPropertyDescription)

	start, err := ve.GetStartAt()
	if err != nil {
		return ev, err
	}
	ev.Start = start
	if end, err := ve.GetEndAt(); err == nil {
		ev.End = end
	}

	if dt := ve.GetProperty(ical.ComponentPropertyDtStart); dt != nil {
		ev.AllDay = !strings.Contains(dt.Value, "T")
		if vs := dt.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			ev.AllDay = true
		}
	}
	if ev.AllDay {
		ev.Start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		ev.End = time.Date(ev.End.Year(), ev.End.Month(), ev.End.Day(), 0, 0, 0, 0, time.UTC)
	}
	if !ev.End.After(ev.Start) {
		if ev.AllDay {
			ev.End = ev.Start.AddDate(0, 0, 1)
		} else {
			ev.End = ev.Start
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseStamp(part, ev.AllDay); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parseStamp(p.Value, ev.AllDay); err == nil {
			ev.RecurrenceID = &t
		}
	}
	return ev, nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}

// parseStamp reads the bare DATE and DATE-TIME forms used by EXDATE and
// RECURRENCE-ID. All-day stamps are pinned to UTC midnight like Start.
func parseStamp(v string, allDay bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, time.Local)
	case allDay:
		return time.Parse("20060102", v)
	default:
		return time.ParseInLocation("20060102", v, time.Local)
	}
}
