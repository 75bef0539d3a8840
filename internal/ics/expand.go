package ics

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "meno/internal/log"
)

const defaultOccurrenceCap = 1000

// Window bounds an expansion. Timed occurrences are converted to Loc;
// all-day ones keep their calendar date.
type Window struct {
	From time.Time
	To   time.Time
	Loc  *time.Location
	// Cap limits occurrences per event.
	Cap int
}

// Occurrence is one concrete instance of an Event.
type Occurrence struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// Expand turns events into occurrences inside w, applying EXDATEs and
// RECURRENCE-ID overrides. The result is sorted by start.
func Expand(events []Event, w Window) []Occurrence {
	if w.Loc == nil {
		w.Loc = time.Local
	}
	if w.Cap <= 0 {
		w.Cap = defaultOccurrenceCap
	}

	overrides := make(map[string][]Event)
	var bases []Event
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	var out []Occurrence
	for _, ev := range bases {
		out = append(out, expandOne(ev, overrides[ev.UID], w)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func expandOne(ev Event, overrides []Event, w Window) []Occurrence {
	if ev.RRule == "" {
		if !overlaps(ev.Start, ev.End, w.From, w.To) {
			return nil
		}
		return []Occurrence{occurrence(pick(ev, overrides, ev.Start), w.Loc)}
	}

	rule, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		appLog.Warn("ics rrule unreadable; event skipped", "uid", ev.UID, "rrule", ev.RRule, "err", err)
		return nil
	}
	rule.DTStart(ev.Start)

	set := &rrule.Set{}
	set.RRule(rule)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	starts := set.Between(w.From.In(loc), w.To.In(loc), true)
	if len(starts) > w.Cap {
		appLog.Warn("ics occurrences truncated", "uid", ev.UID, "cap", w.Cap)
		starts = starts[:w.Cap]
	}

	span := ev.End.Sub(ev.Start)
	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		inst := ev
		inst.Start = s
		inst.End = s.Add(span)
		out = append(out, occurrence(pick(inst, overrides, s), w.Loc))
	}
	return out
}

// pick returns the override replacing the instance starting at s, or inst.
func pick(inst Event, overrides []Event, s time.Time) Event {
	for _, o := range overrides {
		if o.RecurrenceID.Equal(s) {
			return o
		}
	}
	return inst
}

func occurrence(ev Event, loc *time.Location) Occurrence {
	o := Occurrence{
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       ev.Start,
		End:         ev.End,
		AllDay:      ev.AllDay,
	}
	if !ev.AllDay {
		o.Start = o.Start.In(loc)
		o.End = o.End.In(loc)
	}
	return o
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
