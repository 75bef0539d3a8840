// Package views derives what each screen shows from the document and a
// view state. Builders are pure: they never touch storage.
package views

import (
	"time"

	"meno/internal/model"
	"meno/internal/planner"
)

// Cell is one day of the month grid.
type Cell struct {
	Day      int
	Key      string
	Active   bool
	Today    bool
	Selected bool
	// Indicators lists each type present that day, in model.Types order.
	Indicators []model.Type
	// State selects this day when followed.
	State planner.ViewState
}

type Calendar struct {
	Label string
	// Blanks is the number of empty leading cells; weeks start on Sunday.
	Blanks []struct{}
	Cells  []Cell
	Prev   planner.ViewState
	Next   planner.ViewState
}

// BuildCalendar lays out the month shown by v.
func BuildCalendar(doc planner.Document, v planner.ViewState) Calendar {
	first := time.Date(v.Month.Year(), v.Month.Month(), 1, 0, 0, 0, 0, v.Month.Location())
	days := daysIn(first)
	todayKey := planner.DateKey(v.Today)

	cal := Calendar{
		Label:  first.Format("January 2006"),
		Blanks: make([]struct{}, int(first.Weekday())),
		Cells:  make([]Cell, 0, days),
		Prev:   v.PrevMonth(),
		Next:   v.NextMonth(),
	}

	for d := 1; d <= days; d++ {
		date := first.AddDate(0, 0, d-1)
		key := planner.DateKey(date)
		items := planner.ItemsForDate(doc, key)

		c := Cell{
			Day:        d,
			Key:        key,
			Active:     len(items) > 0,
			Today:      key == todayKey,
			Selected:   key == v.Selected,
			Indicators: indicators(items),
			State:      v.Cancel().SelectDate(date),
		}
		c.State.Query = v.Query
		cal.Cells = append(cal.Cells, c)
	}
	return cal
}

func daysIn(first time.Time) int {
	return first.AddDate(0, 1, -1).Day()
}

func indicators(items []model.Item) []model.Type {
	present := make(map[model.Type]bool, len(model.Types))
	for _, it := range items {
		present[it.Type()] = true
	}
	out := make([]model.Type, 0, len(present))
	for _, t := range model.Types {
		if present[t] {
			out = append(out, t)
		}
	}
	return out
}
