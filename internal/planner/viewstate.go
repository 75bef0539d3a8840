package planner

import (
	"net/url"
	"time"

	"meno/internal/model"
)

// FormMode is the add/edit form state.
type FormMode string

const (
	FormIdle    FormMode = ""
	FormAdding  FormMode = "add"
	FormEditing FormMode = "edit"
)

// ViewState is the transient state of one planner page: which month is on
// screen, which day is selected, the list filter, the form and the search
// query. It never holds item data. Transitions return a new value.
type ViewState struct {
	Today time.Time
	// Month is the first day of the displayed month.
	Month    time.Time
	Selected string
	Filter   model.Type

	Form     FormMode
	FormType model.Type
	EditID   string

	Query  string
	Notice string
	Error  string
}

// NewViewState opens on today with the given list filter.
func NewViewState(today time.Time, filter model.Type) ViewState {
	v := ViewState{Today: today, Filter: filter}
	return v.SelectDate(today)
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// SelectDate selects t and shows its month.
func (v ViewState) SelectDate(t time.Time) ViewState {
	v.Selected = DateKey(t)
	v.Month = firstOfMonth(t)
	return v
}

// SelectedTime parses Selected back into a date, falling back to Today.
func (v ViewState) SelectedTime() time.Time {
	t, err := ParseDateKey(v.Selected, v.Today.Location())
	if err != nil {
		return v.Today
	}
	return t
}

func (v ViewState) PrevMonth() ViewState { return v.shiftMonth(-1) }
func (v ViewState) NextMonth() ViewState { return v.shiftMonth(1) }

// shiftMonth moves the displayed month and re-selects today when the new
// month contains it, else its first day. The filter is kept and any open
// form is closed, as with a day click.
func (v ViewState) shiftMonth(delta int) ViewState {
	v = v.Cancel()
	m := firstOfMonth(v.Month).AddDate(0, delta, 0)
	if m.Year() == v.Today.Year() && m.Month() == v.Today.Month() {
		return v.SelectDate(v.Today)
	}
	return v.SelectDate(m)
}

// StartAdd opens an empty form, optionally preset to a type.
func (v ViewState) StartAdd(preset model.Type) ViewState {
	v.Form = FormAdding
	v.FormType = preset
	v.EditID = ""
	return v
}

// StartEdit opens the form on the item with the given id.
func (v ViewState) StartEdit(id string, t model.Type) ViewState {
	v.Form = FormEditing
	v.FormType = t
	v.EditID = id
	return v
}

// Cancel closes the form without persisting anything.
func (v ViewState) Cancel() ViewState {
	v.Form = FormIdle
	v.FormType = ""
	v.EditID = ""
	v.Error = ""
	return v
}

// Saved closes the form after a successful save and carries the notice
// for the next render.
func (v ViewState) Saved(notice string) ViewState {
	v = v.Cancel()
	v.Notice = notice
	return v
}

// ActiveType is the variant a save would produce: the form preset, then
// the list filter, then event.
func (v ViewState) ActiveType() model.Type {
	if v.FormType != "" {
		return v.FormType
	}
	if v.Filter != "" {
		return v.Filter
	}
	return model.TypeEvent
}

// Values encodes the state for a URL. Today and Error are not carried.
func (v ViewState) Values() url.Values {
	q := url.Values{}
	if v.Selected != "" {
		q.Set("date", v.Selected)
	}
	if !v.Month.IsZero() && (v.Month.Year() != v.SelectedTime().Year() || v.Month.Month() != v.SelectedTime().Month()) {
		q.Set("month", DateKey(v.Month))
	}
	if v.Filter != "" {
		q.Set("filter", string(v.Filter))
	}
	if v.Form != FormIdle {
		q.Set("form", string(v.Form))
	}
	if v.FormType != "" {
		q.Set("type", string(v.FormType))
	}
	if v.EditID != "" {
		q.Set("edit", v.EditID)
	}
	if v.Query != "" {
		q.Set("q", v.Query)
	}
	if v.Notice != "" {
		q.Set("notice", v.Notice)
	}
	return q
}

// ParseViewState decodes URL values. A page-fixed filter (the meals page
// always lists meals) wins over the query.
func ParseViewState(q url.Values, today time.Time, pageFilter model.Type) ViewState {
	filter := pageFilter
	if filter == "" {
		filter, _ = model.ParseType(q.Get("filter"))
	}
	v := NewViewState(today, filter)

	if t, err := ParseDateKey(q.Get("date"), today.Location()); err == nil {
		v = v.SelectDate(t)
	}
	if m, err := ParseDateKey(q.Get("month"), today.Location()); err == nil {
		v.Month = firstOfMonth(m)
	}

	switch FormMode(q.Get("form")) {
	case FormAdding:
		preset, _ := model.ParseType(q.Get("type"))
		v = v.StartAdd(preset)
	case FormEditing:
		if id := q.Get("edit"); id != "" {
			t, _ := model.ParseType(q.Get("type"))
			v = v.StartEdit(id, t)
		}
	}

	v.Query = q.Get("q")
	v.Notice = q.Get("notice")
	return v
}
