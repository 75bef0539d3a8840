package views

import (
	"fmt"
	"strings"

	"meno/internal/model"
	"meno/internal/planner"
)

// Row is one rendered list item. ID and Index travel back with every
// action so the planner can resolve the record.
type Row struct {
	ID        string
	Index     int
	Type      model.Type
	Title     string
	Detail    string
	Completed bool
	Hidden    bool
}

// Form is the add/edit form model.
type Form struct {
	Mode     planner.FormMode
	Type     model.Type
	Heading  string
	EditID   string
	Title    string
	Time     string
	Period   string
	Location string
	Error    string
}

func (f Form) Open() bool { return f.Mode != planner.FormIdle }

type List struct {
	DateKey   string
	DateLabel string
	Filter    model.Type
	Rows      []Row
	// Placeholder is shown when no row is visible.
	Placeholder     string
	ShowPlaceholder bool
	Form            Form
	State           planner.ViewState
}

// BuildList renders the selected day's items under the active filter.
func BuildList(doc planner.Document, v planner.ViewState) List {
	items := planner.ItemsForDate(doc, v.Selected)
	idx := planner.FilterIndices(items, v.Filter)
	q := strings.TrimSpace(v.Query)

	l := List{
		DateKey:   v.Selected,
		DateLabel: v.SelectedTime().Format("Jan 2, 2006"),
		Filter:    v.Filter,
		Rows:      make([]Row, 0, len(idx)),
		Form:      buildForm(items, v),
		State:     v,
	}

	visible := 0
	for fi, i := range idx {
		it := items[i]
		r := Row{
			ID:        it.ID,
			Index:     fi,
			Type:      it.Type(),
			Title:     it.Title,
			Detail:    detail(it),
			Completed: it.Completed,
		}
		r.Hidden = !MatchesQuery(it.Text(), q)
		if !r.Hidden {
			visible++
		}
		l.Rows = append(l.Rows, r)
	}

	noun := "items"
	if v.Filter != "" {
		noun = string(v.Filter)
	}
	switch {
	case len(l.Rows) == 0:
		l.Placeholder = fmt.Sprintf("No %s for this date", noun)
		l.ShowPlaceholder = true
	case visible == 0:
		l.Placeholder = fmt.Sprintf("No %s match %q", noun, q)
		l.ShowPlaceholder = true
	}
	return l
}

// MatchesQuery reports whether text contains q, ignoring case. The empty
// query matches everything.
func MatchesQuery(text, q string) bool {
	q = strings.TrimSpace(q)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(q))
}

func detail(it model.Item) string {
	switch it.Type() {
	case model.TypeMeal:
		return it.Period()
	case model.TypeShopping:
		return strings.TrimSpace(it.Location() + " " + it.Time())
	default:
		return it.Time()
	}
}

func buildForm(items []model.Item, v planner.ViewState) Form {
	f := Form{Mode: v.Form, Type: v.ActiveType(), Error: v.Error}
	switch v.Form {
	case planner.FormAdding:
		f.Heading = "Add Item"
	case planner.FormEditing:
		i := planner.Resolve(items, "", planner.IDRef(v.EditID))
		if i < 0 {
			return Form{Mode: planner.FormIdle}
		}
		it := items[i]
		f.Heading = "Edit Item"
		f.EditID = it.ID
		f.Type = it.Type()
		f.Title = it.Title
		f.Time = it.Time()
		f.Period = it.Period()
		f.Location = it.Location()
	}
	return f
}
