package views

import (
	"math"
	"time"

	"meno/internal/model"
	"meno/internal/planner"
)

// Dial angles in degrees for 0%, 50% and 100%.
const (
	dialStart = -225.0
	dialMid   = -135.0
	dialEnd   = -45.0
)

// QuoteInterval is how long one quote stays up.
const QuoteInterval = 6 * time.Second

var quotes = []string{
	"Today is your fresh start.",
	"Small steps lead to big change.",
	"You are building your future.",
	"Stay consistent. Results follow.",
	"Every day is progress.",
}

type Stat struct {
	Type  model.Type
	Label string
	Done  int
	Total int
}

type TableRow struct {
	ID        string
	Index     int
	Title     string
	Cells     []string
	Completed bool
	Hidden    bool
}

type Table struct {
	Type    model.Type
	Label   string
	Columns []string
	Rows    []TableRow
	// Span is the placeholder row's colspan.
	Span            int
	Placeholder     string
	ShowPlaceholder bool
}

type Dashboard struct {
	DateKey  string
	Stats    []Stat
	Done     int
	Total    int
	Percent  int
	Rotation float64
	Tables   []Table
	Query    string
	Quote    string
}

// BuildDashboard summarizes today's items. Other days never count.
func BuildDashboard(doc planner.Document, today time.Time, query string) Dashboard {
	key := planner.DateKey(today)
	items := planner.ItemsForDate(doc, key)

	d := Dashboard{DateKey: key, Query: query, Quote: QuoteAt(today)}
	for _, t := range model.Types {
		st := Stat{Type: t, Label: t.Label()}
		tbl := newTable(t)
		for fi, it := range planner.FilterByType(items, t) {
			st.Total++
			if it.Completed {
				st.Done++
			}
			row := TableRow{
				ID:        it.ID,
				Index:     fi,
				Title:     it.Title,
				Cells:     tableCells(it),
				Completed: it.Completed,
			}
			if row.Title == "" {
				row.Title = "Untitled"
			}
			row.Hidden = !MatchesQuery(it.Text(), query)
			tbl.Rows = append(tbl.Rows, row)
		}
		tbl.placeholder(query)

		d.Done += st.Done
		d.Total += st.Total
		d.Stats = append(d.Stats, st)
		d.Tables = append(d.Tables, tbl)
	}
	d.Percent = Percentage(d.Done, d.Total)
	d.Rotation = Rotation(float64(d.Percent))
	return d
}

// Percentage is round(100*done/total), or 0 with nothing to do.
func Percentage(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

// Rotation maps a percentage onto the progress dial, piecewise over the
// two halves.
func Rotation(p float64) float64 {
	p = math.Max(0, math.Min(100, p))
	if p <= 50 {
		return dialStart + (dialMid-dialStart)*(p/50)
	}
	return dialMid + (dialEnd-dialMid)*((p-50)/50)
}

// Quotes returns the rotation, in order.
func Quotes() []string {
	return append([]string(nil), quotes...)
}

// QuoteAt picks the motivational quote showing at t.
func QuoteAt(t time.Time) string {
	n := t.UnixNano() / int64(QuoteInterval)
	if n < 0 {
		n = -n
	}
	return quotes[n%int64(len(quotes))]
}

func newTable(t model.Type) Table {
	tbl := Table{Type: t, Label: t.Label()}
	switch t {
	case model.TypeMeal:
		tbl.Columns = []string{"Meal", "Period", "Done"}
		tbl.Span = 3
	case model.TypeShopping:
		tbl.Columns = []string{"Item", "Location", "Time", "Done"}
		tbl.Span = 4
	default:
		tbl.Columns = []string{"Event", "Time", "Done"}
		tbl.Span = 3
	}
	return tbl
}

func tableCells(it model.Item) []string {
	switch it.Type() {
	case model.TypeMeal:
		return []string{it.Period()}
	case model.TypeShopping:
		return []string{it.Location(), it.Time()}
	default:
		return []string{it.Time()}
	}
}

func (t *Table) placeholder(query string) {
	if len(t.Rows) == 0 {
		t.Placeholder = "No items for today"
		t.ShowPlaceholder = true
		return
	}
	if MatchesQuery("", query) {
		return
	}
	for _, r := range t.Rows {
		if !r.Hidden {
			return
		}
	}
	t.Placeholder = "No results"
	t.ShowPlaceholder = true
}
