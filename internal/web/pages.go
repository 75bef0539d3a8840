package web

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	appLog "meno/internal/log"
	"meno/internal/model"
	"meno/internal/notify"
	"meno/internal/planner"
	"meno/internal/views"
)

// page is one planner screen. Filter is fixed for the per-type pages; the
// dashboard has no calendar or list.
type page struct {
	Path      string
	Title     string
	Nav       string
	Filter    model.Type
	Dashboard bool
}

var pages = []page{
	{Path: "/dashboard", Title: "Meno — Dashboard", Nav: "Dashboard", Dashboard: true},
	{Path: "/events", Title: "Meno — Events Calendar", Nav: "Events", Filter: model.TypeEvent},
	{Path: "/meals", Title: "Meno — Meal Planner", Nav: "Meals", Filter: model.TypeMeal},
	{Path: "/shopping", Title: "Meno — Shopping List", Nav: "Shopping", Filter: model.TypeShopping},
}

const supportPath = "/support"

// pageFor looks a return path up, defaulting to the events page so a
// forged form can never redirect off-site.
func pageFor(path string) page {
	for _, p := range pages {
		if p.Path == path {
			return p
		}
	}
	return pages[1]
}

type navLink struct {
	Path   string
	Label  string
	Active bool
}

func navFor(active string) []navLink {
	links := make([]navLink, 0, len(pages)+1)
	for _, p := range pages {
		links = append(links, navLink{Path: p.Path, Label: p.Nav, Active: p.Path == active})
	}
	return append(links, navLink{Path: supportPath, Label: "Support", Active: active == supportPath})
}

// pageVM is everything the layout and the fragments render from.
type pageVM struct {
	Title     string
	Path      string
	Nav       []navLink
	State     planner.ViewState
	Calendar  *views.Calendar
	List      *views.List
	Dashboard *views.Dashboard
	Toasts    []notify.Notice
	StreamURL string
	Types     []model.Type

	Support *supportVM
}

type supportVM struct {
	Name    string
	Email   string
	Message string
	Error   string
	Sent    bool
}

func (s *Server) buildPage(p page, st planner.ViewState) pageVM {
	doc := s.planner.Document()
	vm := pageVM{
		Title: p.Title,
		Path:  p.Path,
		Nav:   navFor(p.Path),
		State: st,
		Types: model.Types,
	}
	if p.Dashboard {
		d := views.BuildDashboard(doc, st.Today, st.Query)
		d.Quote = views.QuoteAt(time.Now())
		vm.Dashboard = &d
	} else {
		cal := views.BuildCalendar(doc, st)
		vm.Calendar = &cal
		list := views.BuildList(doc, st)
		vm.List = &list
	}
	vm.StreamURL = streamURL(p.Path, st)
	return vm
}

func streamURL(path string, st planner.ViewState) string {
	q := st.Values()
	q.Del("notice")
	q.Set("page", path)
	return "/sse/views?" + q.Encode()
}

func (s *Server) pageHandler(p page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.startSyncOnce()
		st := planner.ParseViewState(r.URL.Query(), s.planner.Today(), p.Filter)
		vm := s.buildPage(p, st)
		vm.Toasts = s.notices.Recent()
		s.writeHTML(w, http.StatusOK, "layout", vm)
	}
}

// startSyncOnce kicks the holiday sync off in the background the first
// time any page is served.
func (s *Server) startSyncOnce() {
	if s.sync == nil {
		return
	}
	s.syncOnce.Do(func() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if _, err := s.sync.Sync(ctx); err != nil {
				appLog.Debug("background sync ended", "err", err)
			}
		}()
	})
}

func (s *Server) handleSupport(w http.ResponseWriter, r *http.Request) {
	vm := pageVM{
		Title:   "Meno — Support",
		Path:    supportPath,
		Nav:     navFor(supportPath),
		Toasts:  s.notices.Recent(),
		Support: &supportVM{Sent: r.URL.Query().Get("notice") == "sent"},
	}
	s.writeHTML(w, http.StatusOK, "layout", vm)
}

func (s *Server) handleSupportPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sv := &supportVM{
		Name:    strings.TrimSpace(r.PostForm.Get("name")),
		Email:   strings.TrimSpace(r.PostForm.Get("email")),
		Message: strings.TrimSpace(r.PostForm.Get("message")),
	}
	if sv.Name == "" || sv.Email == "" || sv.Message == "" {
		sv.Error = "Please fill in all required fields"
		vm := pageVM{Title: "Meno — Support", Path: supportPath, Nav: navFor(supportPath), Support: sv}
		s.writeHTML(w, http.StatusBadRequest, "layout", vm)
		return
	}
	appLog.Info("support message received", "name", sv.Name, "email", sv.Email, "len", len(sv.Message))
	http.Redirect(w, r, supportPath+"?notice=sent", http.StatusSeeOther)
}

type hiddenField struct {
	Name  string
	Value string
}

var funcs = template.FuncMap{
	// link builds a whole href so the query is never re-escaped.
	"link": func(path string, st planner.ViewState) string {
		q := st.Values()
		q.Del("notice")
		if len(q) == 0 {
			return path
		}
		return path + "?" + q.Encode()
	},
	"startAdd": func(st planner.ViewState, t model.Type) planner.ViewState {
		return st.StartAdd(t)
	},
	"startEdit": func(st planner.ViewState, id string, t model.Type) planner.ViewState {
		return st.StartEdit(id, t)
	},
	"cancel": func(st planner.ViewState) planner.ViewState { return st.Cancel() },
	// hidden lists the state as form fields for POST round trips.
	"hidden": func(st planner.ViewState, skip ...string) []hiddenField {
		return fieldsOf(st.Values(), skip...)
	},
	"deg": func(f float64) string { return fmt.Sprintf("%.1fdeg", f) },
	"label": func(t model.Type) string {
		return t.Label()
	},
	"has": func(list []model.Type, t model.Type) bool {
		for _, x := range list {
			if x == t {
				return true
			}
		}
		return false
	},
	"quoteMillis": func() int64 { return views.QuoteInterval.Milliseconds() },
	"quotes":      views.Quotes,
	"toastClass":  toastClass,
}

func fieldsOf(q url.Values, skip ...string) []hiddenField {
	out := make([]hiddenField, 0, len(q))
	for _, k := range []string{"date", "month", "filter", "form", "type", "edit", "q"} {
		if slices.Contains(skip, k) {
			continue
		}
		if v := q.Get(k); v != "" {
			out = append(out, hiddenField{Name: k, Value: v})
		}
	}
	return out
}
