package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	appLog "meno/internal/log"
	"meno/internal/model"
	"meno/internal/notify"
	"meno/internal/planner"
)

// formState reads the posted view state and the page it came from.
func (s *Server) formState(w http.ResponseWriter, r *http.Request) (page, planner.ViewState, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return page{}, planner.ViewState{}, false
	}
	p := pageFor(r.PostForm.Get("page"))
	return p, planner.ParseViewState(r.PostForm, s.planner.Today(), p.Filter), true
}

// refFrom reads the row reference fields every item action posts.
func refFrom(r *http.Request) planner.Ref {
	return planner.Ref{
		ID:    r.PostForm.Get("id"),
		Index: parseIntDefault(r.PostForm.Get("index"), -1),
		Title: r.PostForm.Get("ref_title"),
	}
}

func redirectTo(w http.ResponseWriter, r *http.Request, p page, st planner.ViewState) {
	target := p.Path
	if q := st.Values(); len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	p, st, ok := s.formState(w, r)
	if !ok {
		return
	}
	if _, err := s.planner.Toggle(st.Selected, st.Filter, refFrom(r)); err != nil {
		s.logMutation("toggle", err)
	}
	redirectTo(w, r, p, st)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	p, st, ok := s.formState(w, r)
	if !ok {
		return
	}
	f := model.Fields{
		Title:    r.PostForm.Get("title"),
		Time:     r.PostForm.Get("time"),
		Period:   r.PostForm.Get("period"),
		Location: r.PostForm.Get("location"),
	}

	var (
		err    error
		notice string
	)
	if st.Form == planner.FormEditing {
		_, err = s.planner.Edit(st.Selected, st.Filter, planner.IDRef(st.EditID), st.ActiveType(), f)
		notice = "Item edited successfully!"
	} else {
		_, err = s.planner.Add(st.Selected, st.ActiveType(), f)
		notice = "Item added successfully!"
	}

	switch {
	case errors.Is(err, planner.ErrTitleRequired):
		if st.Form == planner.FormIdle {
			st = st.StartAdd(st.FormType)
		}
		st.Error = "Title required"
		vm := s.buildPage(p, st)
		vm.List.Form.Error = st.Error
		vm.List.Form.Title = f.Title
		vm.List.Form.Time = f.Time
		vm.List.Form.Period = f.Period
		vm.List.Form.Location = f.Location
		s.writeHTML(w, http.StatusUnprocessableEntity, "layout", vm)
		return
	case err != nil:
		s.logMutation("save", err)
		redirectTo(w, r, p, st.Cancel())
		return
	}

	s.notices.Push(notify.Success, notice)
	redirectTo(w, r, p, st.Saved(""))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	p, st, ok := s.formState(w, r)
	if !ok {
		return
	}
	if _, err := s.planner.Delete(st.Selected, st.Filter, refFrom(r)); err != nil {
		s.logMutation("delete", err)
	} else {
		s.notices.Push(notify.Delete, "Deleted Item!")
	}
	redirectTo(w, r, p, st.Cancel())
}

// handleReorder takes the new order as repeated "order" values of the
// form "<index>:<id>", as written by the list's drag handler.
func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	p, st, ok := s.formState(w, r)
	if !ok {
		return
	}
	order := make([]planner.Ref, 0, len(r.PostForm["order"]))
	for _, v := range r.PostForm["order"] {
		order = append(order, parseOrderRef(v))
	}
	if err := s.planner.Reorder(st.Selected, st.Filter, order); err != nil {
		s.logMutation("reorder", err)
	}
	redirectTo(w, r, p, st)
}

func parseOrderRef(v string) planner.Ref {
	idx, id, _ := strings.Cut(v, ":")
	return planner.Ref{ID: id, Index: parseIntDefault(idx, -1)}
}

func (s *Server) handleDashboardToggle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if t, ok := model.ParseType(r.PostForm.Get("type")); ok {
		ref := planner.Ref{ID: r.PostForm.Get("id"), Index: parseIntDefault(r.PostForm.Get("index"), -1)}
		if _, err := s.planner.ToggleToday(t, ref); err != nil {
			s.logMutation("dashboard toggle", err)
		}
	}
	target := "/dashboard"
	if q := strings.TrimSpace(r.PostForm.Get("q")); q != "" {
		target += "?q=" + url.QueryEscape(q)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	p, st, ok := s.formState(w, r)
	if !ok {
		return
	}
	if s.sync != nil {
		if _, err := s.sync.Sync(r.Context()); err != nil {
			appLog.Debug("sync request ended", "err", err)
		}
	}
	redirectTo(w, r, p, st)
}

// logMutation keeps unresolved references quiet; the view simply
// re-renders.
func (s *Server) logMutation(op string, err error) {
	if errors.Is(err, planner.ErrNotResolved) {
		appLog.Debug("mutation target not resolved", "op", op)
		return
	}
	appLog.Error("mutation failed", err, "op", op)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
