package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	appLog "meno/internal/log"
	"meno/internal/notify"
	"meno/internal/planner"
)

const keepaliveInterval = 25 * time.Second

// fragment is a page region re-rendered after a change.
type fragment struct {
	id   string
	tmpl string
	on   func(pageVM) bool
}

var fragments = []fragment{
	{id: "calendar", tmpl: "calendar", on: func(vm pageVM) bool { return vm.Calendar != nil }},
	{id: "item-list", tmpl: "list", on: func(vm pageVM) bool { return vm.List != nil }},
	{id: "dashboard", tmpl: "dashboard", on: func(vm pageVM) bool { return vm.Dashboard != nil }},
}

// handleViewStream keeps a page live: every committed change re-renders
// the page's regions and every new notice is appended as a toast.
func (s *Server) handleViewStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := pageFor(q.Get("page"))

	changes, cancelChanges := s.planner.Subscribe()
	defer cancelChanges()
	toasts, cancelToasts := s.notices.Subscribe()
	defer cancelToasts()

	sse := datastar.NewSSE(w, r)
	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepalive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case _, ok := <-changes:
			if !ok {
				return
			}
			st := planner.ParseViewState(q, s.planner.Today(), p.Filter)
			if err := s.patchViews(sse, p, st); err != nil {
				appLog.Error("view stream render failed", err, "page", p.Path)
				_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
			}
		case n, ok := <-toasts:
			if !ok {
				return
			}
			html, err := s.render("toast", n)
			if err != nil {
				appLog.Error("toast render failed", err)
				continue
			}
			_ = sse.PatchElements(html,
				datastar.WithSelector("#toastContainer"),
				datastar.WithMode(datastar.ElementPatchModeAppend))
		}
	}
}

func (s *Server) patchViews(sse *datastar.ServerSentEventGenerator, p page, st planner.ViewState) error {
	vm := s.buildPage(p, st)
	for _, f := range fragments {
		if !f.on(vm) {
			continue
		}
		html, err := s.render(f.tmpl, vm)
		if err != nil {
			return err
		}
		if err := sse.PatchElements(html,
			datastar.WithSelector("#"+f.id),
			datastar.WithMode(datastar.ElementPatchModeOuter)); err != nil {
			return err
		}
	}
	return nil
}

// toastClass maps a notice kind onto its stylesheet class.
func toastClass(k notify.Kind) string {
	switch k {
	case notify.Error:
		return "toast toast-error"
	case notify.Loading:
		return "toast toast-loading"
	case notify.Delete:
		return "toast toast-delete"
	default:
		return "toast toast-success"
	}
}
