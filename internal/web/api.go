package web

import (
	"net/http"

	"meno/internal/holidays"
	appLog "meno/internal/log"
)

// handleGoogleEvents serves the holiday window through the proxy cache.
func (s *Server) handleGoogleEvents(w http.ResponseWriter, r *http.Request) {
	if s.proxy == nil {
		writeJSON(w, http.StatusInternalServerError, holidays.Response{Error: "holiday proxy not configured"})
		return
	}
	resp, err := s.proxy.Fetch(r.Context())
	if err != nil {
		appLog.Error("holiday proxy fetch failed", err)
		writeJSON(w, http.StatusInternalServerError, holidays.Response{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type clearResponse struct {
	Scope   string `json:"scope"`
	Existed bool   `json:"existed"`
}

// handleDevClear wipes the unified document ("events") or every planner
// key ("all"). Registered only in dev mode.
func (s *Server) handleDevClear(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = "events"
	}
	if scope != "events" && scope != "all" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scope must be events or all"})
		return
	}
	existed := s.planner.ClearEvents(scope == "all")
	if existed {
		appLog.Info("planner store cleared", "scope", scope)
	} else {
		appLog.Info("planner store was already empty", "scope", scope)
	}
	writeJSON(w, http.StatusOK, clearResponse{Scope: scope, Existed: existed})
}
