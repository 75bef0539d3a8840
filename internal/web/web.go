package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"meno/internal/calsync"
	"meno/internal/config"
	"meno/internal/holidays"
	appLog "meno/internal/log"
	"meno/internal/notify"
	"meno/internal/planner"
)

//go:embed templates/*.html static/*
var assetsFS embed.FS

// Deps are the collaborators a Server renders and mutates through.
type Deps struct {
	Config  *config.Config
	Planner *planner.Planner
	Proxy   *holidays.Proxy
	// Sync is started in the background on the first page load; nil
	// disables it.
	Sync    *calsync.Adapter
	Notices *notify.Center
}

// Server serves the planner pages, the mutation endpoints, the view
// stream and the holiday proxy.
type Server struct {
	cfg     *config.Config
	planner *planner.Planner
	proxy   *holidays.Proxy
	sync    *calsync.Adapter
	notices *notify.Center

	tmpl *template.Template
	mux  *http.ServeMux

	syncOnce sync.Once
}

func NewServer(d Deps) (*Server, error) {
	if d.Config == nil || d.Planner == nil {
		return nil, errors.New("web: config and planner are required")
	}
	if d.Notices == nil {
		d.Notices = notify.NewCenter()
	}
	tmpl, err := template.New("base").Funcs(funcs).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:     d.Config,
		planner: d.Planner,
		proxy:   d.Proxy,
		sync:    d.Sync,
		notices: d.Notices,
		tmpl:    tmpl,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the routes, behind basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully. Open view streams end with ctx.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "dev", s.cfg.Dev)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("HTTP server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})
	for _, p := range pages {
		s.mux.HandleFunc("GET "+p.Path, s.pageHandler(p))
	}
	s.mux.HandleFunc("GET /support", s.handleSupport)
	s.mux.HandleFunc("POST /support", s.handleSupportPost)

	s.mux.HandleFunc("POST /items/toggle", s.handleToggle)
	s.mux.HandleFunc("POST /items/save", s.handleSave)
	s.mux.HandleFunc("POST /items/delete", s.handleDelete)
	s.mux.HandleFunc("POST /items/reorder", s.handleReorder)
	s.mux.HandleFunc("POST /dashboard/toggle", s.handleDashboardToggle)
	s.mux.HandleFunc("POST /sync", s.handleSync)

	s.mux.HandleFunc("GET /sse/views", s.handleViewStream)
	s.mux.HandleFunc("GET /api/google-events", s.handleGoogleEvents)
	if s.cfg.Dev {
		s.mux.HandleFunc("POST /api/dev/clear", s.handleDevClear)
	}

	s.mux.Handle("GET /static/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the embedded stylesheet and script.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(assetsFS, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static assets not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg.BasicAuth == nil {
		return false
	}
	// Either credential empty means disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards everything except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Meno", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) render(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTML(w http.ResponseWriter, status int, name string, data any) {
	html, err := s.render(name, data)
	if err != nil {
		appLog.Error("template render failed", err, "template", name)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}
