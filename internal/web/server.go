// Package web provides the HTTP status server for the home-safety daemon.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/home-safety-sensor/internal/eventlog"
	"github.com/sweeney/home-safety-sensor/internal/status"
)

// EventSource supplies recent event log entries.
type EventSource interface {
	Recent() []eventlog.Entry
}

// Options selects the optional endpoints.
type Options struct {
	// DashboardPath is the file served at /dashboard.json.
	DashboardPath string

	// Events, if set, is served at /events.json.
	Events EventSource

	// Gatherer, if set, is served at /metrics.
	Gatherer prometheus.Gatherer
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	opts       Options
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, opts Options) *Server {
	s := &Server{tracker: tracker, opts: opts}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet, http.MethodHead)

	// Browsers on other hosts poll the dashboard file directly.
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead}),
	)
	if opts.DashboardPath != "" {
		r.Handle("/dashboard.json", cors(http.HandlerFunc(s.handleDashboard))).
			Methods(http.MethodGet, http.MethodHead, http.MethodOptions)
	}
	if opts.Events != nil {
		r.Handle("/events.json", cors(http.HandlerFunc(s.handleEvents))).
			Methods(http.MethodGet, http.MethodHead, http.MethodOptions)
	}
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: handlers.RecoveryHandler()(r),
	}
	return s
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(s.opts.DashboardPath)
	if errors.Is(err, fs.ErrNotExist) {
		http.Error(w, "no dashboard yet", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	entries := s.opts.Events.Recent()
	w.Header().Set("Content-Type", "application/json")
	data, _ := json.MarshalIndent(struct {
		Events []eventlog.Entry `json:"events"`
	}{Events: entries}, "", "  ")
	w.Write(data)
}
