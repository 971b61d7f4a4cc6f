// Package server exposes the derived view, metrics and live stream over HTTP.
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nivel_exporter/internal/types"
)

// ViewSource provides the latest derived view and the outcome of the last poll.
type ViewSource interface {
	Latest() (types.DerivedView, bool)
	Status() (ok bool, message string)
}

// Options configures the router.
type Options struct {
	Source      ViewSource
	Gatherer    prometheus.Gatherer
	Stream      http.Handler // optional WebSocket endpoint
	CORSOrigins []string
	AccessLog   io.Writer // optional Apache-style access log
	Logger      *slog.Logger
}

// NewRouter builds the HTTP handler for the exporter.
func NewRouter(opts Options) http.Handler {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/view", viewHandler(opts.Source, opts.Logger)).Methods(http.MethodGet)
	if opts.Stream != nil {
		r.Handle("/ws", opts.Stream).Methods(http.MethodGet)
	}

	var h http.Handler = r
	if len(opts.CORSOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(opts.CORSOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		)(h)
	}
	if opts.AccessLog != nil {
		h = handlers.LoggingHandler(opts.AccessLog, h)
	}
	return h
}

// viewHandler serves the latest derived view as JSON.
// Before the first successful cycle it answers 503 with the poller's error text.
func viewHandler(source ViewSource, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, ok := source.Latest()
		if !ok {
			_, msg := source.Status()
			if msg == "" {
				msg = "Carregando dados..."
			}
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": msg}, logger)
			return
		}

		if healthy, msg := source.Status(); !healthy && msg != "" {
			w.Header().Set("X-Poll-Error", msg)
		}
		writeJSON(w, http.StatusOK, view, logger)
	}
}

// healthHandler responds to health check requests.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK\n"))
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}

// OriginChecker returns a WebSocket origin check that accepts the configured CORS origins.
// A "*" entry accepts any origin. Requests without an Origin header are always accepted.
func OriginChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
