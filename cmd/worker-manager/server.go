package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"study-abroad-engine/internal/common/database"
	"study-abroad-engine/internal/common/logger"
)

const readinessTimeout = 3 * time.Second

// pingFunc adapts a health check function to database.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newRouter(backends map[string]database.Pinger, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		failures := database.Check(ctx, backends)
		checks := make(map[string]string, len(backends))
		for _, name := range database.Names(backends) {
			checks[name] = "ok"
			if err, failed := failures[name]; failed {
				checks[name] = err.Error()
			}
		}

		status, code := "ready", http.StatusOK
		if len(failures) > 0 {
			status, code = "not_ready", http.StatusServiceUnavailable
			log.Warn("readiness check failed", map[string]interface{}{"failures": len(failures)})
		}
		writeJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": checks,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
