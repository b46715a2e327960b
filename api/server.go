/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. Metrics:    Request counts by method and status (when configured)
  5. CORS:       Cross-origin requests for the frontend
  6. RateLimit:  Token bucket on /api (x/time/rate, when configured)

ROUTE GROUPS:
  /api/workers/*        Worker management
  /api/chunks/*         Chunk management
  /api/calculate        Chunk calculation
  /api/periods/*        Period planning and calculation
  /api/runs/*           Run history and CSV export
  /api/state/*          Save, load and legacy import
  /api/scenarios/*      Demo scenarios
  /api/reset            Store reset (dev only)
  /metrics              Prometheus exposition
  /healthz              Liveness
  /*                    Static files (frontend)

STATIC FILE SERVING:
  When Options.StaticDir exists its files are served, falling back to
  index.html for client-side routing. Otherwise / lists the endpoints.

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// RequestObserver counts HTTP responses.
type RequestObserver interface {
	ObserveRequest(method string, code int)
}

// Options configures NewRouter. The zero value is usable.
type Options struct {
	AllowedOrigins []string
	// RateLimit is requests per second on /api. Zero or less disables it.
	RateLimit float64
	Burst     int

	Metrics  RequestObserver
	Gatherer prometheus.Gatherer // serves /metrics when set

	StaticDir string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	if opts.Metrics != nil {
		r.Use(observeRequests(opts.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		if opts.RateLimit > 0 {
			r.Use(rateLimit(opts.RateLimit, opts.Burst))
		}

		// Worker routes
		r.Route("/workers", func(r chi.Router) {
			r.Get("/", h.ListWorkers)
			r.Post("/", h.CreateWorker)
			r.Get("/{id}", h.GetWorker)
			r.Put("/{id}", h.UpdateWorker)
			r.Delete("/{id}", h.DeleteWorker)
		})

		// Chunk routes
		r.Route("/chunks", func(r chi.Router) {
			r.Get("/", h.ListChunks)
			r.Post("/", h.CreateChunk)
			r.Delete("/{id}", h.DeleteChunk)
		})

		r.Post("/calculate", h.Calculate)

		// Period routes
		r.Route("/periods", func(r chi.Router) {
			r.Post("/plan", h.PlanPeriods)
			r.Post("/calculate", h.CalculatePeriods)
		})

		// Run routes
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.ListRuns)
			r.Get("/{id}", h.GetRun)
			r.Get("/{id}/export.csv", h.ExportRun)
		})

		// State routes
		r.Route("/state", func(r chi.Router) {
			r.Get("/", h.GetState)
			r.Put("/", h.PutState)
			r.Post("/legacy", h.ImportLegacy)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})

		r.Post("/reset", h.ResetDatabase)
	})

	if info, err := os.Stat(opts.StaticDir); opts.StaticDir != "" && err == nil && info.IsDir() {
		staticDir := opts.StaticDir
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, filepath.Clean("/"+r.URL.Path))
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				// SPA routing: serve index.html
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Tip Calculator</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Tip Calculator API</h1>
<ul>
<li><a href="/api/workers">/api/workers</a> - List workers</li>
<li><a href="/api/chunks">/api/chunks</a> - List chunks</li>
<li><a href="/api/runs">/api/runs</a> - Run history</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List scenarios</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}

// rateLimit rejects requests beyond rps with 429. A burst below one
// defaults to rps rounded up.
func rateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if burst < 1 {
		burst = int(rps + 0.999)
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func observeRequests(m RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(r.Method, status)
		})
	}
}
