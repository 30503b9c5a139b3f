/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from X-Forwarded-For / X-Real-IP
  3. Logger:     zerolog request logging (middleware.go)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the payroll admin UI
  6. Timeout:    Cancels the request context after RequestTimeout; a refresh
                 cut short this way answers 504

ROUTE GROUPS:
  /api/orgs/{orgID}/payroll-basis/*   Refresh, read, export, lock
  /api/orgs/{orgID}/payroll-config    Org config
  /api/orgs/{orgID}/spans             Raw spans
  /api/orgs/{orgID}/holidays/*        Company holidays
  /api/scenarios/*                    Demo scenarios (resets the database)
  /metrics                            Prometheus
  /healthz                            Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - scenarios.go: Demo scenario loaders
  - cmd/payroll/serve.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	Metrics        bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/healthz", h.Healthz)
	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/orgs/{orgID}", func(r chi.Router) {
		// Payroll basis routes
		r.Route("/payroll-basis", func(r chi.Router) {
			r.Get("/", h.ListBasis)
			r.Post("/refresh", h.RefreshBasis)
			r.Get("/export.xlsx", h.ExportBasis)
			r.Post("/{personID}/lock", h.LockBasis)
			r.Post("/{personID}/unlock", h.UnlockBasis)
		})

		// Config routes
		r.Get("/payroll-config", h.GetOrgConfig)
		r.Put("/payroll-config", h.PutOrgConfig)

		// Span routes
		r.Get("/spans", h.ListSpans)
		r.Post("/spans", h.CreateSpans)

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Post("/defaults", h.AddDefaultHolidays)
			r.Delete("/{id}", h.DeleteHoliday)
		})
	})

	// Scenario routes (dev/demo only, loading resets the database)
	r.Route("/api/scenarios", func(r chi.Router) {
		r.Get("/", h.ListScenarios)
		r.Get("/current", h.GetCurrentScenario)
		r.Post("/load", h.LoadScenario)
	})

	return r
}

// NewServer wraps the router in an http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler, requestTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      requestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
