package ui

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports whether a dependency is usable
type HealthCheck = func(ctx context.Context) error

// AdminApp serves health, metrics and profiling endpoints on a separate listener
type AdminApp struct {
	router   *chi.Mux
	checks   map[string]HealthCheck
	gatherer prometheus.Gatherer
}

// NewAdminApp creates the admin router; a nil gatherer uses the default registry
func NewAdminApp(gatherer prometheus.Gatherer, checks map[string]HealthCheck) *AdminApp {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	a := &AdminApp{
		router:   chi.NewRouter(),
		checks:   checks,
		gatherer: gatherer,
	}

	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// setupMiddleware configures HTTP middleware
func (a *AdminApp) setupMiddleware() {
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Timeout(30 * time.Second))
}

// setupRoutes configures the admin routes
func (a *AdminApp) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)
	a.router.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))

	a.router.Route("/debug/pprof", func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		r.Handle("/{profile}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pprof.Handler(chi.URLParam(r, "profile")).ServeHTTP(w, r)
		}))
	})
}

// ServeHTTP makes the admin app usable as an http.Handler
func (a *AdminApp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *AdminApp) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok"}

	for name, check := range a.checks {
		if err := check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body[name] = err.Error()
			continue
		}
		body[name] = "ok"
	}

	writeJSON(w, status, body)
}
