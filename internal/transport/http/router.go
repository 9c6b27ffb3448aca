// Package httptransport assembles the public HTTP surface: the shared
// middleware chain, health and metrics endpoints, and every module's routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tapday/internal/platform/metrics"
	"tapday/internal/platform/middleware"
	dErrors "tapday/pkg/domain-errors"
	"tapday/pkg/platform/httputil"
)

const healthTimeout = 2 * time.Second

// Routes is implemented by module handlers.
type Routes interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps is everything the router needs.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
	Health         map[string]HealthCheck
	Routes         []Routes
}

// NewRouter wires the middleware chain and mounts every module.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Latency(d.Metrics, routePattern))

	r.Get("/health", healthHandler(d.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		if d.RequestTimeout > 0 {
			api.Use(middleware.Timeout(d.RequestTimeout))
		}
		api.Use(middleware.ContentTypeJSON)
		for _, routes := range d.Routes {
			routes.Register(api)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for _, name := range names {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(names))
			}
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
