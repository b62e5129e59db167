package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/posrapor/posrapor/internal/auth"
	"github.com/posrapor/posrapor/internal/dashboard"
	"github.com/posrapor/posrapor/internal/observability"
	"github.com/posrapor/posrapor/internal/reports"
	"github.com/posrapor/posrapor/internal/stock"
	"github.com/posrapor/posrapor/internal/tenant"
	"github.com/posrapor/posrapor/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthHandler      *auth.Handler
	AuthMiddleware   func(http.Handler) http.Handler
	BranchHandler    *tenant.Handler
	ReportsHandler   *reports.Handler
	DashboardHandler *dashboard.Handler
	StockHandler     *stock.Handler
	JobsHandler      *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults. Everything
// under /reports, /dashboard, /branches, /stock, and /jobs requires a
// Bearer token; /auth/login, /healthz, and /metrics do not. The dashboard
// SSE stream holds its connection open, so it is mounted outside the
// request timeout and compression that cover the JSON routes.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	cfg := MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}
	for _, mw := range MiddlewareStack(cfg) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	timed := TimedStack(cfg)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		for _, mw := range timed {
			r.Use(mw)
		}
		r.Route("/auth", params.AuthHandler.MountRoutes)
	})

	r.Group(func(r chi.Router) {
		if params.AuthMiddleware != nil {
			r.Use(params.AuthMiddleware)
		}

		r.Route("/dashboard", func(r chi.Router) {
			params.DashboardHandler.MountStream(r)
			r.Group(func(r chi.Router) {
				for _, mw := range timed {
					r.Use(mw)
				}
				params.DashboardHandler.MountRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			for _, mw := range timed {
				r.Use(mw)
			}
			r.Route("/branches", params.BranchHandler.MountRoutes)
			r.Route("/reports", params.ReportsHandler.MountRoutes)
			r.Route("/stock", params.StockHandler.MountRoutes)
			if params.JobsHandler != nil {
				r.Route("/jobs", params.JobsHandler.MountRoutes)
			}
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
