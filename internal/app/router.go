package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	closinghttp "github.com/frescapp/backoffice/internal/closing/http"
	economicshttp "github.com/frescapp/backoffice/internal/economics/http"
	"github.com/frescapp/backoffice/internal/observability"
	purchasinghttp "github.com/frescapp/backoffice/internal/purchasing/http"
	routinghttp "github.com/frescapp/backoffice/internal/routing/http"
	"github.com/frescapp/backoffice/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	ClosingHandler    *closinghttp.Handler
	EconomicsHandler  *economicshttp.Handler
	RoutingHandler    *routinghttp.Handler
	PurchasingHandler *purchasinghttp.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with backoffice defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.ClosingHandler != nil {
		params.ClosingHandler.MountRoutes(r)
	}
	if params.EconomicsHandler != nil {
		params.EconomicsHandler.MountRoutes(r)
	}
	if params.RoutingHandler != nil {
		params.RoutingHandler.MountRoutes(r)
	}
	if params.PurchasingHandler != nil {
		params.PurchasingHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
