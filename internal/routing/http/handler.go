package routinghttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/platform/httpx"
	"github.com/frescapp/backoffice/internal/routing"
)

type routeService interface {
	UpdateStops(ctx context.Context, number int64, updates []routing.StopUpdate, cost *decimal.Decimal) (routing.Route, error)
	Consolidated(ctx context.Context, number int64) ([]routing.DriverSummary, error)
}

type updateStopsRequest struct {
	RouteNumber int64                `json:"route_number" validate:"required,gt=0"`
	Cost        *decimal.Decimal     `json:"cost,omitempty"`
	Stops       []routing.StopUpdate `json:"stops" validate:"required,min=1,dive"`
}

// Handler exposes route delivery feedback endpoints.
type Handler struct {
	logger  *slog.Logger
	service routeService
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service routeService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Put("/api/route/stops", h.updateStops)
	r.Get("/api/route/{number}/consolidated", h.consolidated)
}

func (h *Handler) updateStops(w http.ResponseWriter, r *http.Request) {
	var req updateStopsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	route, err := h.service.UpdateStops(r.Context(), req.RouteNumber, req.Stops, req.Cost)
	if err != nil {
		h.logger.Error("update route stops", slog.Int64("route_number", req.RouteNumber), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, route)
}

func (h *Handler) consolidated(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.ParseInt(chi.URLParam(r, "number"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "route number must be numeric")
		return
	}
	summary, err := h.service.Consolidated(r.Context(), number)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
