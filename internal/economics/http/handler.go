package economicshttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/frescapp/backoffice/internal/economics"
	"github.com/frescapp/backoffice/internal/platform/httpx"
	"github.com/frescapp/backoffice/internal/shared"
)

type economicsService interface {
	Refresh(ctx context.Context, base time.Time) ([]economics.PeriodRecord, error)
	Periods(ctx context.Context, periodType string) ([]economics.PeriodRecord, error)
	DailySeries(ctx context.Context, from, to time.Time) ([]economics.DailyPoint, error)
}

type refreshRequest struct {
	DateUpdate string `json:"dateUpdate" validate:"required,datetime=2006-01-02"`
}

// Handler exposes unit-economics and cost analytics endpoints.
type Handler struct {
	logger  *slog.Logger
	service economicsService
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service economicsService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/api/ue/refresh", h.refresh)
	r.Get("/api/ue/{tipo}", h.periods)
	r.Get("/api/analytics/costs", h.costs)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	base, err := shared.ParseDate(req.DateUpdate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	records, err := h.service.Refresh(r.Context(), base)
	if err != nil {
		h.logger.Error("refresh unit economics", slog.String("date", req.DateUpdate), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) periods(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Periods(r.Context(), chi.URLParam(r, "tipo"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) costs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := shared.ParseDate(q.Get("from"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := shared.ParseDate(q.Get("to"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	points, err := h.service.DailySeries(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, points)
}
