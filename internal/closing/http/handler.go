package closinghttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/frescapp/backoffice/internal/closing"
	"github.com/frescapp/backoffice/internal/platform/httpx"
	"github.com/frescapp/backoffice/internal/shared"
)

type closingService interface {
	Close(ctx context.Context, date time.Time) (closing.Result, error)
	List(ctx context.Context, limit int) ([]closing.Record, error)
	Detail(ctx context.Context, date time.Time) (closing.Detail, error)
}

// Enqueuer schedules an asynchronous closing run.
type Enqueuer interface {
	EnqueueClose(ctx context.Context, date time.Time) (string, error)
}

// Handler exposes the closing endpoints.
type Handler struct {
	logger  *slog.Logger
	service closingService
	queue   Enqueuer
}

// NewHandler constructs a closing HTTP handler. A nil queue disables the async endpoint.
func NewHandler(logger *slog.Logger, service closingService, queue Enqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, queue: queue}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/cierres", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{date}/", h.detail)
		r.Post("/{date}", h.run)
		r.Post("/{date}/async", h.enqueue)
	})
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	date, err := shared.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Close(r.Context(), date)
	if err != nil {
		var stepErr *closing.StepError
		if errors.As(err, &stepErr) {
			status, _ := httpx.StatusFor(stepErr.Err)
			h.logger.Warn("closing run failed",
				slog.String("date", shared.FormatDate(date)),
				slog.String("step", string(stepErr.Step)),
				slog.Any("error", stepErr.Err))
			httpx.JSON(w, status, result)
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	date, err := shared.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := h.queue.EnqueueClose(r.Context(), date)
	if err != nil {
		h.logger.Error("enqueue closing", slog.String("date", shared.FormatDate(date)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": id, "date": shared.FormatDate(date)})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be a positive integer")
			return
		}
		limit = v
	}
	records, err := h.service.List(r.Context(), limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	date, err := shared.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.Detail(r.Context(), date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}
