package purchasinghttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/frescapp/backoffice/internal/platform/httpx"
	"github.com/frescapp/backoffice/internal/purchasing"
)

type purchaseService interface {
	Detail(ctx context.Context, number int64) (purchasing.Summary, error)
	ConfirmPrice(ctx context.Context, number int64, update purchasing.PriceUpdate) (purchasing.Line, error)
}

type updatePriceRequest struct {
	PurchaseNumber int64 `json:"purchase_number" validate:"required,gt=0"`
	purchasing.PriceUpdate
}

// Handler exposes purchase detail and price confirmation.
type Handler struct {
	logger  *slog.Logger
	service purchaseService
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service purchaseService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/purchase/{number}/detail", h.detail)
	r.Post("/api/purchase/update_price", h.updatePrice)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.ParseInt(chi.URLParam(r, "number"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "purchase number must be numeric")
		return
	}
	summary, err := h.service.Detail(r.Context(), number)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) updatePrice(w http.ResponseWriter, r *http.Request) {
	var req updatePriceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	line, err := h.service.ConfirmPrice(r.Context(), req.PurchaseNumber, req.PriceUpdate)
	if err != nil {
		h.logger.Warn("confirm purchase price",
			slog.Int64("purchase_number", req.PurchaseNumber),
			slog.String("sku", req.SKU),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}
