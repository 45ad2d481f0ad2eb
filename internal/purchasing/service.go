package purchasing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/costing"
	"github.com/frescapp/backoffice/internal/inventory"
	"github.com/frescapp/backoffice/internal/orders"
	"github.com/frescapp/backoffice/internal/sequence"
	"github.com/frescapp/backoffice/internal/shared"
)

// RepositoryPort is the purchase storage used by the service.
type RepositoryPort interface {
	GetByDate(ctx context.Context, date time.Time) (Purchase, error)
	GetByNumber(ctx context.Context, number int64) (Purchase, error)
	Insert(ctx context.Context, p Purchase) error
	UpdateLines(ctx context.Context, number int64, fn func([]Line) ([]Line, error)) error
	Suppliers(ctx context.Context) (map[string]Supplier, error)
}

// OrderSource lists orders by delivery date.
type OrderSource interface {
	ListByDeliveryDate(ctx context.Context, date time.Time) ([]orders.Order, error)
}

// SnapshotSource reads inventory snapshots.
type SnapshotSource interface {
	GetByDate(ctx context.Context, date time.Time) (inventory.Snapshot, error)
}

// CatalogSource loads the product catalog.
type CatalogSource interface {
	Catalog(ctx context.Context) (costing.Catalog, error)
}

// Sequencer mints purchase numbers.
type Sequencer interface {
	Next(ctx context.Context, name string) (int64, error)
}

// PriceUpdate confirms what was actually paid for a line.
type PriceUpdate struct {
	SKU           string           `json:"sku" validate:"required"`
	FinalPrice    decimal.Decimal  `json:"final_price_purchase"`
	Supplier      string           `json:"proveedor"`
	PaymentType   string           `json:"type_transaction"`
	Status        string           `json:"status"`
	Forecast      *decimal.Decimal `json:"forecast,omitempty"`
	TotalQuantity *decimal.Decimal `json:"total_quantity,omitempty"`
}

// Service builds purchases and serves their detail.
type Service struct {
	repo    RepositoryPort
	orders  OrderSource
	stock   SnapshotSource
	catalog CatalogSource
	seq     Sequencer
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the purchasing service.
func NewService(repo RepositoryPort, orderSource OrderSource, stock SnapshotSource, catalog CatalogSource, seq Sequencer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, orders: orderSource, stock: stock, catalog: catalog, seq: seq, logger: logger, now: time.Now}
}

// WithNow overrides the clock used for comments.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns the purchase of date.
func (s *Service) Get(ctx context.Context, date time.Time) (Purchase, error) {
	return s.repo.GetByDate(ctx, date)
}

// ForecastFor creates the purchase of date from that date's orders, net of the previous day's snapshot.
func (s *Service) ForecastFor(ctx context.Context, date time.Time) (Purchase, error) {
	_, err := s.repo.GetByDate(ctx, date)
	if err == nil {
		return Purchase{}, fmt.Errorf("purchasing: purchase for %s: %w", shared.FormatDate(date), shared.ErrAlreadyExists)
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Purchase{}, err
	}

	list, err := s.orders.ListByDeliveryDate(ctx, date)
	if err != nil {
		return Purchase{}, err
	}
	onHand := map[string]decimal.Decimal{}
	snap, err := s.stock.GetByDate(ctx, shared.PrevDay(date))
	switch {
	case err == nil:
		onHand = snap.Quantities()
	case !errors.Is(err, shared.ErrNotFound):
		return Purchase{}, err
	}
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return Purchase{}, err
	}
	suppliers, err := s.repo.Suppliers(ctx)
	if err != nil {
		return Purchase{}, err
	}

	lines, err := BuildLines(list, onHand, catalog, suppliers)
	if err != nil {
		return Purchase{}, err
	}
	if len(lines) == 0 {
		return Purchase{}, fmt.Errorf("purchasing: no demand for %s: %w", shared.FormatDate(date), shared.ErrNothingToDo)
	}

	number, err := s.seq.Next(ctx, sequence.PurchaseID)
	if err != nil {
		return Purchase{}, err
	}
	p := Purchase{
		Number:        number,
		Date:          date,
		Status:        StatusCreated,
		CashDelivered: decimal.Zero,
		Comments:      fmt.Sprintf("Compra generada %s", s.now().Format(time.RFC3339)),
		Lines:         lines,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return Purchase{}, err
	}
	s.logger.Info("purchase forecast created",
		slog.String("date", shared.FormatDate(date)),
		slog.Int64("purchase_number", number),
		slog.Int("lines", len(lines)))
	return p, nil
}

// Receipts exposes the purchase of date as expected stock arrivals.
func (s *Service) Receipts(ctx context.Context, date time.Time) ([]inventory.Receipt, error) {
	p, err := s.repo.GetByDate(ctx, date)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p.Receipts(), nil
}

// Demand returns the orders of date in inventory units.
func (s *Service) Demand(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error) {
	list, err := s.orders.ListByDeliveryDate(ctx, date)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return costing.ResolveSales(orders.Sales(list), catalog)
}

// Detail summarises the purchase with number.
func (s *Service) Detail(ctx context.Context, number int64) (Summary, error) {
	p, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(p), nil
}

// ConfirmPrice applies a price confirmation to one line of a purchase.
func (s *Service) ConfirmPrice(ctx context.Context, number int64, update PriceUpdate) (Line, error) {
	if strings.TrimSpace(update.SKU) == "" {
		return Line{}, fmt.Errorf("purchasing: sku required: %w", shared.ErrInvalidInput)
	}
	if update.FinalPrice.Sign() < 0 {
		return Line{}, fmt.Errorf("purchasing: negative price for %s: %w", update.SKU, shared.ErrInvalidInput)
	}
	var suppliers map[string]Supplier
	if update.Supplier != "" {
		var err error
		if suppliers, err = s.repo.Suppliers(ctx); err != nil {
			return Line{}, err
		}
	}

	var result Line
	err := s.repo.UpdateLines(ctx, number, func(lines []Line) ([]Line, error) {
		for i := range lines {
			if lines[i].SKU != update.SKU {
				continue
			}
			if lines[i].Status == LineInvoiced {
				return nil, fmt.Errorf("purchasing: line %s already invoiced: %w", update.SKU, shared.ErrInvalidInput)
			}
			applyUpdate(&lines[i], update, suppliers)
			result = lines[i]
			return lines, nil
		}
		return nil, fmt.Errorf("purchasing: line %s in purchase %d: %w", update.SKU, number, shared.ErrNotFound)
	})
	if err != nil {
		return Line{}, err
	}
	s.logger.Info("purchase price confirmed",
		slog.Int64("purchase_number", number),
		slog.String("sku", update.SKU),
		slog.String("final_price", update.FinalPrice.String()))
	return result, nil
}

func applyUpdate(line *Line, update PriceUpdate, suppliers map[string]Supplier) {
	line.FinalPrice = update.FinalPrice
	if update.Supplier != "" {
		supplier, ok := suppliers[update.Supplier]
		if !ok {
			supplier = Supplier{Nickname: update.Supplier}
		}
		line.Supplier = supplier
	}
	if update.PaymentType != "" {
		line.PaymentType = update.PaymentType
	}
	if update.Status != "" {
		line.Status = update.Status
	}
	if update.Forecast != nil {
		line.Forecast = *update.Forecast
	}
	if update.TotalQuantity != nil {
		line.TotalQuantity = *update.TotalQuantity
	}
}
