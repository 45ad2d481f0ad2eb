package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/orders"
	"github.com/frescapp/backoffice/internal/sequence"
	"github.com/frescapp/backoffice/internal/shared"
)

// RepositoryPort is the route storage used by the service.
type RepositoryPort interface {
	GetByDate(ctx context.Context, date time.Time) (Route, error)
	GetByNumber(ctx context.Context, number int64) (Route, error)
	Insert(ctx context.Context, route Route) error
	UpdateStops(ctx context.Context, number int64, stops []Stop, cost decimal.Decimal) error
}

// OrderStore is the order access needed to build routes and propagate payments.
type OrderStore interface {
	ListByDeliveryDate(ctx context.Context, date time.Time) ([]orders.Order, error)
	UpdatePayment(ctx context.Context, number, payment string, paid decimal.Decimal) error
}

// Sequencer mints route numbers.
type Sequencer interface {
	Next(ctx context.Context, name string) (int64, error)
}

// StopUpdate is delivery feedback for one stop.
type StopUpdate struct {
	OrderNumber   string          `json:"order_number" validate:"required"`
	Status        string          `json:"status" validate:"required,oneof='Por entregar' Pagada 'Pendiente de pago'"`
	TotalCharged  decimal.Decimal `json:"total_charged"`
	PaymentMethod string          `json:"payment_method"`
	DriverName    string          `json:"driver_name"`
}

// Service creates routes and applies delivery feedback.
type Service struct {
	repo   RepositoryPort
	orders OrderStore
	seq    Sequencer
	logger *slog.Logger
}

// NewService constructs the routing service.
func NewService(repo RepositoryPort, orderStore OrderStore, seq Sequencer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, orders: orderStore, seq: seq, logger: logger}
}

// Get returns the route of date.
func (s *Service) Get(ctx context.Context, date time.Time) (Route, error) {
	return s.repo.GetByDate(ctx, date)
}

// CreateFor builds the route of date from that date's orders. A route number is minted only when
// there is something to deliver.
func (s *Service) CreateFor(ctx context.Context, date time.Time) (Route, error) {
	_, err := s.repo.GetByDate(ctx, date)
	if err == nil {
		return Route{}, fmt.Errorf("routing: route for %s: %w", shared.FormatDate(date), shared.ErrAlreadyExists)
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Route{}, err
	}
	list, err := s.orders.ListByDeliveryDate(ctx, date)
	if err != nil {
		return Route{}, err
	}
	if len(list) == 0 {
		return Route{}, fmt.Errorf("routing: no orders for %s: %w", shared.FormatDate(date), shared.ErrNothingToDo)
	}
	number, err := s.seq.Next(ctx, sequence.RouteNumber)
	if err != nil {
		return Route{}, err
	}
	route := Build(number, date, list)
	if err := s.repo.Insert(ctx, route); err != nil {
		return Route{}, err
	}
	s.logger.Info("route created",
		slog.String("date", shared.FormatDate(date)),
		slog.Int64("route_number", number),
		slog.Int("stops", len(route.Stops)))
	return route, nil
}

// UpdateStops applies delivery feedback to a route and copies the payment state onto each order.
// A nil cost leaves the logistics cost untouched.
func (s *Service) UpdateStops(ctx context.Context, number int64, updates []StopUpdate, cost *decimal.Decimal) (Route, error) {
	route, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return Route{}, err
	}
	index := make(map[string]int, len(route.Stops))
	for i, st := range route.Stops {
		index[st.OrderNumber] = i
	}
	for _, u := range updates {
		i, ok := index[u.OrderNumber]
		if !ok {
			return Route{}, fmt.Errorf("routing: order %s not on route %d: %w", u.OrderNumber, number, shared.ErrInvalidInput)
		}
		st := &route.Stops[i]
		st.Status = u.Status
		st.TotalCharged = u.TotalCharged
		if u.PaymentMethod != "" {
			st.PaymentMethod = u.PaymentMethod
		}
		if u.DriverName != "" {
			st.DriverName = u.DriverName
		}
	}
	if cost != nil {
		route.Cost = *cost
	}
	if err := s.repo.UpdateStops(ctx, number, route.Stops, route.Cost); err != nil {
		return Route{}, err
	}
	for _, u := range updates {
		if err := s.orders.UpdatePayment(ctx, u.OrderNumber, u.Status, u.TotalCharged); err != nil {
			return Route{}, fmt.Errorf("routing: propagate payment of %s: %w", u.OrderNumber, err)
		}
	}
	s.logger.Info("route stops updated", slog.Int64("route_number", number), slog.Int("updates", len(updates)))
	return route, nil
}

// Consolidated returns the per-driver summary of a route.
func (s *Service) Consolidated(ctx context.Context, number int64) ([]DriverSummary, error) {
	route, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return Consolidate(route), nil
}
