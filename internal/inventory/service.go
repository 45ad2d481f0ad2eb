package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/shared"
)

// RepositoryPort is the storage the service needs.
type RepositoryPort interface {
	GetByDate(ctx context.Context, date time.Time) (Snapshot, error)
	Insert(ctx context.Context, snap Snapshot) error
}

// ReceiptSource lists stock purchased for a date.
type ReceiptSource interface {
	Receipts(ctx context.Context, date time.Time) ([]Receipt, error)
}

// DemandSource lists ordered quantities for a date in inventory units.
type DemandSource interface {
	Demand(ctx context.Context, date time.Time) (map[string]decimal.Decimal, error)
}

// Service creates next-day snapshots.
type Service struct {
	repo     RepositoryPort
	receipts ReceiptSource
	demand   DemandSource
	logger   *slog.Logger
}

// NewService constructs the inventory service.
func NewService(repo RepositoryPort, receipts ReceiptSource, demand DemandSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, receipts: receipts, demand: demand, logger: logger}
}

// Get returns the snapshot of date.
func (s *Service) Get(ctx context.Context, date time.Time) (Snapshot, error) {
	return s.repo.GetByDate(ctx, date)
}

// CarryOver copies the snapshot of from verbatim to to.
func (s *Service) CarryOver(ctx context.Context, from, to time.Time) (Snapshot, error) {
	if err := s.ensureAbsent(ctx, to); err != nil {
		return Snapshot{}, err
	}
	source, err := s.repo.GetByDate(ctx, from)
	if errors.Is(err, shared.ErrNotFound) {
		return Snapshot{}, fmt.Errorf("inventory: no snapshot for %s to carry over: %w", shared.FormatDate(from), shared.ErrNothingToDo)
	}
	if err != nil {
		return Snapshot{}, err
	}
	snap := source.CopyTo(to)
	if err := s.repo.Insert(ctx, snap); err != nil {
		return Snapshot{}, err
	}
	s.logger.Info("inventory carried over",
		slog.String("from", shared.FormatDate(from)),
		slog.String("to", shared.FormatDate(to)),
		slog.Int("items", len(snap.Items)))
	return snap, nil
}

// ProjectFor builds the snapshot of date from the previous day's snapshot, the purchase for date and the orders for date.
func (s *Service) ProjectFor(ctx context.Context, date time.Time) (Snapshot, error) {
	if err := s.ensureAbsent(ctx, date); err != nil {
		return Snapshot{}, err
	}
	opening, err := s.repo.GetByDate(ctx, shared.PrevDay(date))
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return Snapshot{}, err
	}
	receipts, err := s.receipts.Receipts(ctx, date)
	if err != nil {
		return Snapshot{}, fmt.Errorf("inventory: receipts: %w", err)
	}
	demand, err := s.demand.Demand(ctx, date)
	if err != nil {
		return Snapshot{}, fmt.Errorf("inventory: demand: %w", err)
	}
	snap := Project(opening, date, receipts, demand)
	if err := s.repo.Insert(ctx, snap); err != nil {
		return Snapshot{}, err
	}
	s.logger.Info("inventory projected",
		slog.String("date", shared.FormatDate(date)),
		slog.Int("receipts", len(receipts)),
		slog.Int("items", len(snap.Items)))
	return snap, nil
}

func (s *Service) ensureAbsent(ctx context.Context, date time.Time) error {
	_, err := s.repo.GetByDate(ctx, date)
	switch {
	case err == nil:
		return fmt.Errorf("inventory: snapshot %s: %w", shared.FormatDate(date), shared.ErrAlreadyExists)
	case errors.Is(err, shared.ErrNotFound):
		return nil
	default:
		return err
	}
}
