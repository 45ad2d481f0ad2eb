package closing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"golang.org/x/sync/singleflight"

	"github.com/frescapp/backoffice/internal/inventory"
	"github.com/frescapp/backoffice/internal/purchasing"
	"github.com/frescapp/backoffice/internal/routing"
	"github.com/frescapp/backoffice/internal/shared"
)

const (
	defaultListLimit  = 60
	defaultRunTimeout = 10 * time.Minute
)

// Runner executes a closing run.
type Runner interface {
	Run(ctx context.Context, date time.Time) (Result, error)
}

// RecordReader reads stored closing records.
type RecordReader interface {
	Get(ctx context.Context, date time.Time) (Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
}

// SnapshotReader reads inventory snapshots.
type SnapshotReader interface {
	GetByDate(ctx context.Context, date time.Time) (inventory.Snapshot, error)
}

// PurchaseReader reads purchases.
type PurchaseReader interface {
	GetByDate(ctx context.Context, date time.Time) (purchasing.Purchase, error)
}

// RouteReader reads routes.
type RouteReader interface {
	GetByDate(ctx context.Context, date time.Time) (routing.Route, error)
}

// Detail is a closing record with the documents of its date.
type Detail struct {
	Record    Record               `json:"cierre"`
	Inventory *inventory.Snapshot  `json:"inventory,omitempty"`
	Purchase  *purchasing.Purchase `json:"purchase,omitempty"`
	Route     *routing.Route       `json:"route,omitempty"`
}

// Service serialises closing runs per date and serves closing records.
type Service struct {
	runner    Runner
	locker    *redislock.Client
	lockTTL   time.Duration
	records   RecordReader
	snapshots SnapshotReader
	purchases PurchaseReader
	routes    RouteReader
	flight    singleflight.Group
	logger    *slog.Logger
}

// NewService constructs the closing service. A nil locker only de-duplicates runs inside this process.
func NewService(runner Runner, locker *redislock.Client, lockTTL time.Duration, records RecordReader, snapshots SnapshotReader, purchases PurchaseReader, routes RouteReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &Service{
		runner:    runner,
		locker:    locker,
		lockTTL:   lockTTL,
		records:   records,
		snapshots: snapshots,
		purchases: purchases,
		routes:    routes,
		logger:    logger,
	}
}

// Close runs the saga for date. Callers racing on the same date in this process share one run;
// a run already holding the date lock elsewhere yields ErrCloseInProgress. The shared run outlives
// a caller that gives up and is bounded by its own timeout.
func (s *Service) Close(ctx context.Context, date time.Time) (Result, error) {
	ch := s.flight.DoChan(shared.FormatDate(date), func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultRunTimeout)
		defer cancel()
		return s.closeLocked(runCtx, date)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		result, _ := res.Val.(Result)
		return result, res.Err
	}
}

func (s *Service) closeLocked(ctx context.Context, date time.Time) (Result, error) {
	if s.locker == nil {
		return s.runner.Run(ctx, date)
	}
	key := shared.CloseLockKey(date)
	lock, err := s.locker.Obtain(ctx, key, s.lockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return Result{}, fmt.Errorf("closing: %s: %w", shared.FormatDate(date), shared.ErrCloseInProgress)
	}
	if err != nil {
		return Result{}, shared.StorageError("closing: obtain lock", err)
	}

	done := make(chan struct{})
	go s.keepAlive(lock, done)
	defer func() {
		close(done)
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			s.logger.Warn("release closing lock", slog.String("key", key), slog.Any("error", err))
		}
	}()
	return s.runner.Run(ctx, date)
}

func (s *Service) keepAlive(lock *redislock.Lock, done <-chan struct{}) {
	ticker := time.NewTicker(s.lockTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := lock.Refresh(context.Background(), s.lockTTL, nil); err != nil {
				s.logger.Warn("refresh closing lock", slog.String("key", lock.Key()), slog.Any("error", err))
				return
			}
		}
	}
}

// List returns recent closing records, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.records.List(ctx, limit)
}

// Detail returns the record of date with that date's snapshot, purchase and route when present.
func (s *Service) Detail(ctx context.Context, date time.Time) (Detail, error) {
	rec, err := s.records.Get(ctx, date)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{Record: rec}
	if snap, err := s.snapshots.GetByDate(ctx, date); err == nil {
		d.Inventory = &snap
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Detail{}, err
	}
	if p, err := s.purchases.GetByDate(ctx, date); err == nil {
		d.Purchase = &p
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Detail{}, err
	}
	if route, err := s.routes.GetByDate(ctx, date); err == nil {
		d.Route = &route
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Detail{}, err
	}
	return d, nil
}
