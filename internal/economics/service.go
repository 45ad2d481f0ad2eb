package economics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/frescapp/backoffice/internal/costing"
	"github.com/frescapp/backoffice/internal/inventory"
	"github.com/frescapp/backoffice/internal/orders"
	"github.com/frescapp/backoffice/internal/purchasing"
	"github.com/frescapp/backoffice/internal/routing"
	"github.com/frescapp/backoffice/internal/shared"
)

// RepositoryPort stores fixed costs and period records.
type RepositoryPort interface {
	FixedCosts(ctx context.Context, periodType, label string, year int) ([]FixedCost, error)
	ReplacePeriod(ctx context.Context, rec PeriodRecord) error
	ListPeriods(ctx context.Context, periodType string) ([]PeriodRecord, error)
}

// OrderSource lists orders.
type OrderSource interface {
	ListByDeliveryDate(ctx context.Context, date time.Time) ([]orders.Order, error)
	ListByRange(ctx context.Context, from, to time.Time) ([]orders.Order, error)
}

// RouteSource lists routes.
type RouteSource interface {
	ListByRange(ctx context.Context, from, to time.Time) ([]routing.Route, error)
}

// PurchaseSource reads the purchase of a date.
type PurchaseSource interface {
	GetByDate(ctx context.Context, date time.Time) (purchasing.Purchase, error)
}

// SnapshotSource reads the inventory snapshot of a date.
type SnapshotSource interface {
	GetByDate(ctx context.Context, date time.Time) (inventory.Snapshot, error)
}

// CatalogSource loads the product catalog.
type CatalogSource interface {
	Catalog(ctx context.Context) (costing.Catalog, error)
}

// Service computes daily cost and period statements.
type Service struct {
	repo      RepositoryPort
	orders    OrderSource
	routes    RouteSource
	purchases PurchaseSource
	snapshots SnapshotSource
	catalog   CatalogSource
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the economics service.
func NewService(repo RepositoryPort, orderSource OrderSource, routes RouteSource, purchases PurchaseSource, snapshots SnapshotSource, catalog CatalogSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		orders:    orderSource,
		routes:    routes,
		purchases: purchases,
		snapshots: snapshots,
		catalog:   catalog,
		logger:    logger,
		now:       time.Now,
	}
}

// WithNow overrides the clock used for UpdatedAt.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// DailyCOGS costs the sales of date against the previous day's snapshot and the purchase of date.
func (s *Service) DailyCOGS(ctx context.Context, date time.Time) (costing.Breakdown, error) {
	list, err := s.orders.ListByDeliveryDate(ctx, date)
	if err != nil {
		return costing.Breakdown{}, err
	}
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return costing.Breakdown{}, err
	}
	return s.cogsFor(ctx, date, list, catalog)
}

func (s *Service) cogsFor(ctx context.Context, date time.Time, list []orders.Order, catalog costing.Catalog) (costing.Breakdown, error) {
	if len(list) == 0 {
		return costing.Breakdown{Total: decimal.Zero}, nil
	}
	sales, err := costing.ResolveSales(orders.Sales(list), catalog)
	if err != nil {
		return costing.Breakdown{}, err
	}
	carried := map[string]costing.Stock{}
	snap, err := s.snapshots.GetByDate(ctx, shared.PrevDay(date))
	switch {
	case err == nil:
		carried = snap.Levels()
	case !errors.Is(err, shared.ErrNotFound):
		return costing.Breakdown{}, err
	}
	prices := map[string]decimal.Decimal{}
	p, err := s.purchases.GetByDate(ctx, date)
	switch {
	case err == nil:
		prices = p.Prices()
	case !errors.Is(err, shared.ErrNotFound):
		return costing.Breakdown{}, err
	}
	breakdown, err := costing.DailyCOGS(costing.DayInput{
		Sales:          sales,
		Carried:        carried,
		PurchasePrices: prices,
		Catalog:        catalog,
	})
	if err != nil {
		return costing.Breakdown{}, fmt.Errorf("economics: cogs %s: %w", shared.FormatDate(date), err)
	}
	return breakdown, nil
}

// Refresh recomputes the week and the month containing base and replaces their stored records.
func (s *Service) Refresh(ctx context.Context, base time.Time) ([]PeriodRecord, error) {
	week, month := Periods(base)
	records := make([]PeriodRecord, 2)

	g, gctx := errgroup.WithContext(ctx)
	for i, period := range []Period{week, month} {
		g.Go(func() error {
			rec, err := s.compute(gctx, period, base)
			if err != nil {
				return fmt.Errorf("economics: %s %s: %w", period.Type, period.Key, err)
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, rec := range records {
		if err := s.repo.ReplacePeriod(ctx, rec); err != nil {
			return nil, err
		}
		s.logger.Info("period refreshed",
			slog.String("tipo", rec.Type),
			slog.String("periodo", rec.Key),
			slog.Int("year", rec.Year),
			slog.String("net", rec.Net.StringFixed(2)))
	}
	return records, nil
}

// Periods lists stored records of a period type.
func (s *Service) Periods(ctx context.Context, periodType string) ([]PeriodRecord, error) {
	switch periodType {
	case PeriodWeekly, PeriodMonthly:
	default:
		return nil, fmt.Errorf("economics: period type %q: %w", periodType, shared.ErrInvalidInput)
	}
	return s.repo.ListPeriods(ctx, periodType)
}

func (s *Service) compute(ctx context.Context, period Period, base time.Time) (PeriodRecord, error) {
	list, err := s.orders.ListByRange(ctx, period.From, period.To)
	if err != nil {
		return PeriodRecord{}, err
	}
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return PeriodRecord{}, err
	}
	cogs := decimal.Zero
	for _, day := range shared.DaysBetween(period.From, period.To) {
		b, err := s.cogsFor(ctx, day, ordersOn(list, day), catalog)
		if err != nil {
			return PeriodRecord{}, err
		}
		cogs = cogs.Add(b.Total)
	}
	routes, err := s.routes.ListByRange(ctx, period.From, period.To)
	if err != nil {
		return PeriodRecord{}, err
	}
	logistics := decimal.Zero
	for _, r := range routes {
		logistics = logistics.Add(r.Cost)
	}
	rows, err := s.repo.FixedCosts(ctx, PeriodMonthly, MonthName(base.Month()), base.Year())
	if err != nil {
		return PeriodRecord{}, err
	}
	fixed := Apportion(SumFixedCosts(rows), period.Type)

	sales := SalesMetrics(list)
	result := NetResult(sales.GMV, cogs, fixed, logistics)
	rec := PeriodRecord{
		Period:      period,
		GMV:         sales.GMV,
		COGS:        cogs.Round(2),
		GrossProfit: result.GrossProfit.Round(2),
		LastMile:    logistics,
		Fixed:       fixed,
		Opex:        result.Opex.Round(2),
		Net:         result.Net.Round(2),
		Orders:      sales.Orders,
		Lines:       sales.Lines,
		AOV:         sales.AOV,
		ALV:         sales.ALV,
		MUA:         sales.MUA,
		UpdatedAt:   s.now().UTC(),
	}
	rec.Display = displayFields(rec)
	return rec, nil
}

// DailySeries returns one point per day in [from, to].
func (s *Service) DailySeries(ctx context.Context, from, to time.Time) ([]DailyPoint, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("economics: range %s..%s: %w", shared.FormatDate(from), shared.FormatDate(to), shared.ErrInvalidInput)
	}
	list, err := s.orders.ListByRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	routes, err := s.routes.ListByRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	logistics := make(map[string]decimal.Decimal, len(routes))
	for _, r := range routes {
		key := shared.FormatDate(r.Date)
		logistics[key] = logistics[key].Add(r.Cost)
	}

	var points []DailyPoint
	for _, day := range shared.DaysBetween(from, to) {
		dayOrders := ordersOn(list, day)
		b, err := s.cogsFor(ctx, day, dayOrders, catalog)
		if err != nil {
			return nil, err
		}
		rows, err := s.repo.FixedCosts(ctx, PeriodDaily, shared.FormatDate(day), day.Year())
		if err != nil {
			return nil, err
		}
		costs := make(map[string]decimal.Decimal, len(rows))
		for _, r := range rows {
			costs[r.Type] = costs[r.Type].Add(r.Amount)
		}
		sales := SalesMetrics(dayOrders)
		points = append(points, DailyPoint{
			Date:      day,
			GMV:       sales.GMV,
			COGS:      b.Total.Round(2),
			Logistics: logistics[shared.FormatDate(day)],
			Orders:    sales.Orders,
			Lines:     sales.Lines,
			Costs:     costs,
		})
	}
	return points, nil
}

func ordersOn(list []orders.Order, day time.Time) []orders.Order {
	var out []orders.Order
	for _, o := range list {
		if shared.FormatDate(o.DeliveryDate) == shared.FormatDate(day) {
			out = append(out, o)
		}
	}
	return out
}
