package closing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/costing"
	"github.com/frescapp/backoffice/internal/inventory"
	"github.com/frescapp/backoffice/internal/invoicing"
	"github.com/frescapp/backoffice/internal/orders"
	"github.com/frescapp/backoffice/internal/purchasing"
	"github.com/frescapp/backoffice/internal/routing"
	"github.com/frescapp/backoffice/internal/shared"
)

// Invoicer submits orders and purchases to the invoicing provider.
type Invoicer interface {
	InvoicePendingOrders(ctx context.Context, date time.Time) (invoicing.OrderBatch, error)
	SubmitPurchaseInvoice(ctx context.Context, date time.Time) (invoicing.PurchaseResult, error)
}

// RouteBuilder creates the route of a date.
type RouteBuilder interface {
	CreateFor(ctx context.Context, date time.Time) (routing.Route, error)
}

// PurchaseForecaster creates the purchase of a date.
type PurchaseForecaster interface {
	ForecastFor(ctx context.Context, date time.Time) (purchasing.Purchase, error)
}

// InventoryProjector creates the snapshot of a date.
type InventoryProjector interface {
	CarryOver(ctx context.Context, from, to time.Time) (inventory.Snapshot, error)
	ProjectFor(ctx context.Context, date time.Time) (inventory.Snapshot, error)
}

// OrderFacts reads the orders and receivables behind a record.
type OrderFacts interface {
	ListByDeliveryDate(ctx context.Context, date time.Time) ([]orders.Order, error)
	SumOutstanding(ctx context.Context) (decimal.Decimal, error)
}

// RouteFacts reads the route of a date.
type RouteFacts interface {
	GetByDate(ctx context.Context, date time.Time) (routing.Route, error)
}

// ValueSource reports the value held by a date-keyed document.
type ValueSource interface {
	TotalByDate(ctx context.Context, date time.Time) (decimal.Decimal, error)
}

// COGSCalculator costs the sales of a date.
type COGSCalculator interface {
	DailyCOGS(ctx context.Context, date time.Time) (costing.Breakdown, error)
}

// RecordStore persists closing records.
type RecordStore interface {
	Exists(ctx context.Context, date time.Time) (bool, error)
	Insert(ctx context.Context, rec Record) error
}

// StepObserver counts step outcomes.
type StepObserver interface {
	ObserveStep(step, outcome string)
}

// Deps are the collaborators of a saga.
type Deps struct {
	Invoicer  Invoicer
	Routes    RouteBuilder
	Purchases PurchaseForecaster
	Inventory InventoryProjector
	Orders    OrderFacts
	RouteLog  RouteFacts
	Spend     ValueSource
	Stock     ValueSource
	COGS      COGSCalculator
	Records   RecordStore
}

// Saga executes the closing steps of one date in order.
type Saga struct {
	deps     Deps
	timeout  time.Duration
	observer StepObserver
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// SagaOption customises a Saga.
type SagaOption func(*Saga)

// WithStepTimeout bounds the route, purchase and inventory steps.
func WithStepTimeout(d time.Duration) SagaOption {
	return func(s *Saga) { s.timeout = d }
}

// WithObserver reports step outcomes to o.
func WithObserver(o StepObserver) SagaOption {
	return func(s *Saga) { s.observer = o }
}

// WithClock overrides the clock stamped on records.
func WithClock(now func() time.Time) SagaOption {
	return func(s *Saga) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSaga constructs a saga.
func NewSaga(deps Deps, logger *slog.Logger, opts ...SagaOption) *Saga {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Saga{
		deps:   deps,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type handler struct {
	step    Step
	bounded bool
	guard   func(date time.Time) (string, bool)
	run     func(ctx context.Context, date time.Time, res *Result) (StepResult, error)
}

func (s *Saga) handlers() []handler {
	return []handler{
		{step: StepInvoiceOrders, run: s.invoiceOrders},
		{step: StepInvoicePurchase, guard: skipSunday, run: s.invoicePurchase},
		{step: StepCreateRoute, bounded: true, run: s.createRoute},
		{step: StepForecastPurchase, bounded: true, run: s.forecastPurchase},
		{step: StepProjectInventory, bounded: true, run: s.projectInventory},
		{step: StepPersistRecord, run: s.persistRecord},
	}
}

func skipSunday(date time.Time) (string, bool) {
	if date.Weekday() == time.Sunday {
		return "no purchase invoicing on sunday", true
	}
	return "", false
}

// Run executes every step for date. A failed step stops the run; steps already committed stay
// committed and the returned error is a *StepError.
func (s *Saga) Run(ctx context.Context, date time.Time) (Result, error) {
	res := Result{RunID: s.newID(), Date: date, State: StateNotStarted}
	log := s.logger.With(slog.String("run_id", res.RunID), slog.String("date", shared.FormatDate(date)))

	for _, h := range s.handlers() {
		if err := ctx.Err(); err != nil {
			return s.fail(log, res, h.step, err)
		}
		var (
			sr  StepResult
			err error
		)
		if detail, skip := guarded(h, date); skip {
			sr = StepResult{Step: h.step, Outcome: OutcomeSkipped, Detail: detail}
		} else {
			stepCtx, cancel := ctx, context.CancelFunc(func() {})
			if h.bounded && s.timeout > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, s.timeout)
			}
			sr, err = h.run(stepCtx, date, &res)
			cancel()
			if err != nil {
				sr, err = settle(h.step, err)
			}
		}
		if err != nil {
			return s.fail(log, res, h.step, err)
		}

		next, err := Advance(res.State, h.step)
		if err != nil {
			return s.fail(log, res, h.step, err)
		}
		res.State = next
		res.Steps = append(res.Steps, sr)
		if sr.Outcome == OutcomeDone || sr.Outcome == OutcomePartial {
			res.Committed = append(res.Committed, h.step)
		}
		s.observe(h.step, sr.Outcome)
		log.Info("closing step finished",
			slog.String("step", string(h.step)),
			slog.String("outcome", string(sr.Outcome)),
			slog.String("detail", sr.Detail))
	}
	return res, nil
}

func guarded(h handler, date time.Time) (string, bool) {
	if h.guard == nil {
		return "", false
	}
	return h.guard(date)
}

// settle turns the idempotency sentinels into outcomes; anything else fails the step.
func settle(step Step, err error) (StepResult, error) {
	switch {
	case errors.Is(err, shared.ErrAlreadyExists), errors.Is(err, shared.ErrDuplicateCloseAttempt):
		return StepResult{Step: step, Outcome: OutcomeSkipped, Detail: err.Error()}, nil
	case errors.Is(err, shared.ErrNothingToDo):
		return StepResult{Step: step, Outcome: OutcomeNothingToDo, Detail: err.Error()}, nil
	default:
		return StepResult{}, err
	}
}

func (s *Saga) fail(log *slog.Logger, res Result, step Step, err error) (Result, error) {
	res.State = StateFailed
	res.Failed = &Failure{Step: step, Cause: err.Error()}
	res.Steps = append(res.Steps, StepResult{Step: step, Outcome: OutcomeFailed, Detail: err.Error()})
	s.observe(step, OutcomeFailed)
	log.Error("closing step failed", slog.String("step", string(step)), slog.Any("error", err))
	return res, &StepError{Step: step, Err: err}
}

func (s *Saga) observe(step Step, outcome Outcome) {
	if s.observer != nil {
		s.observer.ObserveStep(string(step), string(outcome))
	}
}

func (s *Saga) invoiceOrders(ctx context.Context, date time.Time, _ *Result) (StepResult, error) {
	batch, err := s.deps.Invoicer.InvoicePendingOrders(ctx, date)
	if err != nil {
		return StepResult{}, err
	}
	sr := StepResult{Step: StepInvoiceOrders, Detail: fmt.Sprintf("%d invoiced, %d failed", len(batch.Invoiced), len(batch.Failed))}
	switch {
	case len(batch.Failed) > 0:
		sr.Outcome = OutcomePartial
		for _, f := range batch.Failed {
			sr.Failed = append(sr.Failed, f.OrderNumber)
		}
	case len(batch.Invoiced) == 0:
		sr.Outcome = OutcomeNothingToDo
	default:
		sr.Outcome = OutcomeDone
	}
	return sr, nil
}

func (s *Saga) invoicePurchase(ctx context.Context, date time.Time, _ *Result) (StepResult, error) {
	result, err := s.deps.Invoicer.SubmitPurchaseInvoice(ctx, date)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{
		Step:    StepInvoicePurchase,
		Outcome: OutcomeDone,
		Detail:  fmt.Sprintf("purchase %d: %d support documents", result.PurchaseNumber, len(result.Documents)),
	}, nil
}

func (s *Saga) createRoute(ctx context.Context, date time.Time, _ *Result) (StepResult, error) {
	route, err := s.deps.Routes.CreateFor(ctx, shared.NextDay(date))
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{
		Step:    StepCreateRoute,
		Outcome: OutcomeDone,
		Detail:  fmt.Sprintf("route %d with %d stops", route.Number, len(route.Stops)),
	}, nil
}

func (s *Saga) forecastPurchase(ctx context.Context, date time.Time, _ *Result) (StepResult, error) {
	p, err := s.deps.Purchases.ForecastFor(ctx, shared.NextDay(date))
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{
		Step:    StepForecastPurchase,
		Outcome: OutcomeDone,
		Detail:  fmt.Sprintf("purchase %d with %d lines", p.Number, len(p.Lines)),
	}, nil
}

func (s *Saga) projectInventory(ctx context.Context, date time.Time, _ *Result) (StepResult, error) {
	next := shared.NextDay(date)
	var (
		snap inventory.Snapshot
		err  error
		how  string
	)
	if date.Weekday() == time.Saturday {
		snap, err = s.deps.Inventory.CarryOver(ctx, date, next)
		how = "carried over"
	} else {
		snap, err = s.deps.Inventory.ProjectFor(ctx, next)
		how = "projected"
	}
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{
		Step:    StepProjectInventory,
		Outcome: OutcomeDone,
		Detail:  fmt.Sprintf("%s %d items", how, len(snap.Items)),
	}, nil
}

func (s *Saga) persistRecord(ctx context.Context, date time.Time, res *Result) (StepResult, error) {
	exists, err := s.deps.Records.Exists(ctx, date)
	if err != nil {
		return StepResult{}, err
	}
	if exists {
		return StepResult{}, fmt.Errorf("closing: record for %s: %w", shared.FormatDate(date), shared.ErrDuplicateCloseAttempt)
	}
	facts, err := s.gather(ctx, date)
	if err != nil {
		return StepResult{}, err
	}
	rec := BuildRecord(facts)
	rec.RunID = res.RunID
	rec.CreatedAt = s.now().UTC()
	if err := s.deps.Records.Insert(ctx, rec); err != nil {
		return StepResult{}, err
	}
	res.Record = &rec
	return StepResult{
		Step:    StepPersistRecord,
		Outcome: OutcomeDone,
		Detail:  fmt.Sprintf("gmv %s cogs %s leakage %s", rec.GMV.StringFixed(0), rec.COGS.StringFixed(0), rec.Leakage.StringFixed(0)),
	}, nil
}

func (s *Saga) gather(ctx context.Context, date time.Time) (Facts, error) {
	f := Facts{Date: date}
	var err error
	if f.Orders, err = s.deps.Orders.ListByDeliveryDate(ctx, date); err != nil {
		return Facts{}, err
	}
	breakdown, err := s.deps.COGS.DailyCOGS(ctx, date)
	if err != nil {
		return Facts{}, err
	}
	f.COGS = breakdown.Total
	if f.PurchaseValue, err = s.deps.Spend.TotalByDate(ctx, date); err != nil {
		return Facts{}, err
	}
	if f.InventoryPrev, err = s.deps.Stock.TotalByDate(ctx, shared.PrevDay(date)); err != nil {
		return Facts{}, err
	}
	if f.InventoryToday, err = s.deps.Stock.TotalByDate(ctx, date); err != nil {
		return Facts{}, err
	}
	if f.CarteraTotal, err = s.deps.Orders.SumOutstanding(ctx); err != nil {
		return Facts{}, err
	}
	route, err := s.deps.RouteLog.GetByDate(ctx, date)
	switch {
	case err == nil:
		f.Route = &route
	case !errors.Is(err, shared.ErrNotFound):
		return Facts{}, err
	}
	return f, nil
}
