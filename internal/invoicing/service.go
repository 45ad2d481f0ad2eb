package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/frescapp/backoffice/internal/orders"
	"github.com/frescapp/backoffice/internal/purchasing"
	"github.com/frescapp/backoffice/internal/sequence"
	"github.com/frescapp/backoffice/internal/shared"
)

// OrderStore is the order access needed for invoicing.
type OrderStore interface {
	ListPendingInvoice(ctx context.Context, date time.Time) ([]orders.Order, error)
	Get(ctx context.Context, number string) (orders.Order, error)
	SetInvoiceID(ctx context.Context, number, invoiceID string) error
}

// PurchaseStore is the purchase access needed for support documents.
type PurchaseStore interface {
	GetByDate(ctx context.Context, date time.Time) (purchasing.Purchase, error)
	UpdateLines(ctx context.Context, number int64, fn func([]purchasing.Line) ([]purchasing.Line, error)) error
	MarkInvoiced(ctx context.Context, number int64) error
}

// Sequencer mints support document numbers.
type Sequencer interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Options tunes throttling and per-call timeouts.
type Options struct {
	Delay   time.Duration
	Timeout time.Duration
}

// OrderFailure is an order the provider rejected.
type OrderFailure struct {
	OrderNumber string `json:"order_number"`
	Error       string `json:"error"`
}

// OrderBatch is the outcome of invoicing a day's pending orders.
type OrderBatch struct {
	Invoiced map[string]string `json:"invoiced"`
	Failed   []OrderFailure    `json:"failed,omitempty"`
}

// SupportResult is one support document accepted by the provider.
type SupportResult struct {
	SupplierNIT string `json:"nit"`
	Number      int64  `json:"number"`
	ProviderID  string `json:"provider_id"`
	Lines       int    `json:"lines"`
}

// SupplierFailure is a supplier group the provider rejected.
type SupplierFailure struct {
	SupplierNIT string `json:"nit"`
	Error       string `json:"error"`
}

// PurchaseResult is the outcome of invoicing a purchase.
type PurchaseResult struct {
	PurchaseNumber int64             `json:"purchase_number"`
	Documents      []SupportResult   `json:"documents"`
	Failed         []SupplierFailure `json:"failed,omitempty"`
}

// Service drives the provider for orders and purchases.
type Service struct {
	provider  Provider
	orders    OrderStore
	purchases PurchaseStore
	seq       Sequencer
	limiter   *rate.Limiter
	timeout   time.Duration
	logger    *slog.Logger
}

// NewService constructs the invoicing service.
func NewService(provider Provider, orderStore OrderStore, purchases PurchaseStore, seq Sequencer, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		provider:  provider,
		orders:    orderStore,
		purchases: purchases,
		seq:       seq,
		limiter:   rate.NewLimiter(limit, 1),
		timeout:   timeout,
		logger:    logger,
	}
}

// SubmitOrderInvoice invoices one order and links the provider id to it. Orders already invoiced
// return their existing id.
func (s *Service) SubmitOrderInvoice(ctx context.Context, orderNumber string) (string, error) {
	o, err := s.orders.Get(ctx, orderNumber)
	if err != nil {
		return "", err
	}
	return s.submitOrder(ctx, o)
}

func (s *Service) submitOrder(ctx context.Context, o orders.Order) (string, error) {
	if !o.AwaitingInvoice() {
		return o.InvoiceID, nil
	}
	inv := Invoice{
		OrderNumber:          o.Number,
		Date:                 o.DeliveryDate,
		ClientIdentification: o.Customer.Document,
		PaymentMethod:        o.PaymentMethod,
		Items:                make([]Item, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		inv.Items = append(inv.Items, Item{Reference: l.SKU, Name: l.Name, Price: l.Price, Quantity: l.Quantity})
	}
	sort.Slice(inv.Items, func(i, j int) bool { return inv.Items[i].Name < inv.Items[j].Name })

	// Once issued a provider call runs to completion or timeout; cancellation is checked between calls.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	id, err := s.provider.CreateInvoice(callCtx, inv)
	cancel()
	if err != nil {
		return "", collaboratorError("invoice order "+o.Number, err)
	}
	if err := s.orders.SetInvoiceID(context.WithoutCancel(ctx), o.Number, id); err != nil {
		return "", err
	}
	return id, nil
}

// InvoicePendingOrders invoices every order of date still awaiting an invoice, one provider call at
// a time. Rejected orders are collected; a timeout, a cancellation or a storage failure aborts the batch.
func (s *Service) InvoicePendingOrders(ctx context.Context, date time.Time) (OrderBatch, error) {
	batch := OrderBatch{Invoiced: map[string]string{}}
	pending, err := s.orders.ListPendingInvoice(ctx, date)
	if err != nil {
		return batch, err
	}
	for _, o := range pending {
		if err := s.limiter.Wait(ctx); err != nil {
			return batch, fmt.Errorf("invoicing: throttle: %w", err)
		}
		id, err := s.submitOrder(ctx, o)
		switch {
		case err == nil:
			batch.Invoiced[o.Number] = id
		case abortsBatch(err):
			return batch, err
		default:
			s.logger.Warn("order invoice rejected", slog.String("order_number", o.Number), slog.Any("error", err))
			batch.Failed = append(batch.Failed, OrderFailure{OrderNumber: o.Number, Error: err.Error()})
		}
	}
	s.logger.Info("orders invoiced",
		slog.String("date", shared.FormatDate(date)),
		slog.Int("invoiced", len(batch.Invoiced)),
		slog.Int("failed", len(batch.Failed)))
	return batch, nil
}

// SubmitPurchaseInvoice sends one support document per supplier for the confirmed lines of the
// purchase of date. Each accepted group marks its lines invoiced so a retry only resubmits the
// rejected ones; the purchase turns Facturada once every group is accepted.
func (s *Service) SubmitPurchaseInvoice(ctx context.Context, date time.Time) (PurchaseResult, error) {
	p, err := s.purchases.GetByDate(ctx, date)
	if errors.Is(err, shared.ErrNotFound) {
		return PurchaseResult{}, fmt.Errorf("invoicing: no purchase for %s: %w", shared.FormatDate(date), shared.ErrNothingToDo)
	}
	if err != nil {
		return PurchaseResult{}, err
	}
	result := PurchaseResult{PurchaseNumber: p.Number}
	if p.Status == purchasing.StatusInvoiced {
		return result, fmt.Errorf("invoicing: purchase %d: %w", p.Number, shared.ErrAlreadyExists)
	}
	groups := supportGroups(p.Lines)
	if len(groups) == 0 {
		return result, fmt.Errorf("invoicing: purchase %d has no confirmed supplier lines: %w", p.Number, shared.ErrNothingToDo)
	}

	for _, g := range groups {
		if err := s.limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("invoicing: throttle: %w", err)
		}
		doc, err := s.submitGroup(ctx, p, g)
		if err != nil {
			if abortsBatch(err) {
				return result, err
			}
			s.logger.Warn("support document rejected",
				slog.Int64("purchase_number", p.Number),
				slog.String("nit", g.nit),
				slog.Any("error", err))
			result.Failed = append(result.Failed, SupplierFailure{SupplierNIT: g.nit, Error: err.Error()})
			continue
		}
		result.Documents = append(result.Documents, doc)
	}

	if len(result.Failed) > 0 {
		return result, fmt.Errorf("invoicing: purchase %d: %d of %d support documents rejected: %w",
			p.Number, len(result.Failed), len(groups), shared.ErrExternalCollaborator)
	}
	if err := s.purchases.MarkInvoiced(ctx, p.Number); err != nil {
		return result, err
	}
	s.logger.Info("purchase invoiced", slog.Int64("purchase_number", p.Number), slog.Int("documents", len(result.Documents)))
	return result, nil
}

func (s *Service) submitGroup(ctx context.Context, p purchasing.Purchase, g supportGroup) (SupportResult, error) {
	number, err := s.seq.Next(ctx, sequence.InvoiceCounter)
	if err != nil {
		return SupportResult{}, err
	}
	doc := SupportDocument{Number: number, Date: p.Date, SupplierNIT: g.nit}
	for _, l := range g.lines {
		doc.Items = append(doc.Items, Item{Reference: l.SKU, Name: l.Name, Price: l.FinalPrice, Quantity: l.TotalQuantity})
	}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	id, err := s.provider.CreateSupportDocument(callCtx, doc)
	cancel()
	if err != nil {
		return SupportResult{}, collaboratorError("support document "+g.nit, err)
	}

	invoiceNumber := strconv.FormatInt(number, 10)
	err = s.purchases.UpdateLines(context.WithoutCancel(ctx), p.Number, func(lines []purchasing.Line) ([]purchasing.Line, error) {
		for i := range lines {
			if lines[i].Supplier.NIT == g.nit && eligible(lines[i]) {
				lines[i].Status = purchasing.LineInvoiced
				lines[i].InvoiceNumber = invoiceNumber
			}
		}
		return lines, nil
	})
	if err != nil {
		return SupportResult{}, err
	}
	return SupportResult{SupplierNIT: g.nit, Number: number, ProviderID: id, Lines: len(g.lines)}, nil
}

type supportGroup struct {
	nit   string
	lines []purchasing.Line
}

func eligible(l purchasing.Line) bool {
	return l.Supplier.NIT != "" &&
		l.FinalPrice.Sign() > 0 &&
		l.Status == purchasing.LineRegistered &&
		l.Supplier.SupportType == purchasing.SupportDocument
}

func supportGroups(lines []purchasing.Line) []supportGroup {
	byNIT := make(map[string][]purchasing.Line)
	for _, l := range lines {
		if eligible(l) {
			byNIT[l.Supplier.NIT] = append(byNIT[l.Supplier.NIT], l)
		}
	}
	out := make([]supportGroup, 0, len(byNIT))
	for nit, ls := range byNIT {
		out = append(out, supportGroup{nit: nit, lines: ls})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].nit < out[j].nit })
	return out
}

func collaboratorError(op string, err error) error {
	if errors.Is(err, shared.ErrExternalCollaborator) {
		return fmt.Errorf("invoicing: %s: %w", op, err)
	}
	return fmt.Errorf("invoicing: %s: %w: %w", op, shared.ErrExternalCollaborator, err)
}

func abortsBatch(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, shared.ErrExternalCollaborator) {
		return false
	}
	return shared.IsUnavailable(err)
}
