package invoicing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/frescapp/backoffice/internal/orders"
	"github.com/frescapp/backoffice/internal/purchasing"
	"github.com/frescapp/backoffice/internal/shared"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type fakeProvider struct {
	mu       sync.Mutex
	calls    []time.Time
	reject   map[string]bool
	block    bool
	invoices []Invoice
	docs     []SupportDocument
}

func (p *fakeProvider) CreateInvoice(ctx context.Context, inv Invoice) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, time.Now())
	p.invoices = append(p.invoices, inv)
	p.mu.Unlock()
	if p.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if p.reject[inv.OrderNumber] {
		return "", fmt.Errorf("alegra: client not registered: %w", shared.ErrExternalCollaborator)
	}
	return "INV-" + inv.OrderNumber, nil
}

func (p *fakeProvider) CreateSupportDocument(_ context.Context, doc SupportDocument) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs = append(p.docs, doc)
	if p.reject[doc.SupplierNIT] {
		return "", errors.New("bill rejected")
	}
	return fmt.Sprintf("BILL-%d", doc.Number), nil
}

type memoryOrders struct {
	list []orders.Order
}

func (m *memoryOrders) ListPendingInvoice(context.Context, time.Time) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range m.list {
		if o.AwaitingInvoice() {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memoryOrders) Get(_ context.Context, number string) (orders.Order, error) {
	for _, o := range m.list {
		if o.Number == number {
			return o, nil
		}
	}
	return orders.Order{}, shared.ErrNotFound
}

func (m *memoryOrders) SetInvoiceID(_ context.Context, number, id string) error {
	for i := range m.list {
		if m.list[i].Number == number {
			m.list[i].InvoiceID = id
			return nil
		}
	}
	return shared.ErrNotFound
}

type memoryPurchases struct {
	p purchasing.Purchase
}

func (m *memoryPurchases) GetByDate(context.Context, time.Time) (purchasing.Purchase, error) {
	if m.p.Number == 0 {
		return purchasing.Purchase{}, fmt.Errorf("memory: %w", shared.ErrNotFound)
	}
	return m.p, nil
}

func (m *memoryPurchases) UpdateLines(_ context.Context, _ int64, fn func([]purchasing.Line) ([]purchasing.Line, error)) error {
	lines, err := fn(append([]purchasing.Line(nil), m.p.Lines...))
	if err != nil {
		return err
	}
	m.p.Lines = lines
	return nil
}

func (m *memoryPurchases) MarkInvoiced(context.Context, int64) error {
	m.p.Status = purchasing.StatusInvoiced
	return nil
}

type counter struct{ n int64 }

func (c *counter) Next(context.Context, string) (int64, error) {
	c.n++
	return c.n, nil
}

func pendingOrder(number string) orders.Order {
	return orders.Order{
		Number:    number,
		InvoiceID: orders.NoInvoice,
		Customer:  orders.Customer{Document: "900123"},
		Lines: []orders.Line{
			{SKU: "TOM-01", Name: "Tomate", Price: dec("2500"), Quantity: dec("1")},
			{SKU: "AJO-01", Name: "Ajo", Price: dec("800"), Quantity: dec("1")},
		},
	}
}

func TestInvoicePendingOrdersCollectsFailures(t *testing.T) {
	store := &memoryOrders{list: []orders.Order{pendingOrder("F-1"), pendingOrder("F-2"), pendingOrder("F-3"), {Number: "F-4", InvoiceID: "77"}}}
	provider := &fakeProvider{reject: map[string]bool{"F-2": true}}
	svc := NewService(provider, store, &memoryPurchases{}, &counter{}, Options{Delay: 20 * time.Millisecond}, nil)

	batch, err := svc.InvoicePendingOrders(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, batch.Invoiced, 2)
	require.Equal(t, "INV-F-3", batch.Invoiced["F-3"])
	require.Len(t, batch.Failed, 1)
	require.Equal(t, "F-2", batch.Failed[0].OrderNumber)
	require.Equal(t, orders.NoInvoice, store.list[1].InvoiceID)
	require.Equal(t, "INV-F-1", store.list[0].InvoiceID)

	require.Len(t, provider.calls, 3)
	for i := 1; i < len(provider.calls); i++ {
		require.GreaterOrEqual(t, provider.calls[i].Sub(provider.calls[i-1]), 15*time.Millisecond)
	}
	require.Equal(t, "Ajo", provider.invoices[0].Items[0].Name)

	// A rerun only retries the rejected order.
	provider.reject = nil
	batch, err = svc.InvoicePendingOrders(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, batch.Invoiced, 1)
	require.Len(t, provider.calls, 4)
}

func TestInvoicePendingOrdersTimeoutFailsStep(t *testing.T) {
	store := &memoryOrders{list: []orders.Order{pendingOrder("F-1"), pendingOrder("F-2")}}
	provider := &fakeProvider{block: true}
	svc := NewService(provider, store, &memoryPurchases{}, &counter{}, Options{Timeout: 10 * time.Millisecond}, nil)

	_, err := svc.InvoicePendingOrders(context.Background(), time.Now())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, shared.ErrExternalCollaborator)
	require.Len(t, provider.calls, 1)
}

func TestSubmitOrderInvoiceIsIdempotent(t *testing.T) {
	store := &memoryOrders{list: []orders.Order{{Number: "F-9", InvoiceID: "123"}}}
	provider := &fakeProvider{}
	svc := NewService(provider, store, &memoryPurchases{}, &counter{}, Options{}, nil)

	id, err := svc.SubmitOrderInvoice(context.Background(), "F-9")
	require.NoError(t, err)
	require.Equal(t, "123", id)
	require.Empty(t, provider.calls)
}

func purchaseLine(sku, nit, status, price string) purchasing.Line {
	return purchasing.Line{
		SKU:           sku,
		TotalQuantity: dec("2"),
		FinalPrice:    dec(price),
		Status:        status,
		Supplier:      purchasing.Supplier{NIT: nit, SupportType: purchasing.SupportDocument},
	}
}

func TestSubmitPurchaseInvoiceGroupsBySupplier(t *testing.T) {
	purchases := &memoryPurchases{p: purchasing.Purchase{Number: 5, Status: purchasing.StatusCreated, Lines: []purchasing.Line{
		purchaseLine("TOM-01", "900", purchasing.LineRegistered, "2000"),
		purchaseLine("CEB-01", "900", purchasing.LineRegistered, "900"),
		purchaseLine("PAP-01", "800", purchasing.LineRegistered, "1500"),
		purchaseLine("LIM-01", "800", purchasing.LineCreated, "300"),
		purchaseLine("AJO-01", "800", purchasing.LineRegistered, "0"),
		purchaseLine("YUC-01", "", purchasing.LineRegistered, "700"),
	}}}
	provider := &fakeProvider{reject: map[string]bool{"900": true}}
	seq := &counter{}
	svc := NewService(provider, &memoryOrders{}, purchases, seq, Options{}, nil)

	result, err := svc.SubmitPurchaseInvoice(context.Background(), time.Now())
	require.ErrorIs(t, err, shared.ErrExternalCollaborator)
	require.Len(t, result.Documents, 1)
	require.Equal(t, "800", result.Documents[0].SupplierNIT)
	require.Equal(t, 1, result.Documents[0].Lines)
	require.Len(t, result.Failed, 1)
	require.Equal(t, purchasing.StatusCreated, purchases.p.Status)
	require.Equal(t, purchasing.LineInvoiced, purchases.p.Lines[2].Status)
	require.Equal(t, purchasing.LineCreated, purchases.p.Lines[3].Status)

	// Retry resubmits only the rejected supplier and then closes the purchase.
	provider.reject = nil
	result, err = svc.SubmitPurchaseInvoice(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	require.Equal(t, "900", result.Documents[0].SupplierNIT)
	require.Len(t, provider.docs[2].Items, 2)
	require.Equal(t, purchasing.StatusInvoiced, purchases.p.Status)
	require.Equal(t, int64(3), seq.n)

	_, err = svc.SubmitPurchaseInvoice(context.Background(), time.Now())
	require.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestSubmitPurchaseInvoiceWithoutPurchase(t *testing.T) {
	svc := NewService(&fakeProvider{}, &memoryOrders{}, &memoryPurchases{}, &counter{}, Options{}, nil)
	_, err := svc.SubmitPurchaseInvoice(context.Background(), time.Now())
	require.ErrorIs(t, err, shared.ErrNothingToDo)
}
