package routing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/frescapp/backoffice/internal/orders"
	"github.com/frescapp/backoffice/internal/sequence"
	"github.com/frescapp/backoffice/internal/shared"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func day(s string) time.Time {
	t, _ := shared.ParseDate(s)
	return t
}

type memoryRepo struct {
	routes map[int64]Route
}

func (r *memoryRepo) GetByDate(_ context.Context, date time.Time) (Route, error) {
	for _, route := range r.routes {
		if route.Date.Equal(date) {
			return route, nil
		}
	}
	return Route{}, fmt.Errorf("memory: %w", shared.ErrNotFound)
}

func (r *memoryRepo) GetByNumber(_ context.Context, number int64) (Route, error) {
	route, ok := r.routes[number]
	if !ok {
		return Route{}, fmt.Errorf("memory: %w", shared.ErrNotFound)
	}
	return route, nil
}

func (r *memoryRepo) Insert(_ context.Context, route Route) error {
	r.routes[route.Number] = route
	return nil
}

func (r *memoryRepo) UpdateStops(_ context.Context, number int64, stops []Stop, cost decimal.Decimal) error {
	route := r.routes[number]
	route.Stops = stops
	route.Cost = cost
	r.routes[number] = route
	return nil
}

type paymentCall struct {
	number  string
	payment string
	paid    decimal.Decimal
}

type memoryOrders struct {
	byDate   map[string][]orders.Order
	status   map[string]orders.Status
	payments []paymentCall
}

func (m *memoryOrders) ListByDeliveryDate(_ context.Context, date time.Time) ([]orders.Order, error) {
	return m.byDate[shared.FormatDate(date)], nil
}

func (m *memoryOrders) UpdatePayment(_ context.Context, number, payment string, paid decimal.Decimal) error {
	m.payments = append(m.payments, paymentCall{number: number, payment: payment, paid: paid})
	if status, ok := orders.LifecycleForPayment(payment); ok {
		if m.status == nil {
			m.status = map[string]orders.Status{}
		}
		m.status[number] = status
	}
	return nil
}

type counter struct{ last map[string]int64 }

func (c *counter) Next(_ context.Context, name string) (int64, error) {
	c.last[name]++
	return c.last[name], nil
}

func sampleOrders() []orders.Order {
	return []orders.Order{
		{
			Number:        "F-1",
			Customer:      orders.Customer{Name: "Rest A", Address: "Cra 7 # 12-30", Phone: "3001234567"},
			PaymentMethod: "Efectivo",
			DriverName:    "Luis",
			Lines: []orders.Line{
				{SKU: "TOM-01", Price: dec("2500"), Quantity: dec("2")},
				{SKU: "CEB-01", Price: dec("1000"), Quantity: dec("1")},
			},
		},
		{
			Number:        "F-2",
			Customer:      orders.Customer{Name: "Rest B"},
			PaymentMethod: "Davivienda",
			DriverName:    "Ana",
			Lines:         []orders.Line{{SKU: "PAP-01", Price: dec("3000"), Quantity: dec("1")}},
		},
	}
}

func TestBuildLaysOutStops(t *testing.T) {
	route := Build(12, day("2024-03-12"), sampleOrders())
	require.Len(t, route.Stops, 2)
	first := route.Stops[0]
	require.Equal(t, 1, first.Position)
	require.Equal(t, "F-1", first.OrderNumber)
	require.Equal(t, 2, first.QuantitySKU)
	require.True(t, dec("6000").Equal(first.TotalToCharge))
	require.Equal(t, StopPending, first.Status)
}

func TestCreateForMintsNumberOnlyWithOrders(t *testing.T) {
	repo := &memoryRepo{routes: map[int64]Route{}}
	store := &memoryOrders{byDate: map[string][]orders.Order{"2024-03-12": sampleOrders()}}
	seq := &counter{last: map[string]int64{sequence.RouteNumber: 41}}
	svc := NewService(repo, store, seq, nil)

	_, err := svc.CreateFor(context.Background(), day("2024-03-13"))
	require.ErrorIs(t, err, shared.ErrNothingToDo)
	require.Equal(t, int64(41), seq.last[sequence.RouteNumber])

	route, err := svc.CreateFor(context.Background(), day("2024-03-12"))
	require.NoError(t, err)
	require.Equal(t, int64(42), route.Number)

	_, err = svc.CreateFor(context.Background(), day("2024-03-12"))
	require.ErrorIs(t, err, shared.ErrAlreadyExists)
	require.Equal(t, int64(42), seq.last[sequence.RouteNumber])
}

func TestUpdateStopsPropagatesPayments(t *testing.T) {
	repo := &memoryRepo{routes: map[int64]Route{7: Build(7, day("2024-03-12"), sampleOrders())}}
	store := &memoryOrders{}
	svc := NewService(repo, store, &counter{last: map[string]int64{}}, nil)

	cost := dec("45000")
	route, err := svc.UpdateStops(context.Background(), 7, []StopUpdate{
		{OrderNumber: "F-1", Status: StopPaid, TotalCharged: dec("6000"), PaymentMethod: "Bancolombia"},
		{OrderNumber: "F-2", Status: StopOnCredit},
	}, &cost)
	require.NoError(t, err)
	require.True(t, cost.Equal(route.Cost))
	require.Equal(t, "Bancolombia", repo.routes[7].Stops[0].PaymentMethod)
	require.Len(t, store.payments, 2)
	require.Equal(t, StopPaid, store.payments[0].payment)
	require.True(t, dec("6000").Equal(store.payments[0].paid))
	require.Equal(t, orders.StatusPaid, store.status["F-1"])
	require.Equal(t, orders.StatusPendingPayment, store.status["F-2"])

	_, err = svc.UpdateStops(context.Background(), 7, []StopUpdate{{OrderNumber: "F-9", Status: StopPaid}}, nil)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestUpdateStopsPendingDeliveryKeepsOrderStatus(t *testing.T) {
	repo := &memoryRepo{routes: map[int64]Route{7: Build(7, day("2024-03-12"), sampleOrders())}}
	store := &memoryOrders{status: map[string]orders.Status{"F-1": orders.StatusInvoiced}}
	svc := NewService(repo, store, &counter{last: map[string]int64{}}, nil)

	_, err := svc.UpdateStops(context.Background(), 7, []StopUpdate{
		{OrderNumber: "F-1", Status: StopPending, TotalCharged: dec("0")},
	}, nil)
	require.NoError(t, err)
	require.Len(t, store.payments, 1)
	require.Equal(t, StopPending, store.payments[0].payment)
	require.Equal(t, orders.StatusInvoiced, store.status["F-1"])
}

func TestConsolidateGroupsByDriver(t *testing.T) {
	route := Build(7, day("2024-03-12"), sampleOrders())
	route.Stops[0].TotalCharged = dec("6000")
	route.Stops[1].TotalCharged = dec("3000")

	got := Consolidate(route)
	require.Len(t, got, 2)
	require.Equal(t, "Ana", got[0].Driver)
	require.Equal(t, 1, got[0].Stops)
	require.True(t, dec("3000").Equal(got[0].ByPaymentMethod["Davivienda"]))
	require.Equal(t, "Luis", got[1].Driver)
	require.Equal(t, 2, got[1].SKUs)
	require.True(t, dec("6000").Equal(got[1].ToCharge))
}
