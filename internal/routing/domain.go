// Package routing builds the delivery route of a day and records delivery feedback.
package routing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/orders"
)

// Stop statuses.
const (
	StopPending  = "Por entregar"
	StopPaid     = "Pagada"
	StopOnCredit = "Pendiente de pago"
)

// Stop is one delivery on a route.
type Stop struct {
	Position      int             `json:"order"`
	OrderNumber   string          `json:"order_number"`
	ClientName    string          `json:"client_name"`
	Address       string          `json:"address"`
	Phone         string          `json:"phone"`
	Slot          string          `json:"slot"`
	OpenHour      string          `json:"open_hour"`
	TotalToCharge decimal.Decimal `json:"total_to_charge"`
	TotalCharged  decimal.Decimal `json:"total_charged"`
	QuantitySKU   int             `json:"quantity_sku"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	DriverName    string          `json:"driver_name"`
}

// Paid reports whether the stop was collected.
func (s Stop) Paid() bool {
	return s.Status == StopPaid
}

// Route is the delivery plan of one close date.
type Route struct {
	Number int64           `json:"route_number"`
	Date   time.Time       `json:"close_date"`
	Stops  []Stop          `json:"stops"`
	Cost   decimal.Decimal `json:"cost"`
}

// Build lays out one stop per order, in the given order.
func Build(number int64, date time.Time, list []orders.Order) Route {
	r := Route{Number: number, Date: date, Stops: make([]Stop, 0, len(list)), Cost: decimal.Zero}
	for i, o := range list {
		r.Stops = append(r.Stops, Stop{
			Position:      i + 1,
			OrderNumber:   o.Number,
			ClientName:    o.Customer.Name,
			Address:       o.Customer.Address,
			Phone:         o.Customer.Phone,
			Slot:          o.DeliverySlot,
			OpenHour:      o.OpenHour,
			TotalToCharge: o.LinesTotal(),
			TotalCharged:  decimal.Zero,
			QuantitySKU:   len(o.Lines),
			PaymentMethod: o.PaymentMethod,
			Status:        StopPending,
			DriverName:    o.DriverName,
		})
	}
	return r
}

// DriverSummary totals one driver's stops.
type DriverSummary struct {
	Driver          string                     `json:"driver_name"`
	Stops           int                        `json:"stops"`
	SKUs            int                        `json:"quantity_sku"`
	ToCharge        decimal.Decimal            `json:"total_to_charge"`
	Charged         decimal.Decimal            `json:"total_charged"`
	ByPaymentMethod map[string]decimal.Decimal `json:"by_payment_method"`
}

// Consolidate groups the stops of a route by driver.
func Consolidate(r Route) []DriverSummary {
	byDriver := make(map[string]*DriverSummary)
	for _, s := range r.Stops {
		sum, ok := byDriver[s.DriverName]
		if !ok {
			sum = &DriverSummary{Driver: s.DriverName, ByPaymentMethod: map[string]decimal.Decimal{}}
			byDriver[s.DriverName] = sum
		}
		sum.Stops++
		sum.SKUs += s.QuantitySKU
		sum.ToCharge = sum.ToCharge.Add(s.TotalToCharge)
		sum.Charged = sum.Charged.Add(s.TotalCharged)
		sum.ByPaymentMethod[s.PaymentMethod] = sum.ByPaymentMethod[s.PaymentMethod].Add(s.TotalCharged)
	}
	out := make([]DriverSummary, 0, len(byDriver))
	for _, s := range byDriver {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Driver < out[j].Driver })
	return out
}
