// Package orders stores customer orders imported from the storefront.
package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/costing"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusCreated        Status = "Creada"
	StatusInvoiced       Status = "Facturada"
	StatusPendingPayment Status = "Pendiente de pago"
	StatusPaid           Status = "Pagada"
)

// LifecycleForPayment maps a delivery payment state onto the order lifecycle. Only a paid or
// on-credit delivery moves the order; anything else leaves its status untouched.
func LifecycleForPayment(payment string) (Status, bool) {
	switch Status(payment) {
	case StatusPaid, StatusPendingPayment:
		return Status(payment), true
	default:
		return "", false
	}
}

// NoInvoice marks an order that has not been sent to the invoicing provider yet.
const NoInvoice = "000"

// Line is one product on an order.
type Line struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price_sale"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Amount is price times quantity.
func (l Line) Amount() decimal.Decimal {
	return l.Price.Mul(l.Quantity)
}

// Customer identifies who placed the order.
type Customer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document"`
	Address  string `json:"address"`
}

// Order is a customer order for one delivery date.
type Order struct {
	Number        string          `json:"order_number"`
	DeliveryDate  time.Time       `json:"delivery_date"`
	Customer      Customer        `json:"customer"`
	Lines         []Line          `json:"products"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	DeliverySlot  string          `json:"delivery_slot"`
	OpenHour      string          `json:"open_hour"`
	DriverName    string          `json:"driver_name"`
	Status        Status          `json:"status"`
	PaymentStatus string          `json:"status_payment"`
	InvoiceID     string          `json:"invoice_id"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
}

// LinesTotal recomputes the order value from its lines.
func (o Order) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Amount())
	}
	return total
}

// AwaitingInvoice reports whether the order still carries the no-invoice sentinel.
func (o Order) AwaitingInvoice() bool {
	return o.InvoiceID == NoInvoice
}

// Sales flattens the lines of every order into costing sales.
func Sales(list []Order) []costing.Sale {
	var out []costing.Sale
	for _, o := range list {
		for _, l := range o.Lines {
			out = append(out, costing.Sale{SKU: l.SKU, Quantity: l.Quantity})
		}
	}
	return out
}
