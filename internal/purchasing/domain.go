// Package purchasing forecasts and tracks the daily purchase to suppliers.
package purchasing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/inventory"
)

// Status is the purchase lifecycle state.
type Status string

const (
	StatusCreated  Status = "Creada"
	StatusInvoiced Status = "Facturada"
)

// Line statuses.
const (
	LineCreated    = "Creada"
	LineRegistered = "Registrado"
	LineInvoiced   = "Facturada"
)

// SupportDocument is the supplier support type that must be reported to the tax provider.
const SupportDocument = "Documento soporte"

// PaymentCash is the default payment type of a line.
const PaymentCash = "Efectivo"

// Supplier is a read-only supplier reference.
type Supplier struct {
	Nickname    string `json:"nickname"`
	Name        string `json:"name"`
	NIT         string `json:"nit"`
	SupportType string `json:"type_support"`
	PaymentType string `json:"type_transaction,omitempty"`
}

// ClientDemand is the part of a line ordered by one client.
type ClientDemand struct {
	Name     string          `json:"client_name"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Line is one SKU to buy.
type Line struct {
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Unit            string          `json:"unit"`
	QuantityOrdered decimal.Decimal `json:"total_quantity_ordered"`
	Forecast        decimal.Decimal `json:"forecast"`
	Inventory       decimal.Decimal `json:"inventory"`
	TotalQuantity   decimal.Decimal `json:"total_quantity"`
	EstimatedPrice  decimal.Decimal `json:"price_purchase"`
	FinalPrice      decimal.Decimal `json:"final_price_purchase"`
	Supplier        Supplier        `json:"proveedor"`
	PaymentType     string          `json:"type_transaction"`
	Status          string          `json:"status"`
	InvoiceNumber   string          `json:"invoice_number,omitempty"`
	Clients         []ClientDemand  `json:"clients"`
}

// UnitCost is the confirmed price, or the estimate while unconfirmed.
func (l Line) UnitCost() decimal.Decimal {
	if l.FinalPrice.Sign() > 0 {
		return l.FinalPrice
	}
	return l.EstimatedPrice
}

// Purchase is the supplier purchase of one date.
type Purchase struct {
	Number        int64           `json:"purchase_number"`
	Date          time.Time       `json:"date"`
	Status        Status          `json:"status"`
	CashDelivered decimal.Decimal `json:"efectivoEntregado"`
	Comments      string          `json:"comments"`
	Lines         []Line          `json:"products"`
}

// Value is the confirmed spend: final price times bought quantity.
func (p Purchase) Value() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.Lines {
		total = total.Add(l.FinalPrice.Mul(l.TotalQuantity))
	}
	return total
}

// Prices maps SKU to confirmed final price; unconfirmed lines are omitted.
func (p Purchase) Prices() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(p.Lines))
	for _, l := range p.Lines {
		if l.FinalPrice.Sign() > 0 {
			out[l.SKU] = l.FinalPrice
		}
	}
	return out
}

// Receipts converts the lines into expected stock arrivals.
func (p Purchase) Receipts() []inventory.Receipt {
	out := make([]inventory.Receipt, 0, len(p.Lines))
	for _, l := range p.Lines {
		out = append(out, inventory.Receipt{SKU: l.SKU, Name: l.Name, Quantity: l.TotalQuantity, UnitCost: l.UnitCost()})
	}
	return out
}
