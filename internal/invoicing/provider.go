// Package invoicing submits sales invoices and supplier support documents to the tax provider.
package invoicing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Item is one invoiced product, matched at the provider by reference.
type Item struct {
	Reference string
	Name      string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
}

// Invoice is a customer sales invoice.
type Invoice struct {
	OrderNumber          string
	Date                 time.Time
	ClientIdentification string
	PaymentMethod        string
	Items                []Item
}

// SupportDocument reports purchases from one supplier without an invoice of its own.
type SupportDocument struct {
	Number      int64
	Date        time.Time
	SupplierNIT string
	Items       []Item
}

// Provider is the electronic invoicing system.
type Provider interface {
	CreateInvoice(ctx context.Context, inv Invoice) (string, error)
	CreateSupportDocument(ctx context.Context, doc SupportDocument) (string, error)
}
