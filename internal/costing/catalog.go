// Package costing attributes cost of goods sold using a carried-stock-first depletion model.
package costing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/shared"
)

// Product is a read-only catalog entry.
type Product struct {
	SKU      string
	Name     string
	Category string
	Unit     string
	// BaseSKU is the inventory unit a non-root product depletes.
	BaseSKU       string
	Root          bool
	StepUnit      decimal.Decimal
	StandardPrice decimal.Decimal
	Supplier      string
}

// InventoryUnit returns the SKU stock is kept under and the factor converting one sold unit into it.
func (p Product) InventoryUnit() (string, decimal.Decimal) {
	if p.Root || p.BaseSKU == "" || p.BaseSKU == p.SKU {
		return p.SKU, decimal.NewFromInt(1)
	}
	step := p.StepUnit
	if step.Sign() <= 0 {
		step = decimal.NewFromInt(1)
	}
	return p.BaseSKU, step
}

// Catalog indexes products by SKU.
type Catalog map[string]Product

// NewCatalog builds a Catalog from a product list.
func NewCatalog(products []Product) Catalog {
	c := make(Catalog, len(products))
	for _, p := range products {
		c[p.SKU] = p
	}
	return c
}

// Sale is a quantity sold under a catalog SKU.
type Sale struct {
	SKU      string
	Quantity decimal.Decimal
}

// ResolveSales converts sold quantities into inventory units grouped by base SKU.
func ResolveSales(sales []Sale, catalog Catalog) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	var unknown []string
	for _, s := range sales {
		p, ok := catalog[s.SKU]
		if !ok {
			unknown = append(unknown, s.SKU)
			continue
		}
		sku, factor := p.InventoryUnit()
		out[sku] = out[sku].Add(s.Quantity.Mul(factor))
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("costing: unknown products %v: %w", unknown, shared.ErrCostDataMissing)
	}
	return out, nil
}
