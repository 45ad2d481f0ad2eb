package purchasing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/costing"
	"github.com/frescapp/backoffice/internal/orders"
	"github.com/frescapp/backoffice/internal/shared"
)

type demandAcc struct {
	ordered decimal.Decimal
	clients map[string]decimal.Decimal
}

// BuildLines turns next-day orders into purchase lines: demand is converted to inventory units,
// netted against on-hand stock and rounded up. Lines that need nothing are dropped.
func BuildLines(list []orders.Order, onHand map[string]decimal.Decimal, catalog costing.Catalog, suppliers map[string]Supplier) ([]Line, error) {
	acc := make(map[string]*demandAcc)
	var unknown []string
	for _, o := range list {
		for _, ol := range o.Lines {
			p, ok := catalog[ol.SKU]
			if !ok {
				unknown = append(unknown, ol.SKU)
				continue
			}
			sku, factor := p.InventoryUnit()
			qty := ol.Quantity.Mul(factor)
			a, ok := acc[sku]
			if !ok {
				a = &demandAcc{clients: make(map[string]decimal.Decimal)}
				acc[sku] = a
			}
			a.ordered = a.ordered.Add(qty)
			a.clients[o.Customer.Name] = a.clients[o.Customer.Name].Add(qty)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("purchasing: unknown products %v: %w", unknown, shared.ErrCostDataMissing)
	}

	skus := make([]string, 0, len(acc))
	for sku := range acc {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	lines := make([]Line, 0, len(skus))
	for _, sku := range skus {
		a := acc[sku]
		stock := onHand[sku]
		forecast := decimal.Zero
		total := a.ordered.Add(forecast).Sub(stock).Ceil()
		if total.Sign() <= 0 {
			continue
		}
		product := catalog[sku]
		supplier := suppliers[product.Supplier]
		if supplier.Nickname == "" {
			supplier.Nickname = product.Supplier
		}
		payment := supplier.PaymentType
		if payment == "" {
			payment = PaymentCash
		}
		lines = append(lines, Line{
			SKU:             sku,
			Name:            product.Name,
			Category:        product.Category,
			Unit:            product.Unit,
			QuantityOrdered: a.ordered,
			Forecast:        forecast,
			Inventory:       stock,
			TotalQuantity:   total,
			EstimatedPrice:  product.StandardPrice,
			FinalPrice:      decimal.Zero,
			Supplier:        supplier,
			PaymentType:     payment,
			Status:          LineCreated,
			Clients:         clientBreakdown(a.clients),
		})
	}
	return lines, nil
}

func clientBreakdown(clients map[string]decimal.Decimal) []ClientDemand {
	out := make([]ClientDemand, 0, len(clients))
	for name, qty := range clients {
		out = append(out, ClientDemand{Name: name, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
