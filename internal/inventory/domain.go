// Package inventory keeps one stock snapshot per close date and projects the next one.
package inventory

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/costing"
)

// Item is the quantity of one SKU on hand with its unit cost.
type Item struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	Cost     decimal.Decimal `json:"cost"`
}

// Value is quantity times unit cost.
func (i Item) Value() decimal.Decimal {
	return i.Quantity.Mul(i.Cost)
}

// Snapshot is the stock at the end of a close date.
type Snapshot struct {
	CloseDate time.Time `json:"close_date"`
	Items     []Item    `json:"products"`
}

// Value sums the value of every item.
func (s Snapshot) Value() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.Value())
	}
	return total
}

// Levels exposes the snapshot as carried stock keyed by SKU.
func (s Snapshot) Levels() map[string]costing.Stock {
	out := make(map[string]costing.Stock, len(s.Items))
	for _, it := range s.Items {
		out[it.SKU] = costing.Stock{Quantity: it.Quantity, UnitCost: it.Cost}
	}
	return out
}

// Quantities exposes on-hand quantities keyed by SKU.
func (s Snapshot) Quantities() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(s.Items))
	for _, it := range s.Items {
		out[it.SKU] = it.Quantity
	}
	return out
}

// CopyTo duplicates the snapshot verbatim under another date.
func (s Snapshot) CopyTo(date time.Time) Snapshot {
	items := make([]Item, len(s.Items))
	copy(items, s.Items)
	return Snapshot{CloseDate: date, Items: items}
}

// Receipt is stock expected to arrive on the projected date.
type Receipt struct {
	SKU      string
	Name     string
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// Project rolls opening stock forward: receipts are averaged into the unit cost, then demand is
// depleted. SKUs left without stock are dropped.
func Project(opening Snapshot, date time.Time, receipts []Receipt, demand map[string]decimal.Decimal) Snapshot {
	items := make(map[string]Item, len(opening.Items))
	for _, it := range opening.Items {
		items[it.SKU] = it
	}

	for _, r := range receipts {
		if r.Quantity.Sign() <= 0 {
			continue
		}
		cur := items[r.SKU]
		cur.SKU = r.SKU
		if cur.Name == "" {
			cur.Name = r.Name
		}
		onHand := decimal.Max(cur.Quantity, decimal.Zero)
		newQty := onHand.Add(r.Quantity)
		totalCost := onHand.Mul(cur.Cost).Add(r.Quantity.Mul(r.UnitCost))
		cur.Cost = totalCost.Div(newQty)
		cur.Quantity = newQty
		items[r.SKU] = cur
	}

	for sku, qty := range demand {
		cur, ok := items[sku]
		if !ok {
			continue
		}
		cur.Quantity = cur.Quantity.Sub(qty)
		items[sku] = cur
	}

	out := Snapshot{CloseDate: date, Items: make([]Item, 0, len(items))}
	for _, it := range items {
		if it.Quantity.Sign() <= 0 {
			continue
		}
		out.Items = append(out.Items, it)
	}
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].SKU < out.Items[j].SKU })
	return out
}
