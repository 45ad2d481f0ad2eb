package costing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/shared"
)

// PriceSource names where the overflow unit price came from.
type PriceSource string

const (
	PriceNone     PriceSource = ""
	PricePurchase PriceSource = "purchase"
	PriceCatalog  PriceSource = "catalog"
)

// SKUInput carries everything needed to cost one SKU on one day.
// Zero PurchasePrice means no same-day purchase line; zero StandardPrice means no catalog price.
type SKUInput struct {
	SKU             string
	SoldQty         decimal.Decimal
	CarriedQty      decimal.Decimal
	CarriedUnitCost decimal.Decimal
	PurchasePrice   decimal.Decimal
	StandardPrice   decimal.Decimal
}

// Line is the costed result for one SKU.
type Line struct {
	SKU               string          `json:"sku"`
	SoldQty           decimal.Decimal `json:"sold_qty"`
	FromStock         decimal.Decimal `json:"from_stock"`
	Overflow          decimal.Decimal `json:"overflow"`
	CarriedUnitCost   decimal.Decimal `json:"carried_unit_cost"`
	PurchaseUnitPrice decimal.Decimal `json:"purchase_unit_price"`
	PriceSource       PriceSource     `json:"price_source,omitempty"`
	COGS              decimal.Decimal `json:"cogs"`
}

// Deplete consumes carried stock first and prices any overflow at the day's purchase price.
func Deplete(in SKUInput) (Line, error) {
	line := Line{SKU: in.SKU, SoldQty: in.SoldQty, CarriedUnitCost: in.CarriedUnitCost}
	if in.SoldQty.Sign() <= 0 {
		line.SoldQty = decimal.Zero
		return line, nil
	}
	carried := decimal.Max(in.CarriedQty, decimal.Zero)
	if carried.GreaterThanOrEqual(in.SoldQty) {
		line.FromStock = in.SoldQty
		line.COGS = in.SoldQty.Mul(in.CarriedUnitCost)
		return line, nil
	}

	price, source, err := priceBasis(in)
	if err != nil {
		return Line{}, err
	}
	line.FromStock = carried
	line.Overflow = in.SoldQty.Sub(carried)
	line.PurchaseUnitPrice = price
	line.PriceSource = source
	line.COGS = carried.Mul(in.CarriedUnitCost).Add(line.Overflow.Mul(price))
	return line, nil
}

// SKUCost returns only the cost figure of Deplete.
func SKUCost(in SKUInput) (decimal.Decimal, error) {
	line, err := Deplete(in)
	if err != nil {
		return decimal.Zero, err
	}
	return line.COGS, nil
}

func priceBasis(in SKUInput) (decimal.Decimal, PriceSource, error) {
	if in.PurchasePrice.Sign() > 0 {
		return in.PurchasePrice, PricePurchase, nil
	}
	if in.StandardPrice.Sign() > 0 {
		return in.StandardPrice, PriceCatalog, nil
	}
	return decimal.Zero, PriceNone, fmt.Errorf("costing: no price basis for %s: %w", in.SKU, shared.ErrCostDataMissing)
}

// Stock is a carried quantity valued at a unit cost.
type Stock struct {
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// DayInput groups the day's sales (in inventory units), the prior snapshot and the purchase prices.
type DayInput struct {
	Sales          map[string]decimal.Decimal
	Carried        map[string]Stock
	PurchasePrices map[string]decimal.Decimal
	Catalog        Catalog
}

// Breakdown is the per-SKU detail behind a daily COGS figure.
type Breakdown struct {
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// DailyCOGS costs every sold SKU and sums the results, ordered by SKU.
func DailyCOGS(in DayInput) (Breakdown, error) {
	skus := make([]string, 0, len(in.Sales))
	for sku := range in.Sales {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	out := Breakdown{Lines: make([]Line, 0, len(skus)), Total: decimal.Zero}
	var missing []string
	for _, sku := range skus {
		stock := in.Carried[sku]
		line, err := Deplete(SKUInput{
			SKU:             sku,
			SoldQty:         in.Sales[sku],
			CarriedQty:      stock.Quantity,
			CarriedUnitCost: stock.UnitCost,
			PurchasePrice:   in.PurchasePrices[sku],
			StandardPrice:   in.Catalog[sku].StandardPrice,
		})
		if err != nil {
			missing = append(missing, sku)
			continue
		}
		out.Lines = append(out.Lines, line)
		out.Total = out.Total.Add(line.COGS)
	}
	if len(missing) > 0 {
		return Breakdown{}, fmt.Errorf("costing: no price basis for %s: %w", strings.Join(missing, ", "), shared.ErrCostDataMissing)
	}
	return out, nil
}
