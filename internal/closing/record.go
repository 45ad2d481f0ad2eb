package closing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/economics"
	"github.com/frescapp/backoffice/internal/orders"
	"github.com/frescapp/backoffice/internal/routing"
)

// Facts are the figures a closing record is derived from.
type Facts struct {
	Date           time.Time
	Orders         []orders.Order
	Route          *routing.Route
	COGS           decimal.Decimal
	PurchaseValue  decimal.Decimal
	InventoryPrev  decimal.Decimal
	InventoryToday decimal.Decimal
	CarteraTotal   decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// BuildRecord derives the closing record of a date from its facts.
func BuildRecord(f Facts) Record {
	sales := economics.SalesMetrics(f.Orders)
	cash := economics.CashPosition(nil)
	logistics := decimal.Zero
	if f.Route != nil {
		cash = economics.CashPosition(f.Route.Stops)
		logistics = f.Route.Cost
	}

	margin := sales.GMV.Sub(f.COGS)
	pct := decimal.Zero
	if sales.GMV.Sign() > 0 {
		pct = margin.Div(sales.GMV).Mul(hundred).Round(2)
	}
	return Record{
		CloseDate:      f.Date,
		GMV:            sales.GMV,
		COGS:           f.COGS.Round(2),
		PurchaseValue:  f.PurchaseValue,
		InventoryValue: f.InventoryToday,
		InventoryPrev:  f.InventoryPrev,
		Leakage:        economics.Leakage(f.PurchaseValue, f.InventoryPrev, f.InventoryToday, f.COGS).Round(2),
		Orders:         sales.Orders,
		Lines:          sales.Lines,
		AOV:            sales.AOV,
		ALV:            sales.ALV,
		CashMargin:     margin.Round(2),
		MarginPct:      pct,
		Cash:           cash.Channel(economics.ChannelCash),
		Davivienda:     cash.Channel(economics.ChannelDavivienda),
		Bancolombia:    cash.Channel(economics.ChannelBancolombia),
		CarteraToday:   cash.Cartera,
		CarteraTotal:   f.CarteraTotal,
		LogisticsCost:  logistics,
	}
}
