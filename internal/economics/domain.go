// Package economics aggregates sales, cash, cost and unit-economics figures for a day or a period.
package economics

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period types.
const (
	PeriodDaily   = "Diario"
	PeriodWeekly  = "Semanal"
	PeriodMonthly = "Mensual"
)

// WeeksPerMonth divides monthly fixed costs into a weekly share.
const WeeksPerMonth = 4

// Fixed cost types.
const (
	CostWarehouseRent = "wh_rent"
	CostTech          = "cost_tech"
	CostSalesForce    = "sales_force"
	CostOthers        = "cost_others"
	CostSupply        = "cost_supply"
	CostPersonnel     = "personnel"
)

// FixedCost is one configured overhead amount.
type FixedCost struct {
	Type        string          `json:"type"`
	PeriodType  string          `json:"period_type"`
	PeriodLabel string          `json:"period"`
	Year        int             `json:"year"`
	Amount      decimal.Decimal `json:"amount"`
}

// FixedCosts is the overhead of a period broken down by type.
type FixedCosts struct {
	WarehouseRent decimal.Decimal `json:"wh_rent"`
	Tech          decimal.Decimal `json:"cost_tech"`
	SalesForce    decimal.Decimal `json:"sales_force"`
	Others        decimal.Decimal `json:"cost_others"`
	Supply        decimal.Decimal `json:"cost_supply"`
	Personnel     decimal.Decimal `json:"personnel"`
}

// SumFixedCosts folds cost rows into a FixedCosts; unknown types are ignored.
func SumFixedCosts(rows []FixedCost) FixedCosts {
	var out FixedCosts
	for _, r := range rows {
		switch r.Type {
		case CostWarehouseRent:
			out.WarehouseRent = out.WarehouseRent.Add(r.Amount)
		case CostTech:
			out.Tech = out.Tech.Add(r.Amount)
		case CostSalesForce:
			out.SalesForce = out.SalesForce.Add(r.Amount)
		case CostOthers:
			out.Others = out.Others.Add(r.Amount)
		case CostSupply:
			out.Supply = out.Supply.Add(r.Amount)
		case CostPersonnel:
			out.Personnel = out.Personnel.Add(r.Amount)
		}
	}
	return out
}

// Overhead is every fixed cost except the sales force.
func (f FixedCosts) Overhead() decimal.Decimal {
	return f.WarehouseRent.Add(f.Tech).Add(f.Others).Add(f.Supply).Add(f.Personnel)
}

// Period is a reporting window.
type Period struct {
	Type string    `json:"tipo"`
	Key  string    `json:"periodo"`
	Year int       `json:"year"`
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// PeriodRecord is the unit-economics statement of a period.
type PeriodRecord struct {
	Period
	GMV         decimal.Decimal   `json:"gmv"`
	COGS        decimal.Decimal   `json:"cogs"`
	GrossProfit decimal.Decimal   `json:"gross_profit"`
	LastMile    decimal.Decimal   `json:"last_mile"`
	Fixed       FixedCosts        `json:"fixed"`
	Opex        decimal.Decimal   `json:"opex"`
	Net         decimal.Decimal   `json:"net"`
	Orders      int               `json:"orders"`
	Lines       int               `json:"lines"`
	AOV         decimal.Decimal   `json:"aov"`
	ALV         decimal.Decimal   `json:"alv"`
	MUA         int               `json:"mua"`
	Display     map[string]string `json:"display"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// DailyPoint is one day of the cost series.
type DailyPoint struct {
	Date      time.Time                  `json:"date"`
	GMV       decimal.Decimal            `json:"gmv"`
	COGS      decimal.Decimal            `json:"cogs"`
	Logistics decimal.Decimal            `json:"logistics_cost"`
	Orders    int                        `json:"total_orders"`
	Lines     int                        `json:"total_lines"`
	Costs     map[string]decimal.Decimal `json:"costs"`
}
