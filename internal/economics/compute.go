package economics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/orders"
	"github.com/frescapp/backoffice/internal/routing"
)

// Payment channels tracked separately on the closing record.
const (
	ChannelCash        = "Efectivo"
	ChannelDavivienda  = "Davivienda"
	ChannelBancolombia = "Bancolombia"
)

// Sales summarises a set of orders.
type Sales struct {
	GMV    decimal.Decimal `json:"gmv"`
	Orders int             `json:"orders"`
	Lines  int             `json:"lines"`
	AOV    decimal.Decimal `json:"aov"`
	ALV    decimal.Decimal `json:"alv"`
	MUA    int             `json:"mua"`
}

// SalesMetrics computes GMV and averages; averages are zero when there is nothing to divide.
func SalesMetrics(list []orders.Order) Sales {
	s := Sales{GMV: decimal.Zero, AOV: decimal.Zero, ALV: decimal.Zero}
	customers := make(map[string]struct{})
	for _, o := range list {
		s.Orders++
		s.Lines += len(o.Lines)
		s.GMV = s.GMV.Add(o.LinesTotal())
		key := o.Customer.Email
		if key == "" {
			key = o.Customer.Name
		}
		customers[key] = struct{}{}
	}
	s.MUA = len(customers)
	if s.Orders > 0 {
		s.AOV = s.GMV.Div(decimal.NewFromInt(int64(s.Orders))).Round(2)
	}
	if s.Lines > 0 {
		s.ALV = s.GMV.Div(decimal.NewFromInt(int64(s.Lines))).Round(2)
	}
	return s
}

// Cash is what the route collected, by channel, and what was left on credit.
type Cash struct {
	ByChannel map[string]decimal.Decimal `json:"by_channel"`
	Collected decimal.Decimal            `json:"collected"`
	Cartera   decimal.Decimal            `json:"cartera_today"`
}

// Channel returns the amount collected through channel.
func (c Cash) Channel(channel string) decimal.Decimal {
	return c.ByChannel[channel]
}

// CashPosition splits paid stops by payment method; the charged amount of any other stop counts
// toward today's cartera.
func CashPosition(stops []routing.Stop) Cash {
	c := Cash{ByChannel: map[string]decimal.Decimal{}, Collected: decimal.Zero, Cartera: decimal.Zero}
	for _, s := range stops {
		if s.Paid() {
			c.ByChannel[s.PaymentMethod] = c.ByChannel[s.PaymentMethod].Add(s.TotalCharged)
			c.Collected = c.Collected.Add(s.TotalCharged)
			continue
		}
		c.Cartera = c.Cartera.Add(s.TotalCharged)
	}
	return c
}

// Leakage is the value that left stock without being sold: purchase plus opening stock minus
// closing stock minus COGS. It is diagnostic and may be negative.
func Leakage(purchase, inventoryPrev, inventoryToday, cogs decimal.Decimal) decimal.Decimal {
	return purchase.Add(inventoryPrev).Sub(inventoryToday).Sub(cogs)
}

// Apportion scales monthly fixed costs to the period type.
func Apportion(monthly FixedCosts, periodType string) FixedCosts {
	if periodType != PeriodWeekly {
		return monthly
	}
	div := decimal.NewFromInt(WeeksPerMonth)
	return FixedCosts{
		WarehouseRent: monthly.WarehouseRent.Div(div),
		Tech:          monthly.Tech.Div(div),
		SalesForce:    monthly.SalesForce.Div(div),
		Others:        monthly.Others.Div(div),
		Supply:        monthly.Supply.Div(div),
		Personnel:     monthly.Personnel.Div(div),
	}
}

// Result is the bottom of a unit-economics statement.
type Result struct {
	GrossProfit decimal.Decimal
	Opex        decimal.Decimal
	Net         decimal.Decimal
}

// NetResult computes GMV − COGS − overhead − logistics − sales force.
func NetResult(gmv, cogs decimal.Decimal, apportioned FixedCosts, logistics decimal.Decimal) Result {
	gross := gmv.Sub(cogs)
	opex := apportioned.Overhead().Add(logistics)
	return Result{
		GrossProfit: gross,
		Opex:        opex,
		Net:         gross.Sub(opex).Sub(apportioned.SalesForce),
	}
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthName returns the Spanish name of m.
func MonthName(m time.Month) string {
	return spanishMonths[m-1]
}

// WeekOf returns the ISO week (Monday to Sunday) containing base.
func WeekOf(base time.Time) Period {
	y, m, d := base.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -offset)
	year, week := day.ISOWeek()
	return Period{
		Type: PeriodWeekly,
		Key:  fmt.Sprintf("Semana %d", week),
		Year: year,
		From: monday,
		To:   monday.AddDate(0, 0, 6),
	}
}

// MonthOf returns the calendar month containing base.
func MonthOf(base time.Time) Period {
	first := time.Date(base.Year(), base.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Type: PeriodMonthly,
		Key:  MonthName(base.Month()),
		Year: base.Year(),
		From: first,
		To:   first.AddDate(0, 1, -1),
	}
}

// Periods returns the week and the month containing base.
func Periods(base time.Time) (Period, Period) {
	return WeekOf(base), MonthOf(base)
}
