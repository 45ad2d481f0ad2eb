package economics

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var copPrinter = message.NewPrinter(language.MustParse("es-CO"))

// FormatCOP renders an amount as whole Colombian pesos with local digit grouping.
func FormatCOP(v decimal.Decimal) string {
	return "$ " + copPrinter.Sprint(number.Decimal(v.Round(0).IntPart(), number.MaxFractionDigits(0)))
}

func displayFields(rec PeriodRecord) map[string]string {
	return map[string]string{
		"gmv":          FormatCOP(rec.GMV),
		"cogs":         FormatCOP(rec.COGS),
		"gross_profit": FormatCOP(rec.GrossProfit),
		"last_mile":    FormatCOP(rec.LastMile),
		"wh_rent":      FormatCOP(rec.Fixed.WarehouseRent),
		"cost_tech":    FormatCOP(rec.Fixed.Tech),
		"sales_force":  FormatCOP(rec.Fixed.SalesForce),
		"cost_others":  FormatCOP(rec.Fixed.Others),
		"cost_supply":  FormatCOP(rec.Fixed.Supply),
		"personnel":    FormatCOP(rec.Fixed.Personnel),
		"opex":         FormatCOP(rec.Opex),
		"net":          FormatCOP(rec.Net),
		"aov":          FormatCOP(rec.AOV),
		"alv":          FormatCOP(rec.ALV),
	}
}
