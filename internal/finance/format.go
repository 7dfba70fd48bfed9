package finance

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"IDR": "Rp",
}

var printer = message.NewPrinter(language.English)

// FormatMoney renders an amount with grouping and two decimals, e.g.
// "$1,234.50". Unknown currency codes are used as a prefix; empty means USD.
func FormatMoney(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = "USD"
	}
	symbol, ok := currencySymbols[code]
	if !ok {
		symbol = code + " "
	}
	f, _ := amount.Round(2).Abs().Float64()
	sign := ""
	if amount.Round(2).IsNegative() {
		sign = "-"
	}
	return sign + symbol + printer.Sprintf("%.2f", f)
}
