package finance

import "github.com/shopspring/decimal"

// RevenueSummary totals invoices by collection state.
type RevenueSummary struct {
	Collected      decimal.Decimal `json:"collected"`
	CollectedCount int             `json:"collected_count"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	OpenCount      int             `json:"open_count"`
}

// SummarizeRevenue counts paid invoices as collected revenue and everything
// else as outstanding.
func SummarizeRevenue(invoices []Invoice) RevenueSummary {
	sum := RevenueSummary{Collected: decimal.Zero, Outstanding: decimal.Zero}
	for _, inv := range invoices {
		if inv.Status == InvoicePaid {
			sum.Collected = sum.Collected.Add(inv.Outstanding())
			sum.CollectedCount++
			continue
		}
		sum.Outstanding = sum.Outstanding.Add(inv.Outstanding())
		sum.OpenCount++
	}
	return sum
}
