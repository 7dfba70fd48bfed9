package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceSheet is a point-in-time snapshot of assets against liabilities.
// Liabilities are not modeled yet and stay at zero.
type BalanceSheet struct {
	AsOf        Date            `json:"as_of"`
	Cash        decimal.Decimal `json:"cash"`
	Receivables decimal.Decimal `json:"receivables"`
	FixedAssets decimal.Decimal `json:"fixed_assets"`
	TotalAssets decimal.Decimal `json:"total_assets"`
	Liabilities Line            `json:"liabilities"`
	Equity      decimal.Decimal `json:"equity"`
}

// BuildBalanceSheet combines bank balances, unpaid invoices and asset book
// values as of now.
func BuildBalanceSheet(accounts []BankAccount, txns []BankTransaction, invoices []Invoice, assets []FixedAsset, now time.Time) BalanceSheet {
	today := DateOf(now)
	cash := decimal.Zero
	for _, acct := range accounts {
		cash = cash.Add(acct.OpeningBalance)
	}
	for _, tx := range txns {
		if tx.TransactionDate.After(today.Time) {
			continue
		}
		cash = cash.Add(tx.Signed())
	}

	receivables := decimal.Zero
	for _, inv := range invoices {
		if inv.Status == InvoicePaid {
			continue
		}
		receivables = receivables.Add(inv.Outstanding())
	}

	fixed := decimal.Zero
	for _, a := range assets {
		if a.DisposalDate != nil && !a.DisposalDate.After(today.Time) {
			continue
		}
		if a.PurchaseDate.After(today.Time) {
			continue
		}
		fixed = fixed.Add(Depreciate(a, now).BookValue)
	}

	sheet := BalanceSheet{
		AsOf:        today,
		Cash:        cash,
		Receivables: receivables,
		FixedAssets: fixed,
		TotalAssets: cash.Add(receivables).Add(fixed),
		Liabilities: notModeled("Liabilities"),
	}
	sheet.Equity = sheet.TotalAssets.Sub(sheet.Liabilities.Amount)
	return sheet
}
