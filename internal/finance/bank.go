package finance

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationSummary describes the reconcile state of one account.
type ReconciliationSummary struct {
	AccountID          uuid.UUID         `json:"account_id"`
	Transactions       []BankTransaction `json:"transactions"`
	ReconciledCount    int               `json:"reconciled_count"`
	UnreconciledCount  int               `json:"unreconciled_count"`
	ReconciledBalance  decimal.Decimal   `json:"reconciled_balance"`
	UnreconciledAmount decimal.Decimal   `json:"unreconciled_amount"`
	BookBalance        decimal.Decimal   `json:"book_balance"`
}

// Reconcile summarises txns for the account, newest first.
func Reconcile(accountID uuid.UUID, txns []BankTransaction) ReconciliationSummary {
	sorted := make([]BankTransaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TransactionDate.After(sorted[j].TransactionDate.Time)
	})
	sum := ReconciliationSummary{
		AccountID:          accountID,
		Transactions:       sorted,
		ReconciledBalance:  decimal.Zero,
		UnreconciledAmount: decimal.Zero,
		BookBalance:        decimal.Zero,
	}
	for _, tx := range sorted {
		signed := tx.Signed()
		sum.BookBalance = sum.BookBalance.Add(signed)
		if tx.IsReconciled {
			sum.ReconciledCount++
			sum.ReconciledBalance = sum.ReconciledBalance.Add(signed)
			continue
		}
		sum.UnreconciledCount++
		sum.UnreconciledAmount = sum.UnreconciledAmount.Add(signed)
	}
	return sum
}
