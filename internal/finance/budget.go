package finance

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// BudgetComparison is the budget-vs-actual row for a single budget.
type BudgetComparison struct {
	BudgetID    uuid.UUID       `json:"budget_id"`
	Category    string          `json:"category"`
	PeriodStart Date            `json:"period_start"`
	PeriodEnd   Date            `json:"period_end"`
	Budgeted    decimal.Decimal `json:"budgeted"`
	Actual      decimal.Decimal `json:"actual_amount"`
	Variance    decimal.Decimal `json:"variance"`
	PercentUsed decimal.Decimal `json:"percent_used"`
	Level       UsageLevel      `json:"level"`
	OverBudget  bool            `json:"over_budget"`
}

// CompareBudgets sums, for every budget, the expenses with the same category
// dated inside the budget's inclusive range. Categories match exactly.
func CompareBudgets(budgets []Budget, expenses []Expense) []BudgetComparison {
	out := make([]BudgetComparison, 0, len(budgets))
	for _, b := range budgets {
		actual := decimal.Zero
		for _, e := range expenses {
			if e.Category != b.Category || !inRange(e.ExpenseDate, b.PeriodStart, b.PeriodEnd) {
				continue
			}
			actual = actual.Add(nonNegative(e.Amount))
		}
		pct := PercentUsed(actual, b.Amount)
		out = append(out, BudgetComparison{
			BudgetID:    b.ID,
			Category:    b.Category,
			PeriodStart: b.PeriodStart,
			PeriodEnd:   b.PeriodEnd,
			Budgeted:    b.Amount,
			Actual:      actual,
			Variance:    b.Amount.Sub(actual),
			PercentUsed: pct,
			Level:       BudgetLevel(pct),
			OverBudget:  actual.GreaterThan(b.Amount),
		})
	}
	return out
}

// PercentUsed is actual/budget*100 rounded to two places, or zero when the
// budget is zero.
func PercentUsed(actual, budget decimal.Decimal) decimal.Decimal {
	if budget.IsZero() {
		return decimal.Zero
	}
	return round2(actual.Div(budget).Mul(hundred))
}
