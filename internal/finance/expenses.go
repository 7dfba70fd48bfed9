package finance

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryTotal is spending for one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Amount   decimal.Decimal `json:"amount"`
	Share    decimal.Decimal `json:"share"`
}

// MonthTotal is spending for one calendar month ("2024-01").
type MonthTotal struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// ExpenseSummary groups expenses by category and by month.
type ExpenseSummary struct {
	Total      decimal.Decimal `json:"total"`
	ByCategory []CategoryTotal `json:"by_category"`
	ByMonth    []MonthTotal    `json:"by_month"`
}

// SummarizeExpenses totals expenses; categories are ordered by amount
// descending and months chronologically.
func SummarizeExpenses(expenses []Expense) ExpenseSummary {
	total := decimal.Zero
	cats := make(map[string]*CategoryTotal)
	months := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		amt := nonNegative(e.Amount)
		total = total.Add(amt)
		ct, ok := cats[e.Category]
		if !ok {
			ct = &CategoryTotal{Category: e.Category, Amount: decimal.Zero}
			cats[e.Category] = ct
		}
		ct.Count++
		ct.Amount = ct.Amount.Add(amt)
		key := e.ExpenseDate.Format("2006-01")
		months[key] = months[key].Add(amt)
	}

	summary := ExpenseSummary{
		Total:      total,
		ByCategory: make([]CategoryTotal, 0, len(cats)),
		ByMonth:    make([]MonthTotal, 0, len(months)),
	}
	for _, ct := range cats {
		ct.Share = PercentUsed(ct.Amount, total)
		summary.ByCategory = append(summary.ByCategory, *ct)
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		a, b := summary.ByCategory[i], summary.ByCategory[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		return a.Category < b.Category
	})
	for month, amt := range months {
		summary.ByMonth = append(summary.ByMonth, MonthTotal{Month: month, Amount: amt})
	}
	sort.Slice(summary.ByMonth, func(i, j int) bool {
		return summary.ByMonth[i].Month < summary.ByMonth[j].Month
	})
	return summary
}
