package export

import (
	"encoding/csv"
	"io"

	"github.com/mercato-hq/mercato/internal/finance"
)

// WritePLCSV emits the daily P&L series followed by a totals row.
func WritePLCSV(w io.Writer, report finance.PLReport) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Date", "Label", "Revenue", "Expenses", "Profit"}); err != nil {
		return err
	}
	for _, pt := range report.Points {
		if err := writer.Write([]string{
			pt.Date.String(),
			pt.Label,
			pt.Revenue.StringFixed(2),
			pt.Expenses.StringFixed(2),
			pt.Profit.StringFixed(2),
		}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{
		"", "Total",
		report.TotalRevenue.StringFixed(2),
		report.TotalExpenses.StringFixed(2),
		report.NetProfit.StringFixed(2),
	}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteAgingCSV prints aging buckets to CSV.
func WriteAgingCSV(w io.Writer, report finance.AgingReport) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Bucket", "Count", "Amount"}); err != nil {
		return err
	}
	for _, bucket := range report.Buckets {
		if err := writer.Write([]string{bucket.Label, itoa(bucket.Count), bucket.Amount.StringFixed(2)}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{"Total", itoa(report.Count), report.Total.StringFixed(2)}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteBudgetCSV prints budget-vs-actual rows.
func WriteBudgetCSV(w io.Writer, rows []finance.BudgetComparison) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Category", "Period Start", "Period End", "Budgeted", "Actual", "Variance", "Percent Used"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.Category,
			row.PeriodStart.String(),
			row.PeriodEnd.String(),
			row.Budgeted.StringFixed(2),
			row.Actual.StringFixed(2),
			row.Variance.StringFixed(2),
			row.PercentUsed.StringFixed(2),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
