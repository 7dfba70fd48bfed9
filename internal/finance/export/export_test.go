package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercato-hq/mercato/internal/finance"
)

type captureRenderer struct {
	filename string
	html     string
	err      error
}

func (c *captureRenderer) RenderHTML(ctx context.Context, filename, html string) ([]byte, error) {
	c.filename, c.html = filename, html
	if c.err != nil {
		return nil, c.err
	}
	return []byte("PDF"), nil
}

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func samplePL(t *testing.T) finance.PLReport {
	t.Helper()
	report, err := finance.BucketPL(
		[]finance.Booking{{Amount: decimal.NewFromInt(100), BookingDate: finance.NewDate(2024, 3, 1)}},
		[]finance.Expense{{Amount: decimal.NewFromInt(40), Category: "Rent", ExpenseDate: finance.NewDate(2024, 3, 2)}},
		finance.PeriodMonth, now)
	require.NoError(t, err)
	return report
}

func TestWritePLCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WritePLCSV(buf, samplePL(t)))
	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"2024-03-01", "Mar 1", "100.00", "0.00", "100.00"}, records[1])
	assert.Equal(t, []string{"", "Total", "100.00", "40.00", "60.00"}, records[3])
}

func TestWriteAgingCSV(t *testing.T) {
	report := finance.BucketAging([]finance.Invoice{{Amount: decimal.NewFromInt(200), DueDate: finance.DateOf(now.AddDate(0, 0, -45))}}, now)
	buf := &bytes.Buffer{}
	require.NoError(t, WriteAgingCSV(buf, report))
	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, []string{"31-60 days", "1", "200.00"}, records[2])
	assert.Equal(t, []string{"Total", "1", "200.00"}, records[5])
}

func TestWriteBudgetCSV(t *testing.T) {
	rows := finance.CompareBudgets(
		[]finance.Budget{{Category: "Rent", Amount: decimal.NewFromInt(600), PeriodStart: finance.NewDate(2024, 1, 1), PeriodEnd: finance.NewDate(2024, 1, 31)}},
		[]finance.Expense{{Category: "Rent", Amount: decimal.NewFromInt(500), ExpenseDate: finance.NewDate(2024, 1, 15)}},
	)
	buf := &bytes.Buffer{}
	require.NoError(t, WriteBudgetCSV(buf, rows))
	assert.Contains(t, buf.String(), "Rent,2024-01-01,2024-01-31,600.00,500.00,100.00,83.33")
}

func TestRenderSummary(t *testing.T) {
	cf, err := finance.CashFlow(nil, nil, nil, finance.PeriodMonth, now)
	require.NoError(t, err)
	renderer := &captureRenderer{}
	payload := SummaryPayload{
		BusinessName: "Bean & Co <Roasters>",
		Currency:     "USD",
		Period:       finance.PeriodMonth,
		PL:           samplePL(t),
		CashFlow:     cf,
		Aging:        finance.BucketAging(nil, now),
		Balance:      finance.BuildBalanceSheet(nil, nil, nil, nil, now),
	}

	pdf, err := NewPDFExporter(renderer).RenderSummary(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "PDF", string(pdf))
	assert.Equal(t, "finance-summary.html", renderer.filename)
	assert.Contains(t, renderer.html, "Bean &amp; Co &lt;Roasters&gt;")
	assert.Contains(t, renderer.html, "$60.00")
	assert.Contains(t, renderer.html, "Financing activities")
	assert.Contains(t, renderer.html, "Not modeled")
	assert.NotContains(t, renderer.html, "<h2>Budgets</h2>")
}

func TestRenderSummaryPropagatesRendererError(t *testing.T) {
	boom := errors.New("gotenberg down")
	_, err := NewPDFExporter(&captureRenderer{err: boom}).RenderSummary(context.Background(), SummaryPayload{})
	assert.ErrorIs(t, err, boom)

	_, err = (*PDFExporter)(nil).RenderSummary(context.Background(), SummaryPayload{})
	assert.Error(t, err)
}
