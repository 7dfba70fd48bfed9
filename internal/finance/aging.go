package finance

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const agingPreviewSize = 3

// AgingInvoice is the preview entry shown under an aging bucket.
type AgingInvoice struct {
	ID           uuid.UUID       `json:"id"`
	CustomerName string          `json:"customer_name"`
	Amount       decimal.Decimal `json:"amount"`
	DueDate      Date            `json:"due_date"`
	DaysOverdue  int             `json:"days_overdue"`
}

// AgingBucket groups unpaid invoices by days overdue. MaxDays is -1 for the
// open-ended bucket.
type AgingBucket struct {
	Label    string          `json:"label"`
	MinDays  int             `json:"min_days"`
	MaxDays  int             `json:"max_days"`
	Count    int             `json:"count"`
	Amount   decimal.Decimal `json:"amount"`
	Invoices []AgingInvoice  `json:"invoices"`
}

// AgingReport is the receivables aging summary.
type AgingReport struct {
	AsOf    Date            `json:"as_of"`
	Buckets []AgingBucket   `json:"buckets"`
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
}

func newAgingBuckets() []AgingBucket {
	return []AgingBucket{
		{Label: "0-30 days", MinDays: 0, MaxDays: 30, Amount: decimal.Zero, Invoices: []AgingInvoice{}},
		{Label: "31-60 days", MinDays: 31, MaxDays: 60, Amount: decimal.Zero, Invoices: []AgingInvoice{}},
		{Label: "61-90 days", MinDays: 61, MaxDays: 90, Amount: decimal.Zero, Invoices: []AgingInvoice{}},
		{Label: "90+ days", MinDays: 91, MaxDays: -1, Amount: decimal.Zero, Invoices: []AgingInvoice{}},
	}
}

// DaysOverdue is the whole number of days between due and now, rounded down.
func DaysOverdue(due Date, now time.Time) int {
	return int(math.Floor(now.Sub(due.Time).Hours() / 24))
}

func agingIndex(days int) int {
	switch {
	case days <= 30:
		return 0
	case days <= 60:
		return 1
	case days <= 90:
		return 2
	default:
		return 3
	}
}

// BucketAging assigns each unpaid invoice to exactly one bucket. Invoices not
// yet due count as zero days overdue.
func BucketAging(invoices []Invoice, now time.Time) AgingReport {
	report := AgingReport{
		AsOf:    DateOf(now),
		Buckets: newAgingBuckets(),
		Total:   decimal.Zero,
	}
	for _, inv := range invoices {
		if inv.Status == InvoicePaid {
			continue
		}
		days := DaysOverdue(inv.DueDate, now)
		if days < 0 {
			days = 0
		}
		amount := inv.Outstanding()
		bucket := &report.Buckets[agingIndex(days)]
		bucket.Count++
		bucket.Amount = bucket.Amount.Add(amount)
		if len(bucket.Invoices) < agingPreviewSize {
			bucket.Invoices = append(bucket.Invoices, AgingInvoice{
				ID:           inv.ID,
				CustomerName: inv.CustomerName,
				Amount:       amount,
				DueDate:      inv.DueDate,
				DaysOverdue:  days,
			})
		}
		report.Total = report.Total.Add(amount)
		report.Count++
	}
	return report
}
