package finance

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period selects the reporting window.
type Period string

const (
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

// ParsePeriod validates a period selector; empty defaults to month.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PeriodMonth, nil
	case PeriodMonth, PeriodQuarter, PeriodYear:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, raw)
	}
}

// PeriodStart is the first day included in the window ending at now.
func PeriodStart(p Period, now time.Time) (Date, error) {
	today := DateOf(now)
	switch p {
	case PeriodMonth:
		return Date{today.AddDate(0, -1, 0)}, nil
	case PeriodQuarter:
		return Date{today.AddDate(0, -3, 0)}, nil
	case PeriodYear:
		return Date{today.AddDate(-1, 0, 0)}, nil
	default:
		return Date{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, p)
	}
}

// PLPoint is one chart bucket.
type PLPoint struct {
	Label    string          `json:"label"`
	Date     Date            `json:"date"`
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
	Profit   decimal.Decimal `json:"profit"`
}

// PLReport is the period profit and loss series with totals.
type PLReport struct {
	Period        Period          `json:"period"`
	Start         Date            `json:"start"`
	Points        []PLPoint       `json:"points"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
}

// BucketLabel is the display key used for chart buckets, e.g. "Jan 5", or
// "Jan 5, 2024" when withYear is set.
func BucketLabel(d Date, withYear bool) string {
	if withYear {
		return d.Format("Jan 2, 2006")
	}
	return d.Format("Jan 2")
}

// BucketPL groups revenue and expenses on or after the period start by day,
// merges them chronologically and derives profit per bucket.
func BucketPL(bookings []Booking, expenses []Expense, p Period, now time.Time) (PLReport, error) {
	start, err := PeriodStart(p, now)
	if err != nil {
		return PLReport{}, err
	}
	points := make(map[time.Time]*PLPoint)
	point := func(d Date) *PLPoint {
		day := DateOf(d.Time)
		pt, ok := points[day.Time]
		if !ok {
			pt = &PLPoint{Date: day, Revenue: decimal.Zero, Expenses: decimal.Zero}
			points[day.Time] = pt
		}
		return pt
	}

	report := PLReport{Period: p, Start: start, TotalRevenue: decimal.Zero, TotalExpenses: decimal.Zero}
	for _, b := range revenueBookings(bookings, start) {
		pt := point(b.BookingDate)
		amt := nonNegative(b.Amount)
		pt.Revenue = pt.Revenue.Add(amt)
		report.TotalRevenue = report.TotalRevenue.Add(amt)
	}
	for _, e := range expensesSince(expenses, start) {
		pt := point(e.ExpenseDate)
		amt := nonNegative(e.Amount)
		pt.Expenses = pt.Expenses.Add(amt)
		report.TotalExpenses = report.TotalExpenses.Add(amt)
	}

	// Windows crossing a year boundary would otherwise repeat labels.
	withYear := false
	for _, pt := range points {
		if pt.Date.Year() != start.Year() {
			withYear = true
			break
		}
	}
	report.Points = make([]PLPoint, 0, len(points))
	for _, pt := range points {
		pt.Label = BucketLabel(pt.Date, withYear)
		pt.Profit = pt.Revenue.Sub(pt.Expenses)
		report.Points = append(report.Points, *pt)
	}
	sort.Slice(report.Points, func(i, j int) bool {
		return report.Points[i].Date.Before(report.Points[j].Date.Time)
	})
	report.NetProfit = report.TotalRevenue.Sub(report.TotalExpenses)
	return report, nil
}

func revenueBookings(bookings []Booking, start Date) []Booking {
	out := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status == BookingCancelled || b.BookingDate.Before(start.Time) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func expensesSince(expenses []Expense, start Date) []Expense {
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.ExpenseDate.Before(start.Time) {
			continue
		}
		out = append(out, e)
	}
	return out
}
