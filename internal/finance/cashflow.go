package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashFlowStatement splits period cash movement into the three activity
// sections. Financing is not modeled yet and always reports zero.
type CashFlowStatement struct {
	Period    Period          `json:"period"`
	Start     Date            `json:"start"`
	Operating Line            `json:"operating"`
	Investing Line            `json:"investing"`
	Financing Line            `json:"financing"`
	Net       decimal.Decimal `json:"net"`
}

// CashFlow derives the statement for the window ending at now. Operating is
// revenue minus expenses; investing is disposal proceeds minus purchases of
// fixed assets inside the window.
func CashFlow(bookings []Booking, expenses []Expense, assets []FixedAsset, p Period, now time.Time) (CashFlowStatement, error) {
	start, err := PeriodStart(p, now)
	if err != nil {
		return CashFlowStatement{}, err
	}
	today := DateOf(now)

	revenue := decimal.Zero
	for _, b := range revenueBookings(bookings, start) {
		revenue = revenue.Add(nonNegative(b.Amount))
	}
	spent := decimal.Zero
	for _, e := range expensesSince(expenses, start) {
		spent = spent.Add(nonNegative(e.Amount))
	}

	investing := decimal.Zero
	for _, a := range assets {
		if inRange(a.PurchaseDate, start, today) {
			investing = investing.Sub(nonNegative(a.PurchasePrice))
		}
		if a.DisposalDate != nil && inRange(*a.DisposalDate, start, today) {
			investing = investing.Add(nonNegative(a.DisposalValue))
		}
	}

	stmt := CashFlowStatement{
		Period:    p,
		Start:     start,
		Operating: Line{Label: "Operating activities", Amount: revenue.Sub(spent), Modeled: true},
		Investing: Line{Label: "Investing activities", Amount: investing, Modeled: true},
		Financing: notModeled("Financing activities"),
	}
	stmt.Net = stmt.Operating.Amount.Add(stmt.Investing.Amount).Add(stmt.Financing.Amount)
	return stmt, nil
}
