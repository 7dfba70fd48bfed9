package finance

import "github.com/shopspring/decimal"

// UsageLevel classifies how much of a budget has been used.
type UsageLevel string

const (
	UsageOK       UsageLevel = "ok"
	UsageWarning  UsageLevel = "warning"
	UsageExceeded UsageLevel = "exceeded"
)

var (
	warningThreshold = decimal.NewFromInt(80)
)

// BudgetLevel maps a percent-used figure to a level: below 80 ok, below 100
// warning, otherwise exceeded.
func BudgetLevel(percent decimal.Decimal) UsageLevel {
	switch {
	case percent.LessThan(warningThreshold):
		return UsageOK
	case percent.LessThan(hundred):
		return UsageWarning
	default:
		return UsageExceeded
	}
}

// Color returns the badge color for the level.
func (l UsageLevel) Color() string {
	switch l {
	case UsageOK:
		return "green"
	case UsageWarning:
		return "amber"
	default:
		return "red"
	}
}

// StatusColor returns the badge color for an invoice status.
func StatusColor(status InvoiceStatus) string {
	switch status {
	case InvoicePaid:
		return "green"
	case InvoicePending:
		return "amber"
	case InvoiceOverdue:
		return "red"
	default:
		return "gray"
	}
}
