package finance

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var (
	// ErrUnknownPeriod is returned for unsupported report periods.
	ErrUnknownPeriod = errors.New("finance: unknown period")
	// ErrTransactionNotFound occurs when a bank transaction is missing.
	ErrTransactionNotFound = errors.New("finance: bank transaction not found")
)

// Date is a calendar day stored at UTC midnight.
type Date struct {
	time.Time
}

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("finance: parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

// InvoiceStatus enumerates invoice lifecycle values.
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

// Invoice is a receivable issued by a business.
type Invoice struct {
	ID            uuid.UUID       `json:"id"`
	BusinessID    uuid.UUID       `json:"business_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       Date            `json:"due_date"`
	Status        InvoiceStatus   `json:"status"`
}

// Outstanding is the receivable amount, falling back to amount when no total
// was recorded.
func (i Invoice) Outstanding() decimal.Decimal {
	if i.TotalAmount.IsZero() {
		return nonNegative(i.Amount)
	}
	return nonNegative(i.TotalAmount)
}

// ExpenseCategories lists the labels accepted for expenses.
var ExpenseCategories = []string{
	"Rent", "Utilities", "Payroll", "Supplies", "Marketing",
	"Travel", "Insurance", "Maintenance", "Taxes", "Other",
}

// Expense is money spent by a business.
type Expense struct {
	ID          uuid.UUID       `json:"id"`
	BusinessID  uuid.UUID       `json:"business_id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	ExpenseDate Date            `json:"expense_date"`
}

// BookingCancelled marks bookings excluded from revenue.
const BookingCancelled = "cancelled"

// Booking is a revenue event.
type Booking struct {
	ID          uuid.UUID       `json:"id"`
	BusinessID  uuid.UUID       `json:"business_id"`
	Amount      decimal.Decimal `json:"amount"`
	BookingDate Date            `json:"booking_date"`
	Status      string          `json:"status"`
}

// DepreciationMethod selects the depreciation formula.
type DepreciationMethod string

const (
	StraightLine     DepreciationMethod = "straight_line"
	DecliningBalance DepreciationMethod = "declining_balance"
)

// FixedAsset is a long-lived purchase depreciated over its useful life.
type FixedAsset struct {
	ID                 uuid.UUID          `json:"id"`
	BusinessID         uuid.UUID          `json:"business_id"`
	Name               string             `json:"name"`
	PurchasePrice      decimal.Decimal    `json:"purchase_price"`
	SalvageValue       decimal.Decimal    `json:"salvage_value"`
	UsefulLifeYears    int                `json:"useful_life_years"`
	DepreciationMethod DepreciationMethod `json:"depreciation_method"`
	PurchaseDate       Date               `json:"purchase_date"`
	DisposalDate       *Date              `json:"disposal_date,omitempty"`
	DisposalValue      decimal.Decimal    `json:"disposal_value"`
}

// TransactionType is the direction of a bank movement.
type TransactionType string

const (
	Debit  TransactionType = "debit"
	Credit TransactionType = "credit"
)

// BankAccount holds a business bank account.
type BankAccount struct {
	ID             uuid.UUID       `json:"id"`
	BusinessID     uuid.UUID       `json:"business_id"`
	Name           string          `json:"name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// BankTransaction is a single statement line.
type BankTransaction struct {
	ID              uuid.UUID       `json:"id"`
	AccountID       uuid.UUID       `json:"account_id"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType TransactionType `json:"transaction_type"`
	Description     string          `json:"description,omitempty"`
	TransactionDate Date            `json:"transaction_date"`
	IsReconciled    bool            `json:"is_reconciled"`
}

// Signed returns the amount with credits positive and debits negative.
func (t BankTransaction) Signed() decimal.Decimal {
	amt := nonNegative(t.Amount)
	if t.TransactionType == Debit {
		return amt.Neg()
	}
	return amt
}

// Budget caps spending for a category within a date range.
type Budget struct {
	ID          uuid.UUID       `json:"id"`
	BusinessID  uuid.UUID       `json:"business_id"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	PeriodStart Date            `json:"period_start"`
	PeriodEnd   Date            `json:"period_end"`
}

// Line is a labelled figure. Modeled is false for placeholders that are not
// derived from data yet and always carry zero.
type Line struct {
	Label   string          `json:"label"`
	Amount  decimal.Decimal `json:"amount"`
	Modeled bool            `json:"modeled"`
}

func notModeled(label string) Line {
	return Line{Label: label, Amount: decimal.Zero, Modeled: false}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func inRange(d, start, end Date) bool {
	return !d.Before(start.Time) && !d.After(end.Time)
}
