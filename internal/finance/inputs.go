package finance

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercato-hq/mercato/internal/validate"
)

// ExpenseForm is the raw expense submission.
type ExpenseForm struct {
	Category    string `json:"category" validate:"required,oneof=Rent Utilities Payroll Supplies Marketing Travel Insurance Maintenance Taxes Other"`
	Amount      string `json:"amount" validate:"required,decimal_gt0"`
	Description string `json:"description" validate:"max=500"`
	ExpenseDate string `json:"expense_date" validate:"required,datetime=2006-01-02"`
}

// NewExpense validates form into an Expense owned by businessID.
func NewExpense(businessID uuid.UUID, form ExpenseForm) validate.Result[Expense] {
	if errs := validate.Struct(form); errs != nil {
		return validate.Invalid[Expense](errs)
	}
	amount, _ := validate.ParseDecimal(form.Amount)
	date, _ := ParseDate(form.ExpenseDate)
	return validate.Valid(Expense{
		ID:          uuid.New(),
		BusinessID:  businessID,
		Amount:      amount,
		Category:    form.Category,
		Description: strings.TrimSpace(form.Description),
		ExpenseDate: date,
	})
}

// BudgetForm is the raw budget submission.
type BudgetForm struct {
	Category    string `json:"category" validate:"required,max=100"`
	Amount      string `json:"amount" validate:"required,decimal_gte0"`
	PeriodStart string `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string `json:"period_end" validate:"required,datetime=2006-01-02"`
}

// NewBudget validates form into a Budget; the end date may not precede the start.
func NewBudget(businessID uuid.UUID, form BudgetForm) validate.Result[Budget] {
	if errs := validate.Struct(form); errs != nil {
		return validate.Invalid[Budget](errs)
	}
	amount, _ := validate.ParseDecimal(form.Amount)
	start, _ := ParseDate(form.PeriodStart)
	end, _ := ParseDate(form.PeriodEnd)
	if end.Before(start.Time) {
		return validate.Invalid[Budget](validate.FieldErrors{"period_end": "must not be before period_start"})
	}
	return validate.Valid(Budget{
		ID:          uuid.New(),
		BusinessID:  businessID,
		Category:    strings.TrimSpace(form.Category),
		Amount:      amount,
		PeriodStart: start,
		PeriodEnd:   end,
	})
}

// InvoiceForm is the raw invoice submission.
type InvoiceForm struct {
	CustomerName  string `json:"customer_name" validate:"required,max=200"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
	Amount        string `json:"amount" validate:"required,decimal_gt0"`
	TotalAmount   string `json:"total_amount" validate:"omitempty,decimal_gt0"`
	DueDate       string `json:"due_date" validate:"required,datetime=2006-01-02"`
	Status        string `json:"status" validate:"omitempty,oneof=pending paid overdue"`
}

// NewInvoice validates form into an Invoice. Total defaults to amount and
// status to pending; a total below the amount is rejected.
func NewInvoice(businessID uuid.UUID, form InvoiceForm) validate.Result[Invoice] {
	if errs := validate.Struct(form); errs != nil {
		return validate.Invalid[Invoice](errs)
	}
	amount, _ := validate.ParseDecimal(form.Amount)
	total := amount
	if form.TotalAmount != "" {
		total, _ = validate.ParseDecimal(form.TotalAmount)
	}
	if total.LessThan(amount) {
		return validate.Invalid[Invoice](validate.FieldErrors{"total_amount": "must not be less than amount"})
	}
	due, _ := ParseDate(form.DueDate)
	status := InvoiceStatus(form.Status)
	if status == "" {
		status = InvoicePending
	}
	return validate.Valid(Invoice{
		ID:            uuid.New(),
		BusinessID:    businessID,
		CustomerName:  strings.TrimSpace(form.CustomerName),
		CustomerEmail: strings.TrimSpace(form.CustomerEmail),
		Amount:        amount,
		TotalAmount:   total,
		DueDate:       due,
		Status:        status,
	})
}

// FixedAssetForm is the raw fixed asset submission.
type FixedAssetForm struct {
	Name               string `json:"name" validate:"required,max=200"`
	PurchasePrice      string `json:"purchase_price" validate:"required,decimal_gt0"`
	SalvageValue       string `json:"salvage_value" validate:"omitempty,decimal_gte0"`
	UsefulLifeYears    int    `json:"useful_life_years" validate:"required,gte=1,lte=100"`
	DepreciationMethod string `json:"depreciation_method" validate:"required,oneof=straight_line declining_balance"`
	PurchaseDate       string `json:"purchase_date" validate:"required,datetime=2006-01-02"`
}

// NewFixedAsset validates form into a FixedAsset; salvage may not exceed price.
func NewFixedAsset(businessID uuid.UUID, form FixedAssetForm) validate.Result[FixedAsset] {
	if errs := validate.Struct(form); errs != nil {
		return validate.Invalid[FixedAsset](errs)
	}
	price, _ := validate.ParseDecimal(form.PurchasePrice)
	salvage := decimal.Zero
	if form.SalvageValue != "" {
		salvage, _ = validate.ParseDecimal(form.SalvageValue)
	}
	if salvage.GreaterThan(price) {
		return validate.Invalid[FixedAsset](validate.FieldErrors{"salvage_value": "must not exceed purchase_price"})
	}
	purchased, _ := ParseDate(form.PurchaseDate)
	return validate.Valid(FixedAsset{
		ID:                 uuid.New(),
		BusinessID:         businessID,
		Name:               strings.TrimSpace(form.Name),
		PurchasePrice:      price,
		SalvageValue:       salvage,
		UsefulLifeYears:    form.UsefulLifeYears,
		DepreciationMethod: DepreciationMethod(form.DepreciationMethod),
		PurchaseDate:       purchased,
		DisposalValue:      decimal.Zero,
	})
}
