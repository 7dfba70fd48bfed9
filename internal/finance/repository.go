package finance

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mercato-hq/mercato/internal/backend"
)

const (
	tableInvoices         = "invoices"
	tableExpenses         = "expenses"
	tableBookings         = "bookings"
	tableFixedAssets      = "fixed_assets"
	tableBudgets          = "budgets"
	tableBankAccounts     = "bank_accounts"
	tableBankTransactions = "bank_transactions"
)

// Repository reads and writes finance records.
type Repository interface {
	ListInvoices(ctx context.Context, businessID uuid.UUID) ([]Invoice, error)
	ListUnpaidInvoices(ctx context.Context, businessID uuid.UUID) ([]Invoice, error)
	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	ListExpenses(ctx context.Context, businessID uuid.UUID, since *Date) ([]Expense, error)
	CreateExpense(ctx context.Context, e Expense) (Expense, error)
	ListBookings(ctx context.Context, businessID uuid.UUID, since *Date) ([]Booking, error)
	ListFixedAssets(ctx context.Context, businessID uuid.UUID) ([]FixedAsset, error)
	CreateFixedAsset(ctx context.Context, a FixedAsset) (FixedAsset, error)
	ListBudgets(ctx context.Context, businessID uuid.UUID) ([]Budget, error)
	CreateBudget(ctx context.Context, b Budget) (Budget, error)
	ListBankAccounts(ctx context.Context, businessID uuid.UUID) ([]BankAccount, error)
	ListBankTransactions(ctx context.Context, accountIDs ...uuid.UUID) ([]BankTransaction, error)
	GetBankTransaction(ctx context.Context, id uuid.UUID) (BankTransaction, error)
	SetReconciled(ctx context.Context, id uuid.UUID, reconciled bool) error
}

type repository struct {
	client backend.Client
}

// NewRepository builds a Repository over the backend client.
func NewRepository(client backend.Client) Repository {
	return &repository{client: client}
}

func (r *repository) ListInvoices(ctx context.Context, businessID uuid.UUID) ([]Invoice, error) {
	var out []Invoice
	err := r.selectInto(ctx, backend.Query{
		Table:   tableInvoices,
		Filters: []backend.Filter{backend.Eq("business_id", businessID)},
		Order:   []backend.Order{{Column: "due_date"}},
	}, &out)
	return out, err
}

func (r *repository) ListUnpaidInvoices(ctx context.Context, businessID uuid.UUID) ([]Invoice, error) {
	var out []Invoice
	err := r.selectInto(ctx, backend.Query{
		Table: tableInvoices,
		Filters: []backend.Filter{
			backend.Eq("business_id", businessID),
			backend.Neq("status", string(InvoicePaid)),
		},
		Order: []backend.Order{{Column: "due_date"}},
	}, &out)
	return out, err
}

func (r *repository) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	var out Invoice
	err := r.insert(ctx, tableInvoices, inv, &out)
	return out, err
}

func (r *repository) ListExpenses(ctx context.Context, businessID uuid.UUID, since *Date) ([]Expense, error) {
	filters := []backend.Filter{backend.Eq("business_id", businessID)}
	if since != nil {
		filters = append(filters, backend.Gte("expense_date", *since))
	}
	var out []Expense
	err := r.selectInto(ctx, backend.Query{
		Table:   tableExpenses,
		Filters: filters,
		Order:   []backend.Order{{Column: "expense_date"}},
	}, &out)
	return out, err
}

func (r *repository) CreateExpense(ctx context.Context, e Expense) (Expense, error) {
	var out Expense
	err := r.insert(ctx, tableExpenses, e, &out)
	return out, err
}

func (r *repository) ListBookings(ctx context.Context, businessID uuid.UUID, since *Date) ([]Booking, error) {
	filters := []backend.Filter{backend.Eq("business_id", businessID)}
	if since != nil {
		filters = append(filters, backend.Gte("booking_date", *since))
	}
	var out []Booking
	err := r.selectInto(ctx, backend.Query{
		Table:   tableBookings,
		Filters: filters,
		Order:   []backend.Order{{Column: "booking_date"}},
	}, &out)
	return out, err
}

func (r *repository) ListFixedAssets(ctx context.Context, businessID uuid.UUID) ([]FixedAsset, error) {
	var out []FixedAsset
	err := r.selectInto(ctx, backend.Query{
		Table:   tableFixedAssets,
		Filters: []backend.Filter{backend.Eq("business_id", businessID)},
		Order:   []backend.Order{{Column: "purchase_date"}},
	}, &out)
	return out, err
}

func (r *repository) CreateFixedAsset(ctx context.Context, a FixedAsset) (FixedAsset, error) {
	var out FixedAsset
	err := r.insert(ctx, tableFixedAssets, a, &out)
	return out, err
}

func (r *repository) ListBudgets(ctx context.Context, businessID uuid.UUID) ([]Budget, error) {
	var out []Budget
	err := r.selectInto(ctx, backend.Query{
		Table:   tableBudgets,
		Filters: []backend.Filter{backend.Eq("business_id", businessID)},
		Order:   []backend.Order{{Column: "period_start"}},
	}, &out)
	return out, err
}

func (r *repository) CreateBudget(ctx context.Context, b Budget) (Budget, error) {
	var out Budget
	err := r.insert(ctx, tableBudgets, b, &out)
	return out, err
}

func (r *repository) ListBankAccounts(ctx context.Context, businessID uuid.UUID) ([]BankAccount, error) {
	var out []BankAccount
	err := r.selectInto(ctx, backend.Query{
		Table:   tableBankAccounts,
		Filters: []backend.Filter{backend.Eq("business_id", businessID)},
		Order:   []backend.Order{{Column: "name"}},
	}, &out)
	return out, err
}

func (r *repository) ListBankTransactions(ctx context.Context, accountIDs ...uuid.UUID) ([]BankTransaction, error) {
	if len(accountIDs) == 0 {
		return []BankTransaction{}, nil
	}
	ids := make([]any, len(accountIDs))
	for i, id := range accountIDs {
		ids[i] = id
	}
	var out []BankTransaction
	err := r.selectInto(ctx, backend.Query{
		Table:   tableBankTransactions,
		Filters: []backend.Filter{backend.In("account_id", ids...)},
		Order:   []backend.Order{{Column: "transaction_date", Desc: true}},
	}, &out)
	return out, err
}

func (r *repository) GetBankTransaction(ctx context.Context, id uuid.UUID) (BankTransaction, error) {
	var out []BankTransaction
	if err := r.selectInto(ctx, backend.Query{
		Table:   tableBankTransactions,
		Filters: []backend.Filter{backend.Eq("id", id)},
		Limit:   1,
	}, &out); err != nil {
		return BankTransaction{}, err
	}
	if len(out) == 0 {
		return BankTransaction{}, ErrTransactionNotFound
	}
	return out[0], nil
}

func (r *repository) SetReconciled(ctx context.Context, id uuid.UUID, reconciled bool) error {
	n, err := r.client.Update(ctx, tableBankTransactions,
		[]backend.Filter{backend.Eq("id", id)},
		backend.Record{"is_reconciled": reconciled})
	if err != nil {
		return fmt.Errorf("finance: reconcile %s: %w", id, err)
	}
	if n == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *repository) selectInto(ctx context.Context, q backend.Query, dest any) error {
	recs, err := r.client.Select(ctx, q)
	if err != nil {
		return fmt.Errorf("finance: list %s: %w", q.Table, err)
	}
	return backend.Decode(recs, dest)
}

func (r *repository) insert(ctx context.Context, table string, v any, dest any) error {
	rec, err := backend.Encode(v)
	if err != nil {
		return err
	}
	stored, err := r.client.Insert(ctx, table, rec)
	if err != nil {
		return fmt.Errorf("finance: create %s: %w", table, err)
	}
	return backend.DecodeOne(stored, dest)
}
