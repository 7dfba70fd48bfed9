package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercato-hq/mercato/internal/backend"
	"github.com/mercato-hq/mercato/internal/validate"
)

func newTestService(t *testing.T) (*Service, *backend.Memory) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mem := backend.NewMemory()
	svc := NewService(NewRepository(mem), NewCache(client, time.Minute), nil, WithNow(func() time.Time { return testNow }))
	return svc, mem
}

func TestServiceARAgingCachesUntilBump(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	biz := uuid.New()
	require.NoError(t, mem.Seed(tableInvoices,
		Invoice{ID: uuid.New(), BusinessID: biz, Amount: dec("200"), TotalAmount: dec("200"), DueDate: DateOf(testNow.AddDate(0, 0, -45)), Status: InvoicePending},
		Invoice{ID: uuid.New(), BusinessID: biz, Amount: dec("80"), DueDate: DateOf(testNow), Status: InvoicePaid},
		Invoice{ID: uuid.New(), BusinessID: uuid.New(), Amount: dec("999"), DueDate: DateOf(testNow), Status: InvoicePending},
	))

	report, err := svc.ARAging(ctx, biz)
	require.NoError(t, err)
	assert.True(t, report.Total.Equal(dec("200")))
	assert.Equal(t, 1, report.Buckets[1].Count)

	require.NoError(t, mem.Seed(tableInvoices,
		Invoice{ID: uuid.New(), BusinessID: biz, Amount: dec("50"), DueDate: DateOf(testNow), Status: InvoicePending},
	))
	cached, err := svc.ARAging(ctx, biz)
	require.NoError(t, err)
	assert.True(t, cached.Total.Equal(dec("200")), "second call should be served from cache")

	require.NoError(t, svc.Invalidate(ctx, biz))
	fresh, err := svc.ARAging(ctx, biz)
	require.NoError(t, err)
	assert.True(t, fresh.Total.Equal(dec("250")))
}

func TestServiceARAgingFetchErrorReturnsEmptyReport(t *testing.T) {
	svc, mem := newTestService(t)
	boom := errors.New("backend down")
	mem.Fail = func(op, table string, _ []backend.Filter) error {
		if op == "select" && table == tableInvoices {
			return boom
		}
		return nil
	}

	report, err := svc.ARAging(context.Background(), uuid.New())
	require.ErrorIs(t, err, boom)
	require.Len(t, report.Buckets, 4)
	assert.True(t, report.Total.IsZero())
	assert.Zero(t, report.Count)
}

func TestServiceBudgetsAndCreateExpense(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	biz := uuid.New()

	b := NewBudget(biz, BudgetForm{Category: "Rent", Amount: "600", PeriodStart: "2024-01-01", PeriodEnd: "2024-01-31"})
	require.True(t, b.OK())
	require.NoError(t, mem.Seed(tableBudgets, b.Value()))

	_, err := svc.CreateExpense(ctx, biz, ExpenseForm{Category: "Rent", Amount: "500", ExpenseDate: "2024-01-15"})
	require.NoError(t, err)

	rows, err := svc.Budgets(ctx, biz)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Actual.Equal(dec("500")))
	assert.True(t, rows[0].Variance.Equal(dec("100")))
	assert.True(t, rows[0].PercentUsed.Equal(dec("83.33")))

	_, err = svc.CreateExpense(ctx, biz, ExpenseForm{Category: "Rent", Amount: "100", ExpenseDate: "2024-01-20"})
	require.NoError(t, err)
	rows, err = svc.Budgets(ctx, biz)
	require.NoError(t, err)
	assert.True(t, rows[0].Actual.Equal(dec("600")), "create bumps the cache")
	assert.Equal(t, UsageExceeded, rows[0].Level)

	_, err = svc.CreateExpense(ctx, biz, ExpenseForm{Category: "Bribes", Amount: "-1", ExpenseDate: "soon"})
	require.ErrorIs(t, err, validate.ErrInvalid)
	var fe validate.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "category")
	assert.Contains(t, fe, "amount")
	assert.Contains(t, fe, "expense_date")
}

func TestServiceToggleReconciled(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	biz := uuid.New()
	acct := BankAccount{ID: uuid.New(), BusinessID: biz, Name: "Operating", OpeningBalance: dec("100")}
	txn := BankTransaction{ID: uuid.New(), AccountID: acct.ID, Amount: dec("40"), TransactionType: Credit, TransactionDate: NewDate(2024, 3, 1)}
	require.NoError(t, mem.Seed(tableBankAccounts, acct))
	require.NoError(t, mem.Seed(tableBankTransactions, txn))

	sum, err := svc.ToggleReconciled(ctx, biz, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.ReconciledCount)
	assert.True(t, sum.Transactions[0].IsReconciled)

	sum, err = svc.ToggleReconciled(ctx, biz, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.ReconciledCount)

	_, err = svc.ToggleReconciled(ctx, biz, uuid.New())
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	sheet, err := svc.BalanceSheet(ctx, biz)
	require.NoError(t, err)
	assert.True(t, sheet.Cash.Equal(dec("140")))
}

func TestServicePeriodReports(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	biz := uuid.New()
	bookings, expenses := plFixtures()
	for i := range bookings {
		bookings[i].ID = uuid.New()
		bookings[i].BusinessID = biz
		require.NoError(t, mem.Seed(tableBookings, bookings[i]))
	}
	for i := range expenses {
		expenses[i].ID = uuid.New()
		expenses[i].BusinessID = biz
		require.NoError(t, mem.Seed(tableExpenses, expenses[i]))
	}

	pl, err := svc.ProfitAndLoss(ctx, biz, PeriodMonth)
	require.NoError(t, err)
	assert.True(t, pl.NetProfit.Equal(dec("280")))
	assert.Len(t, pl.Points, 3)

	cf, err := svc.CashFlow(ctx, biz, PeriodMonth)
	require.NoError(t, err)
	assert.True(t, cf.Operating.Amount.Equal(dec("280")))
	assert.False(t, cf.Financing.Modeled)

	_, err = svc.ProfitAndLoss(ctx, biz, "fortnight")
	assert.ErrorIs(t, err, ErrUnknownPeriod)
}

func TestServiceWithoutCache(t *testing.T) {
	mem := backend.NewMemory()
	svc := NewService(NewRepository(mem), nil, nil, WithNow(func() time.Time { return testNow }))
	biz := uuid.New()
	require.NoError(t, mem.Seed(tableExpenses, Expense{ID: uuid.New(), BusinessID: biz, Category: "Rent", Amount: dec("10"), ExpenseDate: NewDate(2024, 1, 1)}))

	summary, err := svc.ExpenseSummary(context.Background(), biz)
	require.NoError(t, err)
	assert.True(t, summary.Total.Equal(dec("10")))
	require.NoError(t, svc.Invalidate(context.Background(), biz))
}
