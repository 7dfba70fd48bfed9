package financehttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercato-hq/mercato/internal/backend"
	"github.com/mercato-hq/mercato/internal/finance"
	"github.com/mercato-hq/mercato/internal/finance/export"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type stubPDF struct {
	last export.SummaryPayload
	err  error
}

func (s *stubPDF) RenderSummary(ctx context.Context, payload export.SummaryPayload) ([]byte, error) {
	s.last = payload
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.7"), nil
}

type fixture struct {
	router   chi.Router
	mem      *backend.Memory
	business uuid.UUID
	pdf      *stubPDF
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mem := backend.NewMemory()
	svc := finance.NewService(finance.NewRepository(mem), nil, nil, finance.WithNow(func() time.Time { return now }))
	pdf := &stubPDF{}
	h := NewHandler(nil, svc, pdf)
	h.WithNow(func() time.Time { return now })
	r := chi.NewRouter()
	h.MountRoutes(r)
	return fixture{router: r, mem: mem, business: uuid.New(), pdf: pdf}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f fixture) base() string { return "/businesses/" + f.business.String() + "/finance" }

func TestCreateExpenseThenBudgets(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, f.base()+"/budgets", `{"category":"Rent","amount":"600","period_start":"2024-01-01","period_end":"2024-01-31"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, f.base()+"/expenses", `{"category":"Rent","amount":"500","expense_date":"2024-01-15"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, f.base()+"/budgets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []finance.BudgetComparison
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.True(t, rows[0].PercentUsed.Equal(decimal.RequireFromString("83.33")))

	rec = f.do(t, http.MethodGet, f.base()+"/budgets.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Rent,2024-01-01,2024-01-31,600.00,500.00,100.00,83.33")
}

func TestCreateExpenseValidationFailure(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, f.base()+"/expenses", `{"category":"Yachts","amount":"0","expense_date":"2024-01-15"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Errors, "category")
	assert.Contains(t, body.Errors, "amount")

	rec = f.do(t, http.MethodPost, f.base()+"/expenses", `{"nope":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPeriodAndIDValidation(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, f.base()+"/pl?period=decade", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/businesses/not-a-uuid/finance/pl", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, f.base()+"/pl?period=quarter", "").Code)
}

func TestAgingRendersEmptyStateOnBackendFailure(t *testing.T) {
	f := newFixture(t)
	f.mem.Fail = func(op, table string, _ []backend.Filter) error {
		if table == "invoices" {
			return errors.New("timeout")
		}
		return nil
	}
	rec := f.do(t, http.MethodGet, f.base()+"/aging", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Report-Warning"))
	var report finance.AgingReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Len(t, report.Buckets, 4)
	assert.True(t, report.Total.IsZero())

}

func TestDashboardFailsWhenCoreReportFails(t *testing.T) {
	f := newFixture(t)
	f.mem.Fail = func(op, table string, _ []backend.Filter) error {
		if table == "bookings" {
			return errors.New("timeout")
		}
		return nil
	}
	rec := f.do(t, http.MethodGet, f.base()+"/dashboard", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "timeout")
}

func TestToggleReconciledRoute(t *testing.T) {
	f := newFixture(t)
	acct := finance.BankAccount{ID: uuid.New(), BusinessID: f.business, Name: "Main"}
	txn := finance.BankTransaction{ID: uuid.New(), AccountID: acct.ID, Amount: decimal.NewFromInt(25), TransactionType: finance.Debit, TransactionDate: finance.NewDate(2024, 3, 2)}
	require.NoError(t, f.mem.Seed("bank_accounts", acct))
	require.NoError(t, f.mem.Seed("bank_transactions", txn))

	rec := f.do(t, http.MethodPost, f.base()+"/bank-transactions/"+txn.ID.String()+"/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum finance.ReconciliationSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 1, sum.ReconciledCount)

	rec = f.do(t, http.MethodGet, f.base()+"/bank-accounts/"+acct.ID.String()+"/reconciliation", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, f.base()+"/bank-transactions/"+uuid.NewString()+"/toggle", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryPDF(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, f.base()+"/summary.pdf?period=year&name=Acme&currency=EUR", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "finance-summary-year.pdf")
	assert.Equal(t, "Acme", f.pdf.last.BusinessName)
	assert.Equal(t, finance.PeriodYear, f.pdf.last.Period)

	f.pdf.err = errors.New("gotenberg down")
	rec = f.do(t, http.MethodGet, f.base()+"/summary.pdf", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestDepreciationAsOf(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, f.base()+"/assets", `{"name":"Oven","purchase_price":"10000","salvage_value":"1000","useful_life_years":5,"depreciation_method":"straight_line","purchase_date":"2020-01-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, f.base()+"/depreciation?as_of=2030-01-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report finance.DepreciationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Assets, 1)
	assert.True(t, report.Assets[0].BookValue.Equal(decimal.NewFromInt(1000)))

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, f.base()+"/depreciation?as_of=someday", "").Code)
}

type agingDown struct {
	FinanceService
}

func (agingDown) ARAging(ctx context.Context, businessID uuid.UUID) (finance.AgingReport, error) {
	return finance.BucketAging(nil, now), errors.New("invoices unavailable")
}

func TestDashboardDegradesWhenAgingFails(t *testing.T) {
	mem := backend.NewMemory()
	svc := finance.NewService(finance.NewRepository(mem), nil, nil, finance.WithNow(func() time.Time { return now }))
	r := chi.NewRouter()
	NewHandler(nil, agingDown{svc}, nil).MountRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/businesses/"+uuid.NewString()+"/finance/dashboard?period=month", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view DashboardView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, []string{"receivables aging unavailable"}, view.Warnings)
	assert.Len(t, view.Aging.Buckets, 4)
	assert.False(t, view.CashFlow.Financing.Modeled)

	req = httptest.NewRequest(http.MethodGet, "/businesses/"+uuid.NewString()+"/finance/summary.pdf", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
