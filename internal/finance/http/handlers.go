package financehttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mercato-hq/mercato/internal/finance"
	"github.com/mercato-hq/mercato/internal/finance/export"
	"github.com/mercato-hq/mercato/internal/platform/httpx"
)

const requestTimeout = 5 * time.Second

// FinanceService is the report and mutation contract used by the handler.
type FinanceService interface {
	ARAging(ctx context.Context, businessID uuid.UUID) (finance.AgingReport, error)
	Depreciation(ctx context.Context, businessID uuid.UUID, today time.Time) (finance.DepreciationReport, error)
	ProfitAndLoss(ctx context.Context, businessID uuid.UUID, p finance.Period) (finance.PLReport, error)
	CashFlow(ctx context.Context, businessID uuid.UUID, p finance.Period) (finance.CashFlowStatement, error)
	Budgets(ctx context.Context, businessID uuid.UUID) ([]finance.BudgetComparison, error)
	BalanceSheet(ctx context.Context, businessID uuid.UUID) (finance.BalanceSheet, error)
	ExpenseSummary(ctx context.Context, businessID uuid.UUID) (finance.ExpenseSummary, error)
	Revenue(ctx context.Context, businessID uuid.UUID) (finance.RevenueSummary, error)
	Reconciliation(ctx context.Context, accountID uuid.UUID) (finance.ReconciliationSummary, error)
	ToggleReconciled(ctx context.Context, businessID, txnID uuid.UUID) (finance.ReconciliationSummary, error)
	CreateExpense(ctx context.Context, businessID uuid.UUID, form finance.ExpenseForm) (finance.Expense, error)
	CreateBudget(ctx context.Context, businessID uuid.UUID, form finance.BudgetForm) (finance.Budget, error)
	CreateInvoice(ctx context.Context, businessID uuid.UUID, form finance.InvoiceForm) (finance.Invoice, error)
	CreateFixedAsset(ctx context.Context, businessID uuid.UUID, form finance.FixedAssetForm) (finance.FixedAsset, error)
}

// PDFService renders finance summaries to PDF bytes.
type PDFService interface {
	RenderSummary(ctx context.Context, payload export.SummaryPayload) ([]byte, error)
}

// Handler serves finance reports for a business.
type Handler struct {
	logger  *slog.Logger
	service FinanceService
	pdf     PDFService
	csvPool sync.Pool
	now     func() time.Time
}

// NewHandler constructs the finance HTTP handler. pdf may be nil.
func NewHandler(logger *slog.Logger, service FinanceService, pdf PDFService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, service: service, pdf: pdf, now: time.Now}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// DashboardView is the combined payload behind the finance dashboard.
type DashboardView struct {
	Period   finance.Period             `json:"period"`
	PL       finance.PLReport           `json:"profit_and_loss"`
	CashFlow finance.CashFlowStatement  `json:"cash_flow"`
	Aging    finance.AgingReport        `json:"ar_aging"`
	Budgets  []finance.BudgetComparison `json:"budgets"`
	Balance  finance.BalanceSheet       `json:"balance_sheet"`
	Revenue  finance.RevenueSummary     `json:"revenue"`
	Warnings []string                   `json:"warnings,omitempty"`
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	businessID, period, ok := h.reportParams(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, err := h.loadDashboard(ctx, businessID, period)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "load finance dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) loadDashboard(ctx context.Context, businessID uuid.UUID, period finance.Period) (DashboardView, error) {
	view := DashboardView{Period: period}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pl, err := h.service.ProfitAndLoss(gctx, businessID, period)
		view.PL = pl
		return err
	})
	g.Go(func() error {
		cf, err := h.service.CashFlow(gctx, businessID, period)
		view.CashFlow = cf
		return err
	})
	g.Go(func() error {
		rows, err := h.service.Budgets(gctx, businessID)
		view.Budgets = rows
		return err
	})
	g.Go(func() error {
		sheet, err := h.service.BalanceSheet(gctx, businessID)
		view.Balance = sheet
		return err
	})
	g.Go(func() error {
		rev, err := h.service.Revenue(gctx, businessID)
		view.Revenue = rev
		return err
	})
	// Aging degrades to an empty report instead of failing the dashboard.
	var agingErr error
	g.Go(func() error {
		view.Aging, agingErr = h.service.ARAging(gctx, businessID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return DashboardView{}, err
	}
	if agingErr != nil {
		view.Warnings = append(view.Warnings, "receivables aging unavailable")
	}
	return view, nil
}

func (h *Handler) handleAging(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.businessID(w, r)
	if !ok {
		return
	}
	report, err := h.service.ARAging(r.Context(), businessID)
	if err != nil {
		w.Header().Set("X-Report-Warning", "receivables aging unavailable")
	}
	if strings.HasSuffix(r.URL.Path, ".csv") {
		h.writeCSV(w, "ar-aging.csv", func(buf *bytes.Buffer) error { return export.WriteAgingCSV(buf, report) })
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleDepreciation(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.businessID(w, r)
	if !ok {
		return
	}
	today := h.now()
	if raw := strings.TrimSpace(r.URL.Query().Get("as_of")); raw != "" {
		d, err := finance.ParseDate(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: as_of", httpx.ErrValidation))
			return
		}
		today = d.Time
	}
	report, err := h.service.Depreciation(r.Context(), businessID, today)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "depreciation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handlePL(w http.ResponseWriter, r *http.Request) {
	businessID, period, ok := h.reportParams(w, r)
	if !ok {
		return
	}
	report, err := h.service.ProfitAndLoss(r.Context(), businessID, period)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "profit and loss", err)
		return
	}
	if strings.HasSuffix(r.URL.Path, ".csv") {
		h.writeCSV(w, fmt.Sprintf("profit-loss-%s.csv", period), func(buf *bytes.Buffer) error { return export.WritePLCSV(buf, report) })
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	businessID, period, ok := h.reportParams(w, r)
	if !ok {
		return
	}
	stmt, err := h.service.CashFlow(r.Context(), businessID, period)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "cash flow", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stmt)
}

func (h *Handler) handleBudgets(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.businessID(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Budgets(r.Context(), businessID)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "budgets", err)
		return
	}
	if strings.HasSuffix(r.URL.Path, ".csv") {
		h.writeCSV(w, "budgets.csv", func(buf *bytes.Buffer) error { return export.WriteBudgetCSV(buf, rows) })
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.businessID(w, r)
	if !ok {
		return
	}
	sheet, err := h.service.BalanceSheet(r.Context(), businessID)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "balance sheet", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sheet)
}

func (h *Handler) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.businessID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.ExpenseSummary(r.Context(), businessID)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "expense summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "accountID"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: account id", httpx.ErrValidation))
		return
	}
	summary, err := h.service.Reconciliation(r.Context(), accountID)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "reconciliation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleToggleReconciled(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.businessID(w, r)
	if !ok {
		return
	}
	txnID, err := uuid.Parse(chi.URLParam(r, "txnID"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: transaction id", httpx.ErrValidation))
		return
	}
	summary, err := h.service.ToggleReconciled(r.Context(), businessID, txnID)
	if errors.Is(err, finance.ErrTransactionNotFound) {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
		return
	}
	if err != nil {
		httpx.RespondLogged(w, h.logger, "toggle reconciled", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	createHandler(h, w, r, "create expense", h.service.CreateExpense)
}

func (h *Handler) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	createHandler(h, w, r, "create budget", h.service.CreateBudget)
}

func (h *Handler) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	createHandler(h, w, r, "create invoice", h.service.CreateInvoice)
}

func (h *Handler) handleCreateFixedAsset(w http.ResponseWriter, r *http.Request) {
	createHandler(h, w, r, "create fixed asset", h.service.CreateFixedAsset)
}

func createHandler[F, T any](h *Handler, w http.ResponseWriter, r *http.Request, action string, create func(context.Context, uuid.UUID, F) (T, error)) {
	businessID, ok := h.businessID(w, r)
	if !ok {
		return
	}
	var form F
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := create(r.Context(), businessID, form)
	if err != nil {
		httpx.RespondLogged(w, h.logger, action, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, out)
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF Unavailable", "pdf exporter not configured")
		return
	}
	businessID, period, ok := h.reportParams(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*requestTimeout)
	defer cancel()

	view, err := h.loadDashboard(ctx, businessID, period)
	if err != nil {
		httpx.RespondLogged(w, h.logger, "load finance dashboard", err)
		return
	}
	pdf, err := h.pdf.RenderSummary(ctx, export.SummaryPayload{
		BusinessName: strings.TrimSpace(r.URL.Query().Get("name")),
		Currency:     r.URL.Query().Get("currency"),
		Period:       period,
		PL:           view.PL,
		CashFlow:     view.CashFlow,
		Aging:        view.Aging,
		Budgets:      view.Budgets,
		Balance:      view.Balance,
	})
	if err != nil {
		h.logger.Error("render finance pdf", slog.String("error", err.Error()))
		httpx.Problem(w, http.StatusBadGateway, "PDF Render Failed", "")
		return
	}
	if err := httpx.Attachment(w, "application/pdf", fmt.Sprintf("finance-summary-%s.pdf", period), pdf); err != nil {
		h.logger.Warn("stream pdf", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeCSV(w http.ResponseWriter, filename string, write func(*bytes.Buffer) error) {
	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()
	if err := write(buf); err != nil {
		httpx.RespondLogged(w, h.logger, "write csv", err)
		return
	}
	if err := httpx.Attachment(w, "text/csv; charset=utf-8", filename, buf.Bytes()); err != nil {
		h.logger.Warn("stream csv", slog.String("error", err.Error()))
	}
}

func (h *Handler) businessID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "businessID"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: business id", httpx.ErrValidation))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) reportParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, finance.Period, bool) {
	businessID, ok := h.businessID(w, r)
	if !ok {
		return uuid.Nil, "", false
	}
	period, err := finance.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return uuid.Nil, "", false
	}
	return businessID, period, true
}
