package finance

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mercato-hq/mercato/internal/validate"
)

// Service computes finance reports for a business, caching results when a
// Cache is configured.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithNow overrides the clock used for as-of dates.
func WithNow(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires a Repository with an optional Cache.
func NewService(repo Repository, cache *Cache, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock.
func (s *Service) Now() time.Time { return s.now() }

func (s *Service) cached(ctx context.Context, businessID uuid.UUID, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, businessID, parts...)
	if err != nil {
		s.logger.Warn("finance cache key", slog.String("error", err.Error()))
		value, lerr := loader(ctx)
		if lerr != nil {
			return lerr
		}
		return roundTrip(value, dest)
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

// ARAging buckets unpaid invoices. On a fetch failure it logs and returns an
// empty report alongside the error so callers can render an empty state.
func (s *Service) ARAging(ctx context.Context, businessID uuid.UUID) (AgingReport, error) {
	now := s.now()
	var report AgingReport
	err := s.cached(ctx, businessID, &report, func(ctx context.Context) (any, error) {
		invoices, err := s.repo.ListUnpaidInvoices(ctx, businessID)
		if err != nil {
			return nil, err
		}
		return BucketAging(invoices, now), nil
	}, "aging", now.Format("2006-01-02"))
	if err != nil {
		s.logger.Error("ar aging", slog.String("business_id", businessID.String()), slog.String("error", err.Error()))
		return BucketAging(nil, now), err
	}
	return report, nil
}

// Depreciation reports every fixed asset as of today.
func (s *Service) Depreciation(ctx context.Context, businessID uuid.UUID, today time.Time) (DepreciationReport, error) {
	var report DepreciationReport
	err := s.cached(ctx, businessID, &report, func(ctx context.Context) (any, error) {
		assets, err := s.repo.ListFixedAssets(ctx, businessID)
		if err != nil {
			return nil, err
		}
		return BuildDepreciationReport(assets, today), nil
	}, "depreciation", today.Format("2006-01-02"))
	return report, err
}

// ProfitAndLoss buckets bookings and expenses into daily points for the period.
func (s *Service) ProfitAndLoss(ctx context.Context, businessID uuid.UUID, p Period) (PLReport, error) {
	now := s.now()
	start, err := PeriodStart(p, now)
	if err != nil {
		return PLReport{}, err
	}
	var report PLReport
	err = s.cached(ctx, businessID, &report, func(ctx context.Context) (any, error) {
		bookings, err := s.repo.ListBookings(ctx, businessID, &start)
		if err != nil {
			return nil, err
		}
		expenses, err := s.repo.ListExpenses(ctx, businessID, &start)
		if err != nil {
			return nil, err
		}
		return BucketPL(bookings, expenses, p, now)
	}, "pl", string(p), now.Format("2006-01-02"))
	return report, err
}

// CashFlow builds the cash-flow statement for the period.
func (s *Service) CashFlow(ctx context.Context, businessID uuid.UUID, p Period) (CashFlowStatement, error) {
	now := s.now()
	start, err := PeriodStart(p, now)
	if err != nil {
		return CashFlowStatement{}, err
	}
	var stmt CashFlowStatement
	err = s.cached(ctx, businessID, &stmt, func(ctx context.Context) (any, error) {
		bookings, err := s.repo.ListBookings(ctx, businessID, &start)
		if err != nil {
			return nil, err
		}
		expenses, err := s.repo.ListExpenses(ctx, businessID, &start)
		if err != nil {
			return nil, err
		}
		assets, err := s.repo.ListFixedAssets(ctx, businessID)
		if err != nil {
			return nil, err
		}
		return CashFlow(bookings, expenses, assets, p, now)
	}, "cashflow", string(p), now.Format("2006-01-02"))
	return stmt, err
}

// Budgets compares every budget against recorded expenses.
func (s *Service) Budgets(ctx context.Context, businessID uuid.UUID) ([]BudgetComparison, error) {
	var rows []BudgetComparison
	err := s.cached(ctx, businessID, &rows, func(ctx context.Context) (any, error) {
		budgets, err := s.repo.ListBudgets(ctx, businessID)
		if err != nil {
			return nil, err
		}
		expenses, err := s.repo.ListExpenses(ctx, businessID, nil)
		if err != nil {
			return nil, err
		}
		return CompareBudgets(budgets, expenses), nil
	}, "budgets")
	return rows, err
}

// BalanceSheet assembles the balance sheet as of now.
func (s *Service) BalanceSheet(ctx context.Context, businessID uuid.UUID) (BalanceSheet, error) {
	now := s.now()
	var sheet BalanceSheet
	err := s.cached(ctx, businessID, &sheet, func(ctx context.Context) (any, error) {
		accounts, err := s.repo.ListBankAccounts(ctx, businessID)
		if err != nil {
			return nil, err
		}
		ids := make([]uuid.UUID, len(accounts))
		for i, a := range accounts {
			ids[i] = a.ID
		}
		txns, err := s.repo.ListBankTransactions(ctx, ids...)
		if err != nil {
			return nil, err
		}
		invoices, err := s.repo.ListUnpaidInvoices(ctx, businessID)
		if err != nil {
			return nil, err
		}
		assets, err := s.repo.ListFixedAssets(ctx, businessID)
		if err != nil {
			return nil, err
		}
		return BuildBalanceSheet(accounts, txns, invoices, assets, now), nil
	}, "balance", now.Format("2006-01-02"))
	return sheet, err
}

// ExpenseSummary totals all expenses by category and month.
func (s *Service) ExpenseSummary(ctx context.Context, businessID uuid.UUID) (ExpenseSummary, error) {
	var summary ExpenseSummary
	err := s.cached(ctx, businessID, &summary, func(ctx context.Context) (any, error) {
		expenses, err := s.repo.ListExpenses(ctx, businessID, nil)
		if err != nil {
			return nil, err
		}
		return SummarizeExpenses(expenses), nil
	}, "expenses")
	return summary, err
}

// Revenue totals collected and outstanding invoices.
func (s *Service) Revenue(ctx context.Context, businessID uuid.UUID) (RevenueSummary, error) {
	var summary RevenueSummary
	err := s.cached(ctx, businessID, &summary, func(ctx context.Context) (any, error) {
		invoices, err := s.repo.ListInvoices(ctx, businessID)
		if err != nil {
			return nil, err
		}
		return SummarizeRevenue(invoices), nil
	}, "revenue")
	return summary, err
}

// Reconciliation lists the account's transactions with reconcile totals. It
// always reads through to the backend.
func (s *Service) Reconciliation(ctx context.Context, accountID uuid.UUID) (ReconciliationSummary, error) {
	txns, err := s.repo.ListBankTransactions(ctx, accountID)
	if err != nil {
		return ReconciliationSummary{}, err
	}
	return Reconcile(accountID, txns), nil
}

// ToggleReconciled flips a transaction's reconciled flag, re-fetches the
// account and invalidates the business's cached reports.
func (s *Service) ToggleReconciled(ctx context.Context, businessID, txnID uuid.UUID) (ReconciliationSummary, error) {
	txn, err := s.repo.GetBankTransaction(ctx, txnID)
	if err != nil {
		return ReconciliationSummary{}, err
	}
	if err := s.repo.SetReconciled(ctx, txnID, !txn.IsReconciled); err != nil {
		return ReconciliationSummary{}, err
	}
	s.invalidate(ctx, businessID)
	return s.Reconciliation(ctx, txn.AccountID)
}

// CreateExpense validates and stores an expense.
func (s *Service) CreateExpense(ctx context.Context, businessID uuid.UUID, form ExpenseForm) (Expense, error) {
	return create(ctx, s, businessID, NewExpense(businessID, form), s.repo.CreateExpense)
}

// CreateBudget validates and stores a budget.
func (s *Service) CreateBudget(ctx context.Context, businessID uuid.UUID, form BudgetForm) (Budget, error) {
	return create(ctx, s, businessID, NewBudget(businessID, form), s.repo.CreateBudget)
}

// CreateInvoice validates and stores an invoice.
func (s *Service) CreateInvoice(ctx context.Context, businessID uuid.UUID, form InvoiceForm) (Invoice, error) {
	return create(ctx, s, businessID, NewInvoice(businessID, form), s.repo.CreateInvoice)
}

// CreateFixedAsset validates and stores a fixed asset.
func (s *Service) CreateFixedAsset(ctx context.Context, businessID uuid.UUID, form FixedAssetForm) (FixedAsset, error) {
	return create(ctx, s, businessID, NewFixedAsset(businessID, form), s.repo.CreateFixedAsset)
}

// Invalidate drops every cached report for the business.
func (s *Service) Invalidate(ctx context.Context, businessID uuid.UUID) error {
	return s.cache.Bump(ctx, businessID)
}

func (s *Service) invalidate(ctx context.Context, businessID uuid.UUID) {
	if err := s.cache.Bump(ctx, businessID); err != nil {
		s.logger.Warn("finance cache bump", slog.String("business_id", businessID.String()), slog.String("error", err.Error()))
	}
}

func create[T any](ctx context.Context, s *Service, businessID uuid.UUID, res validate.Result[T], store func(context.Context, T) (T, error)) (T, error) {
	if !res.OK() {
		var zero T
		return zero, res.Err()
	}
	out, err := store(ctx, res.Value())
	if err != nil {
		return out, err
	}
	s.invalidate(ctx, businessID)
	return out, nil
}
