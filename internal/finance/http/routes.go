package financehttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers finance endpoints under /businesses/{businessID}/finance.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Route("/businesses/{businessID}/finance", func(fr chi.Router) {
		fr.Get("/dashboard", h.handleDashboard)
		fr.Get("/aging", h.handleAging)
		fr.Get("/depreciation", h.handleDepreciation)
		fr.Get("/pl", h.handlePL)
		fr.Get("/cashflow", h.handleCashFlow)
		fr.Get("/budgets", h.handleBudgets)
		fr.Get("/balance-sheet", h.handleBalanceSheet)
		fr.Get("/expenses/summary", h.handleExpenseSummary)
		fr.Get("/bank-accounts/{accountID}/reconciliation", h.handleReconciliation)
		fr.Post("/bank-transactions/{txnID}/toggle", h.handleToggleReconciled)
		fr.Post("/expenses", h.handleCreateExpense)
		fr.Post("/budgets", h.handleCreateBudget)
		fr.Post("/invoices", h.handleCreateInvoice)
		fr.Post("/assets", h.handleCreateFixedAsset)

		fr.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/aging.csv", h.handleAging)
			gr.Get("/pl.csv", h.handlePL)
			gr.Get("/budgets.csv", h.handleBudgets)
			gr.Get("/summary.pdf", h.handlePDF)
		})
	})
}
