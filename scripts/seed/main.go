package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercato-hq/mercato/internal/app"
	"github.com/mercato-hq/mercato/internal/backend"
	"github.com/mercato-hq/mercato/internal/catalog"
	"github.com/mercato-hq/mercato/internal/finance"
	"github.com/mercato-hq/mercato/internal/platform/db"
)

//go:embed schema.sql
var schema string

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	pool, err := db.New(ctx, cfg.DBOptions())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	fmt.Println("→ Applying schema...")
	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	logger := app.NewLogger(cfg)
	if err := seed(ctx, backend.NewPostgres(pool), logger, time.Now().UTC()); err != nil {
		log.Fatalf("seed: %v", err)
	}
	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

type demoBusiness struct {
	catalog.Business
	products []catalog.ProductForm
}

var demoOwner = uuid.MustParse("7a0c6f4e-5c51-4b0e-9f1e-2d1e6c9b7a01")

func demoBusinesses() []demoBusiness {
	return []demoBusiness{
		{
			Business: catalog.Business{
				ID: uuid.MustParse("1b7c0f1e-8a4d-4c2b-9a61-0c6f7e3d2a10"), OwnerID: demoOwner,
				Name: "Harbor Coffee", Slug: "harbor-coffee", Category: "Cafe", City: "Lisbon",
				Description: "Single origin roasts by the river.", Active: true,
			},
			products: []catalog.ProductForm{
				{Name: "Espresso", Price: "2.20"},
				{Name: "Flat White", Price: "3.50"},
				{Name: "House Beans 250g", Description: "Medium roast", Price: "11.90"},
			},
		},
		{
			Business: catalog.Business{
				ID: uuid.MustParse("2c8d1a2f-9b5e-4d3c-8b72-1d7a8f4e3b21"), OwnerID: demoOwner,
				Name: "Atelier Nord", Slug: "atelier-nord", Category: "Design", City: "Porto",
				Description: "Furniture restoration studio.", Active: true,
			},
			products: []catalog.ProductForm{
				{Name: "Chair restoration", Price: "180"},
				{Name: "Table refinish", Price: "320"},
			},
		},
	}
}

// seed populates the demo dataset. Businesses that already exist are skipped
// so the tool can be re-run.
func seed(ctx context.Context, client backend.Client, logger *slog.Logger, now time.Time) error {
	catalogService := catalog.NewService(catalog.NewRepository(client), logger, catalog.WithNow(func() time.Time { return now }))
	financeService := finance.NewService(finance.NewRepository(client), finance.NewCache(nil, 0), logger)

	for _, biz := range demoBusinesses() {
		fmt.Println("→ Seeding business", biz.Slug)
		rec, err := backend.Encode(biz.Business)
		if err != nil {
			return err
		}
		if _, err := client.Insert(ctx, "businesses", rec); err != nil {
			if errors.Is(err, backend.ErrConflict) {
				fmt.Println("  already present, skipping")
				continue
			}
			return fmt.Errorf("insert business %s: %w", biz.Slug, err)
		}
		for _, form := range biz.products {
			if _, err := catalogService.CreateProduct(ctx, biz.ID, form); err != nil {
				return fmt.Errorf("product %s: %w", form.Name, err)
			}
		}
		if err := seedFinance(ctx, client, financeService, biz.ID, now); err != nil {
			return fmt.Errorf("finance %s: %w", biz.Slug, err)
		}
	}
	return nil
}

func seedFinance(ctx context.Context, client backend.Client, svc *finance.Service, businessID uuid.UUID, now time.Time) error {
	day := func(offset int) string { return now.AddDate(0, 0, offset).Format("2006-01-02") }

	// One invoice per aging bucket plus a paid one.
	invoices := []finance.InvoiceForm{
		{CustomerName: "Marta Silva", CustomerEmail: "marta@example.com", Amount: "120", DueDate: day(10)},
		{CustomerName: "João Costa", Amount: "340.50", DueDate: day(-45)},
		{CustomerName: "Clara Nunes", Amount: "89.90", DueDate: day(-75)},
		{CustomerName: "Rui Pinto", Amount: "1200", DueDate: day(-120), Status: "overdue"},
		{CustomerName: "Ana Reis", Amount: "560", DueDate: day(-5), Status: "paid"},
	}
	for _, form := range invoices {
		if _, err := svc.CreateInvoice(ctx, businessID, form); err != nil {
			return err
		}
	}

	expenses := []finance.ExpenseForm{
		{Category: "Rent", Amount: "900", ExpenseDate: day(-20)},
		{Category: "Utilities", Amount: "140.35", ExpenseDate: day(-12)},
		{Category: "Supplies", Amount: "260", ExpenseDate: day(-3), Description: "Packaging"},
		{Category: "Marketing", Amount: "75", ExpenseDate: day(-40)},
	}
	for _, form := range expenses {
		if _, err := svc.CreateExpense(ctx, businessID, form); err != nil {
			return err
		}
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	budgets := []finance.BudgetForm{
		{Category: "Rent", Amount: "900", PeriodStart: monthStart.AddDate(0, -1, 0).Format("2006-01-02"), PeriodEnd: monthStart.AddDate(0, 1, -1).Format("2006-01-02")},
		{Category: "Supplies", Amount: "200", PeriodStart: monthStart.Format("2006-01-02"), PeriodEnd: monthStart.AddDate(0, 1, -1).Format("2006-01-02")},
	}
	for _, form := range budgets {
		if _, err := svc.CreateBudget(ctx, businessID, form); err != nil {
			return err
		}
	}

	if _, err := svc.CreateFixedAsset(ctx, businessID, finance.FixedAssetForm{
		Name:               "Espresso machine",
		PurchasePrice:      "6000",
		SalvageValue:       "500",
		UsefulLifeYears:    5,
		DepreciationMethod: "straight_line",
		PurchaseDate:       now.AddDate(-2, 0, 0).Format("2006-01-02"),
	}); err != nil {
		return err
	}

	for i, amount := range []string{"420", "515.75", "388"} {
		booking := finance.Booking{
			ID:          uuid.New(),
			BusinessID:  businessID,
			Amount:      decimal.RequireFromString(amount),
			BookingDate: finance.DateOf(now.AddDate(0, 0, -7*(i+1))),
			Status:      "confirmed",
		}
		if err := insert(ctx, client, "bookings", booking); err != nil {
			return err
		}
	}

	account := finance.BankAccount{
		ID:             uuid.New(),
		BusinessID:     businessID,
		Name:           "Operating account",
		OpeningBalance: decimal.NewFromInt(2500),
	}
	if err := insert(ctx, client, "bank_accounts", account); err != nil {
		return err
	}
	txns := []finance.BankTransaction{
		{ID: uuid.New(), AccountID: account.ID, Amount: decimal.NewFromInt(560), TransactionType: finance.Credit, Description: "Invoice payment", TransactionDate: finance.DateOf(now.AddDate(0, 0, -4)), IsReconciled: true},
		{ID: uuid.New(), AccountID: account.ID, Amount: decimal.NewFromInt(900), TransactionType: finance.Debit, Description: "Rent", TransactionDate: finance.DateOf(now.AddDate(0, 0, -20))},
	}
	for _, txn := range txns {
		if err := insert(ctx, client, "bank_transactions", txn); err != nil {
			return err
		}
	}
	return nil
}

func insert(ctx context.Context, client backend.Client, table string, v any) error {
	rec, err := backend.Encode(v)
	if err != nil {
		return err
	}
	_, err = client.Insert(ctx, table, rec)
	return err
}
