// Command store-seed loads a demo catalog, stock levels, customers, and the
// default promotion config into a fresh store. Existing entries are upserted
// by key, so re-running is safe.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/minimart/internal/domain/catalog"
	"github.com/xenking/minimart/internal/domain/membership"
	"github.com/xenking/minimart/internal/domain/pricing"
	"github.com/xenking/minimart/internal/store"
	"github.com/xenking/minimart/internal/store/jsonstore"
	"github.com/xenking/minimart/internal/store/postgres"
)

func main() {
	var (
		storage     string
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&storage, "storage", "file", "persistence backend: file or postgres")
	flag.StringVar(&dataDir, "data-dir", "./data", "data directory for the file backend")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if storage == "postgres" && databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, storage, dataDir, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, storage, dataDir, databaseURL string) error {
	st, closeStore, err := openStore(ctx, storage, dataDir, databaseURL)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer closeStore()

	if err := seedProducts(ctx, st); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedInventory(ctx, st); err != nil {
		return errors.Wrap(err, "seed inventory")
	}
	if err := seedCustomers(ctx, st); err != nil {
		return errors.Wrap(err, "seed customers")
	}
	if err := seedPromotions(ctx, st); err != nil {
		return errors.Wrap(err, "seed promotions")
	}

	return nil
}

func openStore(ctx context.Context, storage, dataDir, databaseURL string) (store.Store, func(), error) {
	if storage == "postgres" {
		slog.Info("connecting to database")
		pool, err := postgres.NewPool(ctx, databaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "connect to database")
		}
		slog.Info("running migrations")
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "run migrations")
		}
		return postgres.New(pool), pool.Close, nil
	}

	slog.Info("opening data directory", slog.String("path", dataDir))
	st, err := jsonstore.New(dataDir)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open json store")
	}
	return st, func() {}, nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func demoProducts() []catalog.Product {
	return []catalog.Product{
		{SKU: "MILK-1L", Name: "Whole Milk 1L", Category: "Dairy", Price: price("2.49"), Active: true},
		{SKU: "YOG-500G", Name: "Greek Yogurt 500g", Category: "Dairy", Price: price("3.99"), Active: true},
		{SKU: "CHED-200G", Name: "Cheddar 200g", Category: "Dairy", Price: price("4.79"), Active: true},
		{SKU: "BREAD-WHT", Name: "White Loaf", Category: "Bakery", Price: price("2.19"), Active: true},
		{SKU: "CROIS-4PK", Name: "Croissants 4-pack", Category: "Bakery", Price: price("5.49"), Active: true},
		{SKU: "BANANA-KG", Name: "Bananas per kg", Category: "Produce", Price: price("1.59"), Active: true},
		{SKU: "APPLE-KG", Name: "Apples per kg", Category: "Produce", Price: price("3.29"), Active: true},
		{SKU: "RICE-1KG", Name: "Basmati Rice 1kg", Category: "Pantry", Price: price("4.99"), Active: true},
		{SKU: "PASTA-500G", Name: "Penne 500g", Category: "Pantry", Price: price("1.89"), Active: true},
		{SKU: "COFFEE-250G", Name: "Ground Coffee 250g", Category: "Pantry", Price: price("7.99"), Active: true},
	}
}

func seedProducts(ctx context.Context, st store.Store) error {
	existing, err := st.GetProducts(ctx)
	if err != nil {
		return errors.Wrap(err, "load products")
	}

	bySKU := make(map[string]int, len(existing))
	for i, p := range existing {
		bySKU[p.SKU] = i
	}

	seed := demoProducts()
	for _, p := range seed {
		if i, ok := bySKU[p.SKU]; ok {
			existing[i] = p
		} else {
			existing = append(existing, p)
		}
		slog.Info("upserted product", slog.String("sku", p.SKU), slog.String("name", p.Name))
	}

	return st.SaveProducts(ctx, existing)
}

func seedInventory(ctx context.Context, st store.Store) error {
	levels, err := st.GetInventory(ctx)
	if err != nil {
		return errors.Wrap(err, "load inventory")
	}

	stock := map[string]int{
		"MILK-1L":     40,
		"YOG-500G":    25,
		"CHED-200G":   18,
		"BREAD-WHT":   30,
		"CROIS-4PK":   12,
		"BANANA-KG":   60,
		"APPLE-KG":    45,
		"RICE-1KG":    20,
		"PASTA-500G":  35,
		"COFFEE-250G": 15,
	}
	for sku, qty := range stock {
		levels[sku] = qty
	}

	slog.Info("stocked shelves", slog.Int("skus", len(stock)))

	return st.SaveInventory(ctx, levels)
}

func seedCustomers(ctx context.Context, st store.Store) error {
	existing, err := st.GetCustomers(ctx)
	if err != nil {
		return errors.Wrap(err, "load customers")
	}

	seed := []membership.Customer{
		{CustomerID: "C-001", Name: "Dana Whitfield", LifetimeSpend: price("0")},
		{CustomerID: "C-002", Name: "Omar Haddad", LifetimeSpend: price("142.80")},
		{CustomerID: "C-003", Name: "Priya Raman", LifetimeSpend: price("655.10")},
		{CustomerID: "C-004", Name: "Jules Moreau", LifetimeSpend: price("1210.45")},
	}

	for _, c := range seed {
		c.Tier = membership.ComputeTier(c.LifetimeSpend)
		if got, ok := membership.FindCustomer(existing, c.CustomerID); ok {
			*got = c
		} else {
			existing = append(existing, c)
		}
		slog.Info("upserted customer",
			slog.String("id", c.CustomerID),
			slog.String("tier", string(c.Tier)))
	}

	return st.SaveCustomers(ctx, existing)
}

func seedPromotions(ctx context.Context, st store.Store) error {
	slog.Info("writing default promotion config")
	return st.SavePromotions(ctx, pricing.DefaultPromotions())
}
