// Package report aggregates order history and stock levels into the two
// back-office views the store runs on: a sales summary and a low-stock alert
// list.
package report

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/minimart/internal/store"
)

// DefaultLowStockThreshold is used when the caller does not pick one.
const DefaultLowStockThreshold = 5

// TopSellers is how many SKUs the sales summary ranks.
const TopSellers = 5

// Store is the slice of the persistence contract reports depend on.
type Store interface {
	GetOrders(ctx context.Context) ([]store.OrderRecord, error)
	GetInventory(ctx context.Context) (map[string]int, error)
}

// SKUCount is units sold per SKU.
type SKUCount struct {
	SKU   string
	Units int
}

// Summary is a revenue total plus the best-selling SKUs for a date range.
type Summary struct {
	Revenue decimal.Decimal
	Top     []SKUCount
}

// StockLevel is one inventory entry at or below the alert threshold.
type StockLevel struct {
	SKU string
	Qty int
}

// Service computes reports from the store.
type Service struct {
	store Store
}

// NewService creates a report Service reading from the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// SalesSummary sums revenue and ranks units sold across the order history.
// Nil bounds mean unbounded; both bounds are inclusive. Ranking is units
// descending with ties broken by SKU.
func (s *Service) SalesSummary(ctx context.Context, start, end *time.Time) (Summary, error) {
	orders, err := s.store.GetOrders(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("get orders: %w", err)
	}

	revenue := decimal.Zero
	units := make(map[string]int)
	for _, o := range orders {
		if start != nil && o.CreatedAt.Before(*start) {
			continue
		}
		if end != nil && o.CreatedAt.After(*end) {
			continue
		}
		revenue = revenue.Add(decimal.NewFromFloat(o.Total))
		for _, it := range o.Items {
			units[it.SKU] += it.Qty
		}
	}

	top := make([]SKUCount, 0, len(units))
	for sku, n := range units {
		top = append(top, SKUCount{SKU: sku, Units: n})
	}
	slices.SortFunc(top, func(a, b SKUCount) int {
		if a.Units != b.Units {
			return b.Units - a.Units
		}
		return cmp.Compare(a.SKU, b.SKU)
	})
	if len(top) > TopSellers {
		top = top[:TopSellers]
	}

	return Summary{Revenue: revenue.Round(2), Top: top}, nil
}

// LowStock lists inventory entries with qty at or below threshold, sorted by
// SKU.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]StockLevel, error) {
	inventory, err := s.store.GetInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}

	levels := make([]StockLevel, 0, len(inventory))
	for sku, qty := range inventory {
		if qty <= threshold {
			levels = append(levels, StockLevel{SKU: sku, Qty: qty})
		}
	}
	slices.SortFunc(levels, func(a, b StockLevel) int {
		return cmp.Compare(a.SKU, b.SKU)
	})
	return levels, nil
}
