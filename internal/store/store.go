// Package store defines the persistence contract for the POS service and the
// record shapes shared by its backends. The service keeps whole collections in
// memory and saves them as snapshots, so the contract is get/save per
// collection rather than per-row CRUD.
package store

import (
	"context"
	"time"

	"github.com/xenking/minimart/internal/domain/catalog"
	"github.com/xenking/minimart/internal/domain/membership"
	"github.com/xenking/minimart/internal/domain/pricing"
)

// Store persists the five POS collections. Implementations must treat missing
// or unparsable persisted data as an empty collection (or default promotions),
// never as an error: a fresh deployment and a corrupted file both start the
// store empty. Transport failures still surface as errors.
type Store interface {
	GetProducts(ctx context.Context) ([]catalog.Product, error)
	SaveProducts(ctx context.Context, products []catalog.Product) error

	GetInventory(ctx context.Context) (map[string]int, error)
	SaveInventory(ctx context.Context, levels map[string]int) error

	GetOrders(ctx context.Context) ([]OrderRecord, error)
	SaveOrders(ctx context.Context, orders []OrderRecord) error

	GetCustomers(ctx context.Context) ([]membership.Customer, error)
	SaveCustomers(ctx context.Context, customers []membership.Customer) error

	GetPromotions(ctx context.Context) (pricing.PromotionConfig, error)
	SavePromotions(ctx context.Context, cfg pricing.PromotionConfig) error
}

// OrderItemRecord is one priced line of a persisted order.
type OrderItemRecord struct {
	SKU       string  `json:"sku"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

// OrderRecord is the persisted form of a completed order. Money is stored as
// plain JSON numbers rounded to cents, timestamps as RFC 3339.
type OrderRecord struct {
	OrderID   string            `json:"order_id"`
	CreatedAt time.Time         `json:"created_at"`
	Items     []OrderItemRecord `json:"items"`
	Total     float64           `json:"total"`
}
