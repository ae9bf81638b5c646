package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/minimart/internal/domain/catalog"
	"github.com/xenking/minimart/internal/store"
)

// OrderItem is one priced line of a completed order. UnitPrice is the
// post-discount price per unit; Subtotal is unit price times quantity,
// rounded to cents.
type OrderItem struct {
	SKU       string
	Qty       int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// Order records a completed checkout. Once constructed it is appended to the
// order history and never mutated or deleted.
type Order struct {
	ID        string
	CreatedAt time.Time
	Items     []OrderItem
	Total     decimal.Decimal
}

// Record converts the order to its persisted shape.
func (o *Order) Record() store.OrderRecord {
	items := make([]store.OrderItemRecord, len(o.Items))
	for i, it := range o.Items {
		items[i] = store.OrderItemRecord{
			SKU:       it.SKU,
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice.InexactFloat64(),
			Subtotal:  it.Subtotal.InexactFloat64(),
		}
	}
	return store.OrderRecord{
		OrderID:   o.ID,
		CreatedAt: o.CreatedAt,
		Items:     items,
		Total:     o.Total.InexactFloat64(),
	}
}

// Store is the slice of the persistence contract checkout depends on.
type Store interface {
	GetProducts(ctx context.Context) ([]catalog.Product, error)
	GetInventory(ctx context.Context) (map[string]int, error)
	GetOrders(ctx context.Context) ([]store.OrderRecord, error)
	SaveOrders(ctx context.Context, orders []store.OrderRecord) error
	SaveInventory(ctx context.Context, levels map[string]int) error
}
