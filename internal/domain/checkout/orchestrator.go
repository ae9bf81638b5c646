package checkout

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/minimart/internal/domain/cart"
	"github.com/xenking/minimart/internal/domain/catalog"
	"github.com/xenking/minimart/internal/domain/membership"
	"github.com/xenking/minimart/internal/domain/pricing"
)

// ErrEmptyCart rejects a checkout with no lines.
var ErrEmptyCart = fmt.Errorf("cart is empty")

// SkuNotFoundError indicates a cart line references a SKU the catalog does
// not contain.
type SkuNotFoundError struct {
	SKU string
}

func (e *SkuNotFoundError) Error() string {
	return fmt.Sprintf("sku %s not found", e.SKU)
}

// InsufficientStockError indicates a cart line asks for more units than the
// inventory has left.
type InsufficientStockError struct {
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

// Orchestrator runs the validate, price, commit checkout sequence against the
// store. A mutex serializes whole checkouts: the order id derives from the
// order count and inventory is read-modify-write state, so no two checkouts
// may interleave between validation and commit.
type Orchestrator struct {
	store  Store
	engine atomic.Pointer[pricing.Engine]

	mu  sync.Mutex
	now func() time.Time
}

// New creates an Orchestrator checking out against the given store and
// pricing engine.
func New(store Store, engine *pricing.Engine) *Orchestrator {
	o := &Orchestrator{store: store, now: time.Now}
	o.engine.Store(engine)
	return o
}

// SetEngine swaps the pricing engine used by subsequent checkouts. A checkout
// already in flight keeps the engine it loaded.
func (o *Orchestrator) SetEngine(engine *pricing.Engine) {
	o.engine.Store(engine)
}

// Engine returns the engine currently priced against.
func (o *Orchestrator) Engine() *pricing.Engine {
	return o.engine.Load()
}

// Checkout validates every cart line against the catalog and stock, prices
// each line through the engine, and commits: stock deducted, the order
// appended to history with the next sequential id, the cart cleared. A
// validation failure surfaces the offending line's error and leaves cart,
// inventory, and history untouched.
func (o *Orchestrator) Checkout(ctx context.Context, c *cart.Cart, tier membership.Tier) (*Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if c.Len() == 0 {
		return nil, ErrEmptyCart
	}

	products, err := o.store.GetProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	bySKU := catalog.NewMap(products)

	inventory, err := o.store.GetInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}

	items := c.Items()

	// Validate every line before touching anything. Demand is tracked per
	// SKU so duplicate lines cannot claim the same stock twice.
	claimed := make(map[string]int, len(items))
	for _, it := range items {
		if _, ok := bySKU[it.SKU]; !ok {
			return nil, &SkuNotFoundError{SKU: it.SKU}
		}
		available := inventory[it.SKU] - claimed[it.SKU]
		if available < it.Qty {
			return nil, &InsufficientStockError{SKU: it.SKU, Requested: it.Qty, Available: available}
		}
		claimed[it.SKU] += it.Qty
	}

	// Price each line in cart order; the same instant feeds the pricing
	// context and the order timestamp.
	now := o.now()
	engine := o.engine.Load()
	pctx := pricing.Context{Membership: tier, Now: now}

	orderItems := make([]OrderItem, len(items))
	total := decimal.Zero
	for i, it := range items {
		p := bySKU[it.SKU]
		unit := engine.PriceItem(it.SKU, p, it.Qty, p.Price, pctx)
		subtotal := unit.Mul(decimal.NewFromInt(int64(it.Qty))).Round(2)
		orderItems[i] = OrderItem{SKU: it.SKU, Qty: it.Qty, UnitPrice: unit, Subtotal: subtotal}
		total = total.Add(subtotal)
	}
	total = total.Round(2)

	// Commit: deduct stock, assign the next sequential id, persist, clear.
	for _, it := range items {
		inventory[it.SKU] -= it.Qty
	}

	history, err := o.store.GetOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}

	order := &Order{
		ID:        fmt.Sprintf("ORD-%06d", len(history)+1),
		CreatedAt: now,
		Items:     orderItems,
		Total:     total,
	}

	if err := o.store.SaveOrders(ctx, append(history, order.Record())); err != nil {
		return nil, fmt.Errorf("save orders: %w", err)
	}
	if err := o.store.SaveInventory(ctx, inventory); err != nil {
		return nil, fmt.Errorf("save inventory: %w", err)
	}
	c.Clear()

	return order, nil
}
