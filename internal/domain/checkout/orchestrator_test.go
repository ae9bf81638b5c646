package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/minimart/internal/domain/cart"
	"github.com/xenking/minimart/internal/domain/catalog"
	"github.com/xenking/minimart/internal/domain/membership"
	"github.com/xenking/minimart/internal/domain/pricing"
	"github.com/xenking/minimart/internal/store"
)

// --- Mock implementations ---

type mockStore struct {
	products  []catalog.Product
	inventory map[string]int
	orders    []store.OrderRecord

	getProductsErr   error
	saveOrdersErr    error
	saveInventoryErr error

	saveOrdersCalls    int
	saveInventoryCalls int
}

func (m *mockStore) GetProducts(_ context.Context) ([]catalog.Product, error) {
	if m.getProductsErr != nil {
		return nil, m.getProductsErr
	}
	return m.products, nil
}

func (m *mockStore) GetInventory(_ context.Context) (map[string]int, error) {
	levels := make(map[string]int, len(m.inventory))
	for sku, qty := range m.inventory {
		levels[sku] = qty
	}
	return levels, nil
}

func (m *mockStore) GetOrders(_ context.Context) ([]store.OrderRecord, error) {
	return m.orders, nil
}

func (m *mockStore) SaveOrders(_ context.Context, orders []store.OrderRecord) error {
	m.saveOrdersCalls++
	if m.saveOrdersErr != nil {
		return m.saveOrdersErr
	}
	m.orders = orders
	return nil
}

func (m *mockStore) SaveInventory(_ context.Context, levels map[string]int) error {
	m.saveInventoryCalls++
	if m.saveInventoryErr != nil {
		return m.saveInventoryErr
	}
	m.inventory = levels
	return nil
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newTestProduct(sku, category, price string) catalog.Product {
	return catalog.Product{
		SKU:      sku,
		Name:     sku,
		Category: category,
		Price:    d(price),
		Active:   true,
	}
}

func newTestStore() *mockStore {
	return &mockStore{
		products: []catalog.Product{
			newTestProduct("MILK-1L", "Dairy", "10.00"),
			newTestProduct("BREAD-1", "Bakery", "4.00"),
		},
		inventory: map[string]int{"MILK-1L": 10, "BREAD-1": 5},
	}
}

// standardEngine prices with a 10% dairy discount on top of the defaults.
func standardEngine(t *testing.T) *pricing.Engine {
	t.Helper()
	cfg := pricing.DefaultPromotions()
	cfg.CategoryDiscounts["Dairy"] = 0.10
	engine, err := pricing.Build(cfg)
	require.NoError(t, err)
	return engine
}

func newOrchestrator(t *testing.T, ms *mockStore, hour int) *Orchestrator {
	t.Helper()
	o := New(ms, standardEngine(t))
	o.now = func() time.Time {
		return time.Date(2026, 3, 14, hour, 30, 0, 0, time.UTC)
	}
	return o
}

func newCart(t *testing.T, lines ...cart.Item) *cart.Cart {
	t.Helper()
	c := cart.New()
	for _, line := range lines {
		require.NoError(t, c.Add(line.SKU, line.Qty))
	}
	return c
}

// --- Tests ---

func TestCheckout_EmptyCart(t *testing.T) {
	o := newOrchestrator(t, newTestStore(), 12)

	_, err := o.Checkout(context.Background(), cart.New(), membership.TierRegular)
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_SkuNotFound(t *testing.T) {
	ms := newTestStore()
	o := newOrchestrator(t, ms, 12)
	c := newCart(t, cart.Item{SKU: "MILK-1L", Qty: 1}, cart.Item{SKU: "GHOST-9", Qty: 1})

	_, err := o.Checkout(context.Background(), c, membership.TierRegular)

	var nfErr *SkuNotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "GHOST-9", nfErr.SKU)
	assert.Zero(t, ms.saveOrdersCalls)
	assert.Zero(t, ms.saveInventoryCalls)
}

func TestCheckout_InsufficientStockIsAtomic(t *testing.T) {
	ms := newTestStore()
	o := newOrchestrator(t, ms, 12)
	c := newCart(t, cart.Item{SKU: "MILK-1L", Qty: 1}, cart.Item{SKU: "BREAD-1", Qty: 6})

	_, err := o.Checkout(context.Background(), c, membership.TierRegular)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "BREAD-1", stockErr.SKU)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)

	// Nothing moved: stock, history, and cart are as before the call.
	assert.Equal(t, map[string]int{"MILK-1L": 10, "BREAD-1": 5}, ms.inventory)
	assert.Empty(t, ms.orders)
	assert.Equal(t, 2, c.Len())
	assert.Zero(t, ms.saveOrdersCalls)
	assert.Zero(t, ms.saveInventoryCalls)
}

func TestCheckout_DuplicateLinesCannotOversell(t *testing.T) {
	ms := newTestStore()
	ms.inventory["MILK-1L"] = 4
	o := newOrchestrator(t, ms, 12)
	c := newCart(t, cart.Item{SKU: "MILK-1L", Qty: 2}, cart.Item{SKU: "MILK-1L", Qty: 3})

	_, err := o.Checkout(context.Background(), c, membership.TierRegular)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "MILK-1L", stockErr.SKU)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 4, ms.inventory["MILK-1L"])
}

func TestCheckout_CompoundedReceipt(t *testing.T) {
	ms := newTestStore()
	o := newOrchestrator(t, ms, 17)
	c := newCart(t, cart.Item{SKU: "MILK-1L", Qty: 3})

	order, err := o.Checkout(context.Background(), c, membership.TierVIP)
	require.NoError(t, err)

	// Dairy 10%, happy hour 5%, VIP 8%, bulk 5% compound to 7.48 a unit.
	require.Len(t, order.Items, 1)
	assert.True(t, d("7.48").Equal(order.Items[0].UnitPrice), "got %s", order.Items[0].UnitPrice)
	assert.True(t, d("22.44").Equal(order.Items[0].Subtotal), "got %s", order.Items[0].Subtotal)
	assert.True(t, d("22.44").Equal(order.Total), "got %s", order.Total)
	assert.Equal(t, "ORD-000001", order.ID)
	assert.Equal(t, time.Date(2026, 3, 14, 17, 30, 0, 0, time.UTC), order.CreatedAt)

	// Committed: stock deducted, history appended, cart cleared.
	assert.Equal(t, 7, ms.inventory["MILK-1L"])
	require.Len(t, ms.orders, 1)
	assert.Equal(t, "ORD-000001", ms.orders[0].OrderID)
	assert.InDelta(t, 22.44, ms.orders[0].Total, 0.0001)
	assert.Zero(t, c.Len())
}

func TestCheckout_SequentialIDs(t *testing.T) {
	ms := newTestStore()
	o := newOrchestrator(t, ms, 12)

	first, err := o.Checkout(context.Background(), newCart(t, cart.Item{SKU: "BREAD-1", Qty: 1}), membership.TierRegular)
	require.NoError(t, err)
	second, err := o.Checkout(context.Background(), newCart(t, cart.Item{SKU: "BREAD-1", Qty: 1}), membership.TierRegular)
	require.NoError(t, err)

	assert.Equal(t, "ORD-000001", first.ID)
	assert.Equal(t, "ORD-000002", second.ID)
	assert.Equal(t, 3, ms.inventory["BREAD-1"])
}

func TestCheckout_DuplicateLinesPriceIndependently(t *testing.T) {
	ms := newTestStore()
	o := newOrchestrator(t, ms, 12)
	c := newCart(t, cart.Item{SKU: "MILK-1L", Qty: 2}, cart.Item{SKU: "MILK-1L", Qty: 3})

	order, err := o.Checkout(context.Background(), c, membership.TierRegular)
	require.NoError(t, err)

	// Line one misses the bulk threshold, line two hits it: 9.00 and 8.55
	// a unit after the dairy discount, never a merged qty-5 line.
	require.Len(t, order.Items, 2)
	assert.True(t, d("9.00").Equal(order.Items[0].UnitPrice), "got %s", order.Items[0].UnitPrice)
	assert.True(t, d("18.00").Equal(order.Items[0].Subtotal), "got %s", order.Items[0].Subtotal)
	assert.True(t, d("8.55").Equal(order.Items[1].UnitPrice), "got %s", order.Items[1].UnitPrice)
	assert.True(t, d("25.65").Equal(order.Items[1].Subtotal), "got %s", order.Items[1].Subtotal)
	assert.True(t, d("43.65").Equal(order.Total), "got %s", order.Total)
	assert.Equal(t, 5, ms.inventory["MILK-1L"])
}

func TestCheckout_SaveOrdersError(t *testing.T) {
	ms := newTestStore()
	ms.saveOrdersErr = errors.New("disk full")
	o := newOrchestrator(t, ms, 12)
	c := newCart(t, cart.Item{SKU: "MILK-1L", Qty: 1})

	_, err := o.Checkout(context.Background(), c, membership.TierRegular)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "save orders")
	assert.Equal(t, 1, c.Len(), "cart must keep its lines on a failed commit")
	assert.Equal(t, 10, ms.inventory["MILK-1L"])
}

func TestCheckout_EngineSwapAppliesToNextCheckout(t *testing.T) {
	ms := newTestStore()
	o := newOrchestrator(t, ms, 12)

	plain, err := pricing.Build(pricing.DefaultPromotions())
	require.NoError(t, err)
	o.SetEngine(plain)
	require.Same(t, plain, o.Engine())

	order, err := o.Checkout(context.Background(), newCart(t, cart.Item{SKU: "MILK-1L", Qty: 1}), membership.TierRegular)
	require.NoError(t, err)
	assert.True(t, d("10.00").Equal(order.Total), "got %s", order.Total)
}
