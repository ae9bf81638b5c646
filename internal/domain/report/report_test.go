package report

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/minimart/internal/store"
)

type mockStore struct {
	orders    []store.OrderRecord
	inventory map[string]int
}

func (m *mockStore) GetOrders(_ context.Context) ([]store.OrderRecord, error) {
	return m.orders, nil
}

func (m *mockStore) GetInventory(_ context.Context) (map[string]int, error) {
	return m.inventory, nil
}

func day(n int) time.Time {
	return time.Date(2026, 3, n, 12, 0, 0, 0, time.UTC)
}

func order(id string, created time.Time, total float64, items ...store.OrderItemRecord) store.OrderRecord {
	return store.OrderRecord{OrderID: id, CreatedAt: created, Items: items, Total: total}
}

func line(sku string, qty int) store.OrderItemRecord {
	return store.OrderItemRecord{SKU: sku, Qty: qty}
}

func TestSalesSummary_AllOrders(t *testing.T) {
	svc := NewService(&mockStore{orders: []store.OrderRecord{
		order("ORD-000001", day(1), 10.50, line("MILK-1L", 2), line("BREAD-1", 1)),
		order("ORD-000002", day(2), 7.25, line("MILK-1L", 1)),
	}})

	got, err := svc.SalesSummary(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("17.75").Equal(got.Revenue), "got %s", got.Revenue)
	assert.Equal(t, []SKUCount{{SKU: "MILK-1L", Units: 3}, {SKU: "BREAD-1", Units: 1}}, got.Top)
}

func TestSalesSummary_DateRangeInclusive(t *testing.T) {
	svc := NewService(&mockStore{orders: []store.OrderRecord{
		order("ORD-000001", day(1), 1.00, line("A", 1)),
		order("ORD-000002", day(2), 2.00, line("B", 1)),
		order("ORD-000003", day(3), 4.00, line("C", 1)),
	}})

	start, end := day(2), day(3)
	got, err := svc.SalesSummary(context.Background(), &start, &end)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("6.00").Equal(got.Revenue), "got %s", got.Revenue)
	assert.Equal(t, []SKUCount{{SKU: "B", Units: 1}, {SKU: "C", Units: 1}}, got.Top)
}

func TestSalesSummary_TopFiveWithSKUTiebreak(t *testing.T) {
	svc := NewService(&mockStore{orders: []store.OrderRecord{
		order("ORD-000001", day(1), 0,
			line("F", 1), line("E", 2), line("D", 2), line("C", 3), line("B", 4), line("A", 5)),
	}})

	got, err := svc.SalesSummary(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []SKUCount{
		{SKU: "A", Units: 5},
		{SKU: "B", Units: 4},
		{SKU: "C", Units: 3},
		{SKU: "D", Units: 2},
		{SKU: "E", Units: 2},
	}, got.Top)
}

func TestSalesSummary_Empty(t *testing.T) {
	svc := NewService(&mockStore{})

	got, err := svc.SalesSummary(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.True(t, got.Revenue.IsZero())
	assert.Empty(t, got.Top)
}

func TestLowStock(t *testing.T) {
	svc := NewService(&mockStore{inventory: map[string]int{
		"MILK-1L": 2,
		"BREAD-1": 5,
		"EGGS-12": 20,
		"BUTTER":  0,
	}})

	got, err := svc.LowStock(context.Background(), DefaultLowStockThreshold)
	require.NoError(t, err)

	assert.Equal(t, []StockLevel{
		{SKU: "BREAD-1", Qty: 5},
		{SKU: "BUTTER", Qty: 0},
		{SKU: "MILK-1L", Qty: 2},
	}, got)
}

func TestLowStock_ZeroThreshold(t *testing.T) {
	svc := NewService(&mockStore{inventory: map[string]int{"MILK-1L": 2, "BUTTER": 0}})

	got, err := svc.LowStock(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, []StockLevel{{SKU: "BUTTER", Qty: 0}}, got)
}
