package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/minimart/internal/store"
)

const (
	listOrdersSQL = `SELECT id, created_at, items, total FROM orders ORDER BY id`

	insertOrderSQL = `INSERT INTO orders (id, created_at, items, total)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`
)

// GetOrders returns the full order history ordered by id.
func (s *Store) GetOrders(ctx context.Context) ([]store.OrderRecord, error) {
	rows, err := s.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// SaveOrders persists the order history. History only grows: records already
// present are left untouched, new ones are appended.
func (s *Store) SaveOrders(ctx context.Context, orders []store.OrderRecord) error {
	b := &pgx.Batch{}
	for _, o := range orders {
		itemsJSON, err := json.Marshal(o.Items)
		if err != nil {
			return fmt.Errorf("marshaling items of %q: %w", o.OrderID, err)
		}
		b.Queue(insertOrderSQL, o.OrderID, o.CreatedAt, itemsJSON, decimal.NewFromFloat(o.Total))
	}
	if b.Len() == 0 {
		return nil
	}
	if err := s.pool.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("saving orders: %w", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (store.OrderRecord, error) {
	var (
		o         store.OrderRecord
		itemsJSON []byte
		total     decimal.Decimal
	)
	if err := row.Scan(&o.OrderID, &o.CreatedAt, &itemsJSON, &total); err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		o.Items = nil
	}
	o.Total = total.InexactFloat64()
	return o, nil
}
