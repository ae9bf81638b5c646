package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	listInventorySQL = `SELECT sku, qty FROM inventory`

	upsertInventorySQL = `INSERT INTO inventory (sku, qty)
		VALUES ($1, $2)
		ON CONFLICT (sku) DO UPDATE SET qty = EXCLUDED.qty`

	pruneInventorySQL = `DELETE FROM inventory WHERE sku != ALL($1)`
)

// GetInventory returns the stock ledger as a SKU to quantity map.
func (s *Store) GetInventory(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, listInventorySQL)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	defer rows.Close()

	levels := make(map[string]int)
	for rows.Next() {
		var (
			sku string
			qty int
		)
		if err := rows.Scan(&sku, &qty); err != nil {
			return nil, fmt.Errorf("scanning inventory row: %w", err)
		}
		levels[sku] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading inventory rows: %w", err)
	}
	return levels, nil
}

// SaveInventory replaces the persisted stock ledger with the given snapshot.
func (s *Store) SaveInventory(ctx context.Context, levels map[string]int) error {
	skus := make([]string, 0, len(levels))
	b := &pgx.Batch{}
	for sku, qty := range levels {
		skus = append(skus, sku)
		b.Queue(upsertInventorySQL, sku, qty)
	}
	if err := s.snapshot(ctx, pruneInventorySQL, skus, b); err != nil {
		return fmt.Errorf("saving inventory: %w", err)
	}
	return nil
}
