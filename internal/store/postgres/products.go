package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xenking/minimart/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT sku, name, category, price, active
		FROM products ORDER BY sku`

	upsertProductSQL = `INSERT INTO products (sku, name, category, price, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sku) DO UPDATE
		SET name = EXCLUDED.name, category = EXCLUDED.category,
		    price = EXCLUDED.price, active = EXCLUDED.active`

	pruneProductsSQL = `DELETE FROM products WHERE sku != ALL($1)`
)

// GetProducts returns the whole catalog ordered by SKU.
func (s *Store) GetProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// SaveProducts replaces the persisted catalog with the given snapshot.
func (s *Store) SaveProducts(ctx context.Context, products []catalog.Product) error {
	skus := make([]string, len(products))
	b := &pgx.Batch{}
	for i, p := range products {
		skus[i] = p.SKU
		b.Queue(upsertProductSQL, p.SKU, p.Name, p.Category, p.Price, p.Active)
	}
	if err := s.snapshot(ctx, pruneProductsSQL, skus, b); err != nil {
		return fmt.Errorf("saving products: %w", err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.SKU, &p.Name, &p.Category, &p.Price, &p.Active)
	return p, err
}
