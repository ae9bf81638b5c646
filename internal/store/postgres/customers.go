package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/minimart/internal/domain/membership"
)

const (
	listCustomersSQL = `SELECT id, name, lifetime_spend FROM customers ORDER BY id`

	upsertCustomerSQL = `INSERT INTO customers (id, name, lifetime_spend, tier)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, lifetime_spend = EXCLUDED.lifetime_spend,
		    tier = EXCLUDED.tier`

	pruneCustomersSQL = `DELETE FROM customers WHERE id != ALL($1)`
)

// GetCustomers returns all customers ordered by id. Tiers are recomputed
// from lifetime spend on load; the stored tier column is never trusted.
func (s *Store) GetCustomers(ctx context.Context) ([]membership.Customer, error) {
	rows, err := s.pool.Query(ctx, listCustomersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

// SaveCustomers replaces the persisted customer list with the given snapshot.
func (s *Store) SaveCustomers(ctx context.Context, customers []membership.Customer) error {
	ids := make([]string, len(customers))
	b := &pgx.Batch{}
	for i, c := range customers {
		ids[i] = c.CustomerID
		b.Queue(upsertCustomerSQL, c.CustomerID, c.Name, c.LifetimeSpend, string(c.Tier))
	}
	if err := s.snapshot(ctx, pruneCustomersSQL, ids, b); err != nil {
		return fmt.Errorf("saving customers: %w", err)
	}
	return nil
}

func scanCustomer(row pgx.CollectableRow) (membership.Customer, error) {
	var (
		c     membership.Customer
		spend decimal.Decimal
	)
	if err := row.Scan(&c.CustomerID, &c.Name, &spend); err != nil {
		return c, err
	}
	c.LifetimeSpend = spend
	c.Tier = membership.ComputeTier(spend)
	return c, nil
}
