// Package jsonstore persists the POS collections as one pretty-printed JSON
// file per collection under a data directory. It is the default backend: a
// single-store deployment fits comfortably in five small files, and the files
// stay hand-inspectable.
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/xenking/minimart/internal/domain/catalog"
	"github.com/xenking/minimart/internal/domain/membership"
	"github.com/xenking/minimart/internal/domain/pricing"
	"github.com/xenking/minimart/internal/store"
)

const (
	productsFile   = "products.json"
	inventoryFile  = "inventory.json"
	ordersFile     = "orders.json"
	customersFile  = "customers.json"
	promotionsFile = "promotions.json"
)

var _ store.Store = (*Store)(nil)

// Store reads and writes the JSON files under dir. Reads degrade to empty
// collections when a file is missing, unreadable, or unparsable; writes are
// atomic via a temp file and rename.
type Store struct {
	dir string
}

// New creates the data directory if needed and returns the store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Ping reports whether the data directory is still reachable.
func (s *Store) Ping(_ context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("stat data dir: %w", err)
	}
	return nil
}

// load unmarshals the named file into v. It reports false when the file is
// missing, unreadable, or not valid JSON for v; the caller falls back to an
// empty collection.
func (s *Store) load(name string, v any) bool {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// save writes v as indented JSON to a temp file in the data dir, then renames
// it over the named file.
func (s *Store) save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

type productRecord struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Active   bool    `json:"active"`
}

// GetProducts loads the catalog. Missing or corrupt data yields an empty list.
func (s *Store) GetProducts(_ context.Context) ([]catalog.Product, error) {
	var records []productRecord
	if !s.load(productsFile, &records) {
		return []catalog.Product{}, nil
	}
	products := make([]catalog.Product, len(records))
	for i, r := range records {
		products[i] = catalog.Product{
			SKU:      r.SKU,
			Name:     r.Name,
			Category: r.Category,
			Price:    decimal.NewFromFloat(r.Price),
			Active:   r.Active,
		}
	}
	return products, nil
}

// SaveProducts replaces the persisted catalog.
func (s *Store) SaveProducts(_ context.Context, products []catalog.Product) error {
	records := make([]productRecord, len(products))
	for i, p := range products {
		records[i] = productRecord{
			SKU:      p.SKU,
			Name:     p.Name,
			Category: p.Category,
			Price:    p.Price.InexactFloat64(),
			Active:   p.Active,
		}
	}
	return s.save(productsFile, records)
}

// GetInventory loads the stock ledger. Missing or corrupt data yields an
// empty map.
func (s *Store) GetInventory(_ context.Context) (map[string]int, error) {
	var levels map[string]int
	if !s.load(inventoryFile, &levels) || levels == nil {
		return map[string]int{}, nil
	}
	return levels, nil
}

// SaveInventory replaces the persisted stock ledger.
func (s *Store) SaveInventory(_ context.Context, levels map[string]int) error {
	return s.save(inventoryFile, levels)
}

// GetOrders loads the order history. Missing or corrupt data yields an empty
// list.
func (s *Store) GetOrders(_ context.Context) ([]store.OrderRecord, error) {
	var orders []store.OrderRecord
	if !s.load(ordersFile, &orders) || orders == nil {
		return []store.OrderRecord{}, nil
	}
	return orders, nil
}

// SaveOrders replaces the persisted order history.
func (s *Store) SaveOrders(_ context.Context, orders []store.OrderRecord) error {
	return s.save(ordersFile, orders)
}

type customerRecord struct {
	CustomerID    string  `json:"customer_id"`
	Name          string  `json:"name"`
	LifetimeSpend float64 `json:"lifetime_spend"`
	Tier          string  `json:"tier"`
}

// GetCustomers loads the customer list. Tiers are recomputed from lifetime
// spend on load; the stored tier field is never trusted. Missing or corrupt
// data yields an empty list.
func (s *Store) GetCustomers(_ context.Context) ([]membership.Customer, error) {
	var records []customerRecord
	if !s.load(customersFile, &records) {
		return []membership.Customer{}, nil
	}
	customers := make([]membership.Customer, len(records))
	for i, r := range records {
		spend := decimal.NewFromFloat(r.LifetimeSpend)
		customers[i] = membership.Customer{
			CustomerID:    r.CustomerID,
			Name:          r.Name,
			LifetimeSpend: spend,
			Tier:          membership.ComputeTier(spend),
		}
	}
	return customers, nil
}

// SaveCustomers replaces the persisted customer list.
func (s *Store) SaveCustomers(_ context.Context, customers []membership.Customer) error {
	records := make([]customerRecord, len(customers))
	for i, c := range customers {
		records[i] = customerRecord{
			CustomerID:    c.CustomerID,
			Name:          c.Name,
			LifetimeSpend: c.LifetimeSpend.InexactFloat64(),
			Tier:          string(c.Tier),
		}
	}
	return s.save(customersFile, records)
}

// GetPromotions loads the promotion config. Missing blocks fall back to
// their defaults and unusable blocks are reset, so the result always builds
// a valid engine.
func (s *Store) GetPromotions(_ context.Context) (pricing.PromotionConfig, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, promotionsFile))
	if err != nil {
		return pricing.DefaultPromotions(), nil
	}
	return store.DecodePromotions(data), nil
}

// SavePromotions replaces the persisted promotion config.
func (s *Store) SavePromotions(_ context.Context, cfg pricing.PromotionConfig) error {
	return s.save(promotionsFile, cfg)
}
