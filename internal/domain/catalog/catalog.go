package catalog

import (
	"github.com/shopspring/decimal"
)

// Product is a catalog entry sold by the store. Products are loaded as an
// immutable snapshot for the duration of a checkout; the store collaborator
// owns them between calls.
type Product struct {
	SKU      string
	Name     string
	Category string
	Price    decimal.Decimal
	Active   bool
}

// Map indexes products by SKU for checkout-time lookups.
type Map map[string]Product

// NewMap builds a SKU index from a product list. Later duplicates win, which
// matches the persisted list being keyed by SKU in practice.
func NewMap(products []Product) Map {
	m := make(Map, len(products))
	for _, p := range products {
		m[p.SKU] = p
	}
	return m
}
