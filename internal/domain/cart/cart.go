package cart

import (
	"fmt"
)

// InvalidQuantityError indicates an attempt to add a non-positive quantity.
type InvalidQuantityError struct {
	SKU string
	Qty int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for %s, got %d", e.SKU, e.Qty)
}

// Item is a single cart line: a SKU and how many units of it.
type Item struct {
	SKU string
	Qty int
}

// Cart is the ordered set of lines collected during a session. Lines are kept
// in insertion order and duplicate SKUs stay separate lines: adding "A" twice
// produces two entries that are priced and summed independently at checkout.
type Cart struct {
	items []Item
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add appends a line to the cart. The quantity must be positive; the SKU is
// not checked against the catalog here, existence and stock are validated at
// checkout.
func (c *Cart) Add(sku string, qty int) error {
	if qty <= 0 {
		return &InvalidQuantityError{SKU: sku, Qty: qty}
	}
	c.items = append(c.items, Item{SKU: sku, Qty: qty})
	return nil
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len reports the number of lines (not units) in the cart.
func (c *Cart) Len() int {
	return len(c.items)
}

// Clear empties the cart. Called by the checkout orchestrator after a
// successful commit; a failed checkout leaves the cart untouched.
func (c *Cart) Clear() {
	c.items = c.items[:0]
}
