package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/minimart/internal/domain/catalog"
)

// Engine folds a cart line's base unit price through an ordered list of
// discount rules. Later rules compound on the output of earlier ones, so
// registration order is part of the pricing contract. An Engine is immutable
// after construction and safe for concurrent use.
type Engine struct {
	rules []Rule
}

// New builds an engine over the given rules, applied in argument order.
func New(rules ...Rule) *Engine {
	e := &Engine{rules: make([]Rule, len(rules))}
	copy(e.rules, rules)
	return e
}

// PriceItem computes the effective unit price for one cart line, starting
// from basePrice (normally the product's list price). Each rule's output is
// rounded to cents and clamped at zero before the next rule runs; the final
// price is rounded to cents again. With no rules the base price is returned
// rounded to cents.
func (e *Engine) PriceItem(sku string, product catalog.Product, qty int, basePrice decimal.Decimal, ctx Context) decimal.Decimal {
	price := basePrice
	for _, rule := range e.rules {
		price = rule.Apply(sku, product, qty, price, ctx).Round(2)
		if price.IsNegative() {
			price = decimal.Zero
		}
	}
	return price.Round(2)
}
