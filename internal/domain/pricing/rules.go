package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/minimart/internal/domain/catalog"
	"github.com/xenking/minimart/internal/domain/membership"
)

// MalformedConfigError indicates an unusable rate, threshold, or time value
// supplied to a rule constructor or a promotion update.
type MalformedConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *MalformedConfigError) Error() string {
	return fmt.Sprintf("malformed promotion config: %s %q: %s", e.Field, e.Value, e.Reason)
}

// Context carries the per-checkout inputs a rule may consult: the customer's
// membership tier and the evaluation time. A zero Now means wall-clock time;
// tests pin it for deterministic time-window behaviour. An empty Membership
// is treated as REGULAR.
type Context struct {
	Membership membership.Tier
	Now        time.Time
}

func (c Context) clock() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

func (c Context) tier() membership.Tier {
	if c.Membership == "" {
		return membership.TierRegular
	}
	return c.Membership
}

// Rule is a single discount step. Apply receives the unit price produced by
// the previous rule and returns the new unit price; a rule that does not
// match returns the price unchanged. Rules are stateless beyond their
// configured parameters.
type Rule interface {
	Apply(sku string, product catalog.Product, qty int, price decimal.Decimal, ctx Context) decimal.Decimal
}

var one = decimal.NewFromInt(1)

// factorFor converts a discount rate like 0.10 into the multiplier 0.90.
func factorFor(rate float64) decimal.Decimal {
	return one.Sub(decimal.NewFromFloat(rate))
}

// checkRate rejects rates that cannot express a percentage discount.
func checkRate(field string, rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 || rate > 1 {
		return &MalformedConfigError{
			Field:  field,
			Value:  fmt.Sprintf("%v", rate),
			Reason: "rate must be within [0, 1]",
		}
	}
	return nil
}

// discounted applies a precomputed multiplier and rounds to cents, the unit
// every rule reports prices in.
func discounted(price, factor decimal.Decimal) decimal.Decimal {
	return price.Mul(factor).Round(2)
}

// CategoryRule discounts every product in a configured category, e.g.
// {"Dairy": 0.10} for 10% off dairy. Products in other categories pass
// through untouched.
type CategoryRule struct {
	factors map[string]decimal.Decimal
}

// NewCategoryRule validates the per-category rates and returns the rule.
func NewCategoryRule(rates map[string]float64) (*CategoryRule, error) {
	factors := make(map[string]decimal.Decimal, len(rates))
	for category, rate := range rates {
		if err := checkRate("category_discounts."+category, rate); err != nil {
			return nil, err
		}
		factors[category] = factorFor(rate)
	}
	return &CategoryRule{factors: factors}, nil
}

func (r *CategoryRule) Apply(sku string, product catalog.Product, qty int, price decimal.Decimal, ctx Context) decimal.Decimal {
	factor, ok := r.factors[product.Category]
	if !ok {
		return price
	}
	return discounted(price, factor)
}

// TimeWindowRule discounts during a daily time window ("happy hour"). The
// window is a closed interval on the time of day: both bounds are included,
// and start must not be after end (windows do not wrap past midnight).
type TimeWindowRule struct {
	startSec int
	endSec   int
	factor   decimal.Decimal
}

// NewTimeWindowRule parses "HH:MM" bounds and validates the rate.
func NewTimeWindowRule(start, end string, rate float64) (*TimeWindowRule, error) {
	startSec, err := parseClock("happy_hour.start", start)
	if err != nil {
		return nil, err
	}
	endSec, err := parseClock("happy_hour.end", end)
	if err != nil {
		return nil, err
	}
	if startSec > endSec {
		return nil, &MalformedConfigError{
			Field:  "happy_hour",
			Value:  start + "-" + end,
			Reason: "start must not be after end",
		}
	}
	if err := checkRate("happy_hour.rate", rate); err != nil {
		return nil, err
	}
	return &TimeWindowRule{startSec: startSec, endSec: endSec, factor: factorFor(rate)}, nil
}

func (r *TimeWindowRule) Apply(sku string, product catalog.Product, qty int, price decimal.Decimal, ctx Context) decimal.Decimal {
	now := ctx.clock()
	sec := now.Hour()*3600 + now.Minute()*60 + now.Second()
	if sec < r.startSec || sec > r.endSec {
		return price
	}
	return discounted(price, r.factor)
}

// parseClock converts "HH:MM" to seconds since midnight.
func parseClock(field, value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, &MalformedConfigError{
			Field:  field,
			Value:  value,
			Reason: "want HH:MM (24h)",
		}
	}
	return t.Hour()*3600 + t.Minute()*60, nil
}

// MembershipRule discounts by membership tier. Tiers missing from the table
// get no discount; an empty tier in the context is looked up as REGULAR.
type MembershipRule struct {
	factors map[membership.Tier]decimal.Decimal
}

// NewMembershipRule validates the per-tier rates and returns the rule.
func NewMembershipRule(rates map[membership.Tier]float64) (*MembershipRule, error) {
	factors := make(map[membership.Tier]decimal.Decimal, len(rates))
	for tier, rate := range rates {
		if err := checkRate("membership."+string(tier), rate); err != nil {
			return nil, err
		}
		factors[tier] = factorFor(rate)
	}
	return &MembershipRule{factors: factors}, nil
}

func (r *MembershipRule) Apply(sku string, product catalog.Product, qty int, price decimal.Decimal, ctx Context) decimal.Decimal {
	factor, ok := r.factors[ctx.tier()]
	if !ok {
		return price
	}
	return discounted(price, factor)
}

// BulkRule discounts the unit price once a line's quantity reaches a
// threshold, e.g. 5% off each unit when buying 3 or more.
type BulkRule struct {
	threshold int
	factor    decimal.Decimal
}

// NewBulkRule validates the threshold and rate and returns the rule.
func NewBulkRule(threshold int, rate float64) (*BulkRule, error) {
	if threshold < 1 {
		return nil, &MalformedConfigError{
			Field:  "bulk.threshold",
			Value:  fmt.Sprintf("%d", threshold),
			Reason: "threshold must be at least 1",
		}
	}
	if err := checkRate("bulk.rate", rate); err != nil {
		return nil, err
	}
	return &BulkRule{threshold: threshold, factor: factorFor(rate)}, nil
}

func (r *BulkRule) Apply(sku string, product catalog.Product, qty int, price decimal.Decimal, ctx Context) decimal.Decimal {
	if qty < r.threshold {
		return price
	}
	return discounted(price, r.factor)
}
