package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/minimart/internal/domain/catalog"
	"github.com/xenking/minimart/internal/domain/membership"
)

// flatOff subtracts a fixed amount, letting tests drive the price negative.
type flatOff struct {
	amount decimal.Decimal
}

func (r flatOff) Apply(sku string, product catalog.Product, qty int, price decimal.Decimal, ctx Context) decimal.Decimal {
	return price.Sub(r.amount)
}

func standardRules(t *testing.T) (rules [4]Rule) {
	t.Helper()
	category, err := NewCategoryRule(map[string]float64{"Dairy": 0.10})
	require.NoError(t, err)
	window, err := NewTimeWindowRule("17:00", "18:00", 0.05)
	require.NoError(t, err)
	tiers, err := NewMembershipRule(map[membership.Tier]float64{membership.TierVIP: 0.08})
	require.NoError(t, err)
	bulk, err := NewBulkRule(3, 0.05)
	require.NoError(t, err)
	return [4]Rule{category, window, tiers, bulk}
}

func TestPriceItem_CompoundsInRegistrationOrder(t *testing.T) {
	rules := standardRules(t)
	engine := New(rules[0], rules[1], rules[2], rules[3])

	ctx := at(17, 30, 0)
	ctx.Membership = membership.TierVIP

	// 10.00 -> 9.00 -> 8.55 -> 7.87 -> 7.48, rounding after every step.
	got := engine.PriceItem("MILK-1L", milk("10.00"), 3, d("10.00"), ctx)
	assert.True(t, d("7.48").Equal(got), "got %s", got)
}

func TestPriceItem_OrderChangesResult(t *testing.T) {
	rules := standardRules(t)
	reversed := New(rules[3], rules[2], rules[1], rules[0])

	ctx := at(17, 30, 0)
	ctx.Membership = membership.TierVIP

	// 10.00 -> 9.50 -> 8.74 -> 8.30 -> 7.47: same rules, different fold.
	got := reversed.PriceItem("MILK-1L", milk("10.00"), 3, d("10.00"), ctx)
	assert.True(t, d("7.47").Equal(got), "got %s", got)
}

func TestPriceItem_NoRulesReturnsBaseRounded(t *testing.T) {
	engine := New()

	got := engine.PriceItem("MILK-1L", milk("10.00"), 1, d("10.00"), Context{})
	assert.True(t, d("10.00").Equal(got), "got %s", got)

	got = engine.PriceItem("MILK-1L", milk("9.999"), 1, d("9.999"), Context{})
	assert.True(t, d("10.00").Equal(got), "got %s", got)
}

func TestPriceItem_ClampsNegativeToZero(t *testing.T) {
	engine := New(flatOff{amount: d("15.00")})

	got := engine.PriceItem("MILK-1L", milk("10.00"), 1, d("10.00"), Context{})
	assert.True(t, decimal.Zero.Equal(got), "got %s", got)
}

func TestPriceItem_ClampHoldsForLaterRules(t *testing.T) {
	tiers, err := NewMembershipRule(map[membership.Tier]float64{membership.TierVIP: 0.08})
	require.NoError(t, err)
	engine := New(flatOff{amount: d("15.00")}, tiers)

	got := engine.PriceItem("MILK-1L", milk("10.00"), 1, d("10.00"), Context{Membership: membership.TierVIP})
	assert.True(t, decimal.Zero.Equal(got), "got %s", got)
}

func TestPriceItem_RoundsBetweenRules(t *testing.T) {
	category, err := NewCategoryRule(map[string]float64{"Dairy": 0.5})
	require.NoError(t, err)
	bulk, err := NewBulkRule(1, 0.5)
	require.NoError(t, err)
	engine := New(category, bulk)

	// 1.05 -> 0.525 rounds to 0.53 -> 0.265 rounds to 0.27; a single final
	// rounding over 1.05*0.25 would give 0.26 instead.
	got := engine.PriceItem("MILK-1L", milk("1.05"), 1, d("1.05"), Context{})
	assert.True(t, d("0.27").Equal(got), "got %s", got)
}
