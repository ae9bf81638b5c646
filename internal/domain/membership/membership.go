package membership

import (
	"github.com/shopspring/decimal"
)

// Tier is a customer's membership level. It is always derived from lifetime
// spend via ComputeTier: stored values are advisory and recomputed at load
// time and again after every checkout.
type Tier string

const (
	TierRegular Tier = "REGULAR"
	TierSilver  Tier = "SILVER"
	TierGold    Tier = "GOLD"
	TierVIP     Tier = "VIP"
)

// Customer is a registered store customer. LifetimeSpend accumulates the
// totals of committed orders.
type Customer struct {
	CustomerID    string
	Name          string
	LifetimeSpend decimal.Decimal
	Tier          Tier
}

// Spend thresholds for the tier ladder. Boundaries are inclusive on the way
// up: exactly 100 is SILVER, exactly 500 is GOLD, exactly 1000 is VIP.
var (
	silverFloor = decimal.NewFromInt(100)
	goldFloor   = decimal.NewFromInt(500)
	vipFloor    = decimal.NewFromInt(1000)
)

// ComputeTier maps lifetime spend to a membership tier.
func ComputeTier(lifetimeSpend decimal.Decimal) Tier {
	switch {
	case lifetimeSpend.GreaterThanOrEqual(vipFloor):
		return TierVIP
	case lifetimeSpend.GreaterThanOrEqual(goldFloor):
		return TierGold
	case lifetimeSpend.GreaterThanOrEqual(silverFloor):
		return TierSilver
	default:
		return TierRegular
	}
}

// FindCustomer scans customers for an exact id match and returns a pointer
// into the slice so the caller can update spend in place, plus whether a
// match was found.
func FindCustomer(customers []Customer, customerID string) (*Customer, bool) {
	for i := range customers {
		if customers[i].CustomerID == customerID {
			return &customers[i], true
		}
	}
	return nil, false
}
