package membership

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTier_Boundaries(t *testing.T) {
	tests := []struct {
		spend string
		want  Tier
	}{
		{"0", TierRegular},
		{"99.99", TierRegular},
		{"100.00", TierSilver},
		{"499.99", TierSilver},
		{"500.00", TierGold},
		{"999.99", TierGold},
		{"1000.00", TierVIP},
		{"25000", TierVIP},
	}

	for _, tt := range tests {
		t.Run(tt.spend, func(t *testing.T) {
			got := ComputeTier(decimal.RequireFromString(tt.spend))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindCustomer(t *testing.T) {
	customers := []Customer{
		{CustomerID: "C-001", Name: "Alice"},
		{CustomerID: "C-002", Name: "Bob"},
		{CustomerID: "C-002", Name: "Bob (duplicate)"},
	}

	found, ok := FindCustomer(customers, "C-002")
	assert.True(t, ok)
	// First match wins on duplicate ids.
	assert.Equal(t, "Bob", found.Name)

	// The pointer aliases the slice so spend updates stick.
	found.LifetimeSpend = decimal.NewFromInt(42)
	assert.True(t, decimal.NewFromInt(42).Equal(customers[1].LifetimeSpend))

	_, ok = FindCustomer(customers, "C-404")
	assert.False(t, ok)

	_, ok = FindCustomer(nil, "C-001")
	assert.False(t, ok)
}
