package pricing

import (
	"github.com/xenking/minimart/internal/domain/membership"
)

// Promotion defaults applied when a block is absent or unusable.
const (
	DefaultHappyHourStart = "17:00"
	DefaultHappyHourEnd   = "18:00"
	DefaultHappyHourRate  = 0.05
	DefaultBulkThreshold  = 3
	DefaultBulkRate       = 0.05
)

// tierRates is the built-in membership discount table. It is not part of the
// stored promotion config: tier discounts change with a release, not with a
// promotions edit.
var tierRates = map[membership.Tier]float64{
	membership.TierRegular: 0.00,
	membership.TierSilver:  0.02,
	membership.TierGold:    0.05,
	membership.TierVIP:     0.08,
}

// HappyHourConfig is the stored time-window promotion block.
type HappyHourConfig struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Rate  float64 `json:"rate"`
}

// BulkConfig is the stored quantity-threshold promotion block.
type BulkConfig struct {
	Threshold int     `json:"threshold"`
	Rate      float64 `json:"rate"`
}

// PromotionConfig is the tunable part of the pricing pipeline, persisted by
// the store and editable at runtime.
type PromotionConfig struct {
	CategoryDiscounts map[string]float64 `json:"category_discounts"`
	HappyHour         HappyHourConfig    `json:"happy_hour"`
	Bulk              BulkConfig         `json:"bulk"`
}

// DefaultPromotions returns the configuration used when no stored promotions
// exist: no category discounts, 5% happy hour from 17:00 to 18:00, and 5%
// off lines of 3 or more.
func DefaultPromotions() PromotionConfig {
	return PromotionConfig{
		CategoryDiscounts: map[string]float64{},
		HappyHour: HappyHourConfig{
			Start: DefaultHappyHourStart,
			End:   DefaultHappyHourEnd,
			Rate:  DefaultHappyHourRate,
		},
		Bulk: BulkConfig{
			Threshold: DefaultBulkThreshold,
			Rate:      DefaultBulkRate,
		},
	}
}

// Build assembles the standard engine from a promotion config. Rules are
// registered category first, then happy hour, then membership, then bulk;
// discounts compound in that order.
func Build(cfg PromotionConfig) (*Engine, error) {
	category, err := NewCategoryRule(cfg.CategoryDiscounts)
	if err != nil {
		return nil, err
	}
	window, err := NewTimeWindowRule(cfg.HappyHour.Start, cfg.HappyHour.End, cfg.HappyHour.Rate)
	if err != nil {
		return nil, err
	}
	tiers, err := NewMembershipRule(tierRates)
	if err != nil {
		return nil, err
	}
	bulk, err := NewBulkRule(cfg.Bulk.Threshold, cfg.Bulk.Rate)
	if err != nil {
		return nil, err
	}
	return New(category, window, tiers, bulk), nil
}

// SanitizePromotions repairs a stored config so Build cannot fail on it.
// Category entries with unusable rates are dropped; an unusable happy-hour
// or bulk block is reset to its default. Used when loading promotions from
// the store, where a bad value must degrade rather than stop the server.
func SanitizePromotions(cfg PromotionConfig) PromotionConfig {
	out := cfg

	out.CategoryDiscounts = make(map[string]float64, len(cfg.CategoryDiscounts))
	for category, rate := range cfg.CategoryDiscounts {
		if checkRate("", rate) == nil {
			out.CategoryDiscounts[category] = rate
		}
	}

	if _, err := NewTimeWindowRule(cfg.HappyHour.Start, cfg.HappyHour.End, cfg.HappyHour.Rate); err != nil {
		out.HappyHour = DefaultPromotions().HappyHour
	}
	if _, err := NewBulkRule(cfg.Bulk.Threshold, cfg.Bulk.Rate); err != nil {
		out.Bulk = DefaultPromotions().Bulk
	}
	return out
}
