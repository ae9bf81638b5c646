package store

import (
	"encoding/json"

	"github.com/xenking/minimart/internal/domain/pricing"
)

// DecodePromotions turns a persisted promotions document into a usable
// config. Blocks missing from the document keep their defaults, unusable
// blocks are reset to theirs, and an undecodable document yields the full
// defaults, so the result always builds a valid engine. Shared by every
// backend so they degrade identically.
func DecodePromotions(data []byte) pricing.PromotionConfig {
	var raw struct {
		CategoryDiscounts map[string]float64       `json:"category_discounts"`
		HappyHour         *pricing.HappyHourConfig `json:"happy_hour"`
		Bulk              *pricing.BulkConfig      `json:"bulk"`
	}
	cfg := pricing.DefaultPromotions()
	if err := json.Unmarshal(data, &raw); err != nil {
		return cfg
	}
	if raw.CategoryDiscounts != nil {
		cfg.CategoryDiscounts = raw.CategoryDiscounts
	}
	if raw.HappyHour != nil {
		cfg.HappyHour = *raw.HappyHour
	}
	if raw.Bulk != nil {
		cfg.Bulk = *raw.Bulk
	}
	return pricing.SanitizePromotions(cfg)
}
