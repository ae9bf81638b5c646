package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/minimart/internal/domain/pricing"
	"github.com/xenking/minimart/internal/store"
)

const (
	getPromotionsSQL = `SELECT config FROM promotions WHERE id = 1`

	upsertPromotionsSQL = `INSERT INTO promotions (id, config)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET config = EXCLUDED.config`
)

// GetPromotions returns the stored promotion config, degrading to defaults
// when no row exists or the stored document is unusable.
func (s *Store) GetPromotions(ctx context.Context) (pricing.PromotionConfig, error) {
	var config []byte
	err := s.pool.QueryRow(ctx, getPromotionsSQL).Scan(&config)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.DefaultPromotions(), nil
		}
		return pricing.PromotionConfig{}, fmt.Errorf("getting promotions: %w", err)
	}
	return store.DecodePromotions(config), nil
}

// SavePromotions replaces the stored promotion config.
func (s *Store) SavePromotions(ctx context.Context, cfg pricing.PromotionConfig) error {
	config, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling promotions: %w", err)
	}
	if _, err := s.pool.Exec(ctx, upsertPromotionsSQL, config); err != nil {
		return fmt.Errorf("saving promotions: %w", err)
	}
	return nil
}
