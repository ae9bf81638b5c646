package api

import (
	"maps"
	"net/http"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/minimart/internal/domain/pricing"
)

func encodePromotions(e *jx.Encoder, cfg pricing.PromotionConfig) {
	e.ObjStart()
	e.FieldStart("category_discounts")
	e.ObjStart()
	for _, category := range slices.Sorted(maps.Keys(cfg.CategoryDiscounts)) {
		e.FieldStart(category)
		e.Float64(cfg.CategoryDiscounts[category])
	}
	e.ObjEnd()
	e.FieldStart("happy_hour")
	e.ObjStart()
	e.FieldStart("start")
	e.Str(cfg.HappyHour.Start)
	e.FieldStart("end")
	e.Str(cfg.HappyHour.End)
	e.FieldStart("rate")
	e.Float64(cfg.HappyHour.Rate)
	e.ObjEnd()
	e.FieldStart("bulk")
	e.ObjStart()
	e.FieldStart("threshold")
	e.Int(cfg.Bulk.Threshold)
	e.FieldStart("rate")
	e.Float64(cfg.Bulk.Rate)
	e.ObjEnd()
	e.ObjEnd()
}

// decodePromotions reads a promotion config, treating absent blocks as their
// defaults so a partial update keeps the rest of the pipeline intact.
func decodePromotions(data []byte) (pricing.PromotionConfig, error) {
	cfg := pricing.DefaultPromotions()
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "category_discounts":
			m := make(map[string]float64)
			if err := d.Obj(func(d *jx.Decoder, category string) error {
				rate, err := d.Float64()
				if err != nil {
					return err
				}
				m[category] = rate
				return nil
			}); err != nil {
				return err
			}
			cfg.CategoryDiscounts = m
			return nil
		case "happy_hour":
			return d.Obj(func(d *jx.Decoder, field string) error {
				var err error
				switch field {
				case "start":
					cfg.HappyHour.Start, err = d.Str()
				case "end":
					cfg.HappyHour.End, err = d.Str()
				case "rate":
					cfg.HappyHour.Rate, err = d.Float64()
				default:
					err = d.Skip()
				}
				return err
			})
		case "bulk":
			return d.Obj(func(d *jx.Decoder, field string) error {
				var err error
				switch field {
				case "threshold":
					cfg.Bulk.Threshold, err = d.Int()
				case "rate":
					cfg.Bulk.Rate, err = d.Float64()
				default:
					err = d.Skip()
				}
				return err
			})
		default:
			return d.Skip()
		}
	})
	return cfg, err
}

// GetPromotions returns the active promotion configuration.
func (h *Handler) GetPromotions(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.GetPromotions(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	var e jx.Encoder
	encodePromotions(&e, cfg)
	respond(w, http.StatusOK, &e)
}

// UpdatePromotions replaces the promotion configuration. The config must
// build into a valid rule pipeline; unlike store loads, a bad value here is
// the caller's mistake and is rejected rather than silently repaired. On
// success the new engine is swapped in for subsequent checkouts.
func (h *Handler) UpdatePromotions(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg, err := decodePromotions(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	engine, err := pricing.Build(cfg)
	if err != nil {
		var cfgErr *pricing.MalformedConfigError
		if errors.As(err, &cfgErr) {
			respondError(w, http.StatusUnprocessableEntity, cfgErr.Error())
			return
		}
		internalError(w, r, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.store.SavePromotions(r.Context(), cfg); err != nil {
		internalError(w, r, err)
		return
	}
	h.orchestrator.SetEngine(engine)

	var e jx.Encoder
	encodePromotions(&e, cfg)
	respond(w, http.StatusOK, &e)
}
