package api

import (
	"fmt"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/minimart/internal/domain/catalog"
)

func encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("sku")
	e.Str(p.SKU)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("price")
	e.Float64(p.Price.InexactFloat64())
	e.FieldStart("active")
	e.Bool(p.Active)
	e.ObjEnd()
}

func decodeProduct(data []byte) (catalog.Product, error) {
	p := catalog.Product{Active: true}
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "sku":
			p.SKU, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "price":
			var f float64
			if f, err = d.Float64(); err == nil {
				p.Price = decimal.NewFromFloat(f).Round(2)
			}
		case "active":
			p.Active, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

// ListProducts returns the catalog in stored order.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.GetProducts(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for _, p := range products {
		encodeProduct(&e, p)
	}
	e.ArrEnd()
	respond(w, http.StatusOK, &e)
}

// AddProduct registers a new catalog entry. SKU, name, and category are
// required; price defaults to 0.00 and active to true. Re-using an existing
// SKU is a conflict rather than an update.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := decodeProduct(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.SKU == "" || p.Name == "" || p.Category == "" {
		respondError(w, http.StatusBadRequest, "sku, name, and category are required")
		return
	}
	if p.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	products, err := h.store.GetProducts(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	for _, existing := range products {
		if existing.SKU == p.SKU {
			respondError(w, http.StatusConflict, fmt.Sprintf("sku %s already exists", p.SKU))
			return
		}
	}

	if err := h.store.SaveProducts(r.Context(), append(products, p)); err != nil {
		internalError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeProduct(&e, p)
	respond(w, http.StatusCreated, &e)
}
