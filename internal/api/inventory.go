package api

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"

	"github.com/go-faster/jx"

	"github.com/xenking/minimart/internal/domain/catalog"
)

type adjustRequest struct {
	SKU   string
	Delta int
}

func decodeAdjustRequest(data []byte) (adjustRequest, error) {
	var req adjustRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "sku":
			req.SKU, err = d.Str()
		case "delta":
			req.Delta, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// ListInventory returns stock levels joined with product names, sorted by
// SKU. Products without an inventory entry show as zero.
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.GetProducts(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	levels, err := h.store.GetInventory(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	slices.SortFunc(products, func(a, b catalog.Product) int {
		return cmp.Compare(a.SKU, b.SKU)
	})

	var e jx.Encoder
	e.ArrStart()
	for _, p := range products {
		e.ObjStart()
		e.FieldStart("sku")
		e.Str(p.SKU)
		e.FieldStart("name")
		e.Str(p.Name)
		e.FieldStart("qty")
		e.Int(levels[p.SKU])
		e.ObjEnd()
	}
	e.ArrEnd()
	respond(w, http.StatusOK, &e)
}

// AdjustInventory applies a signed delta to one SKU's stock. The SKU must
// exist in the catalog and the result may not go below zero.
func (h *Handler) AdjustInventory(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := decodeAdjustRequest(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SKU == "" {
		respondError(w, http.StatusBadRequest, "sku is required")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	products, err := h.store.GetProducts(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	if _, ok := catalog.NewMap(products)[req.SKU]; !ok {
		respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("sku %s not found", req.SKU))
		return
	}

	levels, err := h.store.GetInventory(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	next := levels[req.SKU] + req.Delta
	if next < 0 {
		respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("stock for %s cannot go below zero", req.SKU))
		return
	}
	levels[req.SKU] = next

	if err := h.store.SaveInventory(r.Context(), levels); err != nil {
		internalError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("sku")
	e.Str(req.SKU)
	e.FieldStart("qty")
	e.Int(next)
	e.ObjEnd()
	respond(w, http.StatusOK, &e)
}
