package api

import (
	"fmt"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/minimart/internal/domain/membership"
)

func encodeCustomer(e *jx.Encoder, c membership.Customer) {
	e.ObjStart()
	e.FieldStart("customer_id")
	e.Str(c.CustomerID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("lifetime_spend")
	e.Float64(c.LifetimeSpend.InexactFloat64())
	e.FieldStart("tier")
	e.Str(string(c.Tier))
	e.ObjEnd()
}

type registerRequest struct {
	CustomerID string
	Name       string
}

func decodeRegisterRequest(data []byte) (registerRequest, error) {
	var req registerRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customer_id":
			req.CustomerID, err = d.Str()
		case "name":
			req.Name, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// ListCustomers returns every registered customer. Tiers are recomputed from
// lifetime spend by the store on load, so stale stored tiers never surface.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.GetCustomers(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for _, c := range customers {
		encodeCustomer(&e, c)
	}
	e.ArrEnd()
	respond(w, http.StatusOK, &e)
}

// RegisterCustomer adds a customer with zero spend at the REGULAR tier.
func (h *Handler) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := decodeRegisterRequest(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "customer_id and name are required")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	customers, err := h.store.GetCustomers(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	if _, found := membership.FindCustomer(customers, req.CustomerID); found {
		respondError(w, http.StatusConflict, fmt.Sprintf("customer %s already exists", req.CustomerID))
		return
	}

	customer := membership.Customer{
		CustomerID:    req.CustomerID,
		Name:          req.Name,
		LifetimeSpend: decimal.Zero,
		Tier:          membership.TierRegular,
	}
	if err := h.store.SaveCustomers(r.Context(), append(customers, customer)); err != nil {
		internalError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeCustomer(&e, customer)
	respond(w, http.StatusCreated, &e)
}
