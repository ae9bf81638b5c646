package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/xenking/minimart/internal/domain/cart"
	"github.com/xenking/minimart/internal/domain/checkout"
	"github.com/xenking/minimart/internal/domain/membership"
)

type checkoutItem struct {
	SKU string
	Qty int
}

type checkoutRequest struct {
	CustomerID   string
	CustomerName string
	Items        []checkoutItem
}

func decodeCheckoutRequest(data []byte) (checkoutRequest, error) {
	var req checkoutRequest
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "customer_id":
			var err error
			req.CustomerID, err = d.Str()
			return err
		case "customer_name":
			var err error
			req.CustomerName, err = d.Str()
			return err
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				var it checkoutItem
				if err := d.Obj(func(d *jx.Decoder, field string) error {
					var err error
					switch field {
					case "sku":
						it.SKU, err = d.Str()
					case "qty":
						it.Qty, err = d.Int()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				req.Items = append(req.Items, it)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	return req, err
}

func encodeReceipt(e *jx.Encoder, order *checkout.Order, customerID string, previous, current membership.Tier) {
	e.ObjStart()
	e.FieldStart("order_id")
	e.Str(order.ID)
	e.FieldStart("created_at")
	e.Str(order.CreatedAt.Format(time.RFC3339Nano))
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range order.Items {
		e.ObjStart()
		e.FieldStart("sku")
		e.Str(it.SKU)
		e.FieldStart("qty")
		e.Int(it.Qty)
		e.FieldStart("unit_price")
		e.Float64(it.UnitPrice.InexactFloat64())
		e.FieldStart("subtotal")
		e.Float64(it.Subtotal.InexactFloat64())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	e.Float64(order.Total.InexactFloat64())
	e.FieldStart("customer_id")
	e.Str(customerID)
	e.FieldStart("previous_tier")
	e.Str(string(previous))
	e.FieldStart("new_tier")
	e.Str(string(current))
	e.ObjEnd()
}

// Checkout runs a full checkout for one customer: the request lines become a
// cart, the customer's tier feeds the pricing context, and on success the
// order total is added to their lifetime spend, which may promote them. An
// unregistered customer_id is accepted only when customer_name is provided,
// registering them on the spot.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()
	r = r.WithContext(ctx)

	body, err := readBody(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := decodeCheckoutRequest(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID == "" {
		respondError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	basket := cart.New()
	for _, it := range req.Items {
		if err := basket.Add(it.SKU, it.Qty); err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	customers, err := h.store.GetCustomers(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	customer, found := membership.FindCustomer(customers, req.CustomerID)
	if !found {
		if req.CustomerName == "" {
			respondError(w, http.StatusUnprocessableEntity,
				fmt.Sprintf("customer %s not registered; provide customer_name to register at checkout", req.CustomerID))
			return
		}
		customers = append(customers, membership.Customer{
			CustomerID:    req.CustomerID,
			Name:          req.CustomerName,
			LifetimeSpend: decimal.Zero,
			Tier:          membership.TierRegular,
		})
		customer = &customers[len(customers)-1]
	}
	previousTier := customer.Tier

	order, err := h.orchestrator.Checkout(r.Context(), basket, customer.Tier)
	if err != nil {
		span.RecordError(err)
		h.checkoutError(w, r, err)
		return
	}

	customer.LifetimeSpend = customer.LifetimeSpend.Add(order.Total).Round(2)
	customer.Tier = membership.ComputeTier(customer.LifetimeSpend)
	if err := h.store.SaveCustomers(r.Context(), customers); err != nil {
		internalError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.Float64("order.total", order.Total.InexactFloat64()),
		attribute.Int("order.lines", len(order.Items)),
	)
	h.orders.Add(r.Context(), 1)
	h.revenue.Add(r.Context(), order.Total.InexactFloat64())

	var e jx.Encoder
	encodeReceipt(&e, order, req.CustomerID, previousTier, customer.Tier)
	respond(w, http.StatusOK, &e)
}

// checkoutError maps orchestrator failures to status codes: domain rejections
// are 422, anything else is a server fault.
func (h *Handler) checkoutError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		skuErr   *checkout.SkuNotFoundError
		stockErr *checkout.InsufficientStockError
	)
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &skuErr), errors.As(err, &stockErr):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		internalError(w, r, err)
	}
}
