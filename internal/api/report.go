package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/minimart/internal/domain/report"
)

// SalesReport returns revenue and top sellers, optionally bounded by the
// start and end query parameters (RFC3339, inclusive).
func (h *Handler) SalesReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var start, end *time.Time
	if s := q.Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "start must be an RFC3339 timestamp")
			return
		}
		start = &t
	}
	if s := q.Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "end must be an RFC3339 timestamp")
			return
		}
		end = &t
	}

	summary, err := h.reports.SalesSummary(r.Context(), start, end)
	if err != nil {
		internalError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("revenue")
	e.Float64(summary.Revenue.InexactFloat64())
	e.FieldStart("top_sellers")
	e.ArrStart()
	for _, s := range summary.Top {
		e.ObjStart()
		e.FieldStart("sku")
		e.Str(s.SKU)
		e.FieldStart("units")
		e.Int(s.Units)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	respond(w, http.StatusOK, &e)
}

// LowStockReport returns SKUs at or below the threshold query parameter,
// which defaults to the standard alert level.
func (h *Handler) LowStockReport(w http.ResponseWriter, r *http.Request) {
	threshold := report.DefaultLowStockThreshold
	if s := r.URL.Query().Get("threshold"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "threshold must be an integer")
			return
		}
		threshold = n
	}

	levels, err := h.reports.LowStock(r.Context(), threshold)
	if err != nil {
		internalError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for _, lvl := range levels {
		e.ObjStart()
		e.FieldStart("sku")
		e.Str(lvl.SKU)
		e.FieldStart("qty")
		e.Int(lvl.Qty)
		e.ObjEnd()
	}
	e.ArrEnd()
	respond(w, http.StatusOK, &e)
}
