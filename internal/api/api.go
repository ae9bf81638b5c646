// Package api implements the HTTP endpoints of the store server: catalog and
// inventory management, customer registration, checkout, promotions, and the
// back-office reports. Handlers speak plain JSON over net/http; responses are
// encoded with jx.
package api

import (
	"io"
	"net/http"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/minimart/internal/domain/checkout"
	"github.com/xenking/minimart/internal/domain/report"
	"github.com/xenking/minimart/internal/store"
)

// maxBodyBytes caps the size of accepted request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the store API. Mutating endpoints share one mutex so every
// read-modify-write against the store (add product, adjust stock, register,
// checkout with its spend update) runs as a unit; the checkout orchestrator
// keeps its own lock underneath for callers that bypass the API.
type Handler struct {
	store        store.Store
	orchestrator *checkout.Orchestrator
	reports      *report.Service

	mu sync.Mutex

	tracer  trace.Tracer
	orders  metric.Int64Counter
	revenue metric.Float64Counter
}

// NewHandler creates the API handler and registers its telemetry.
func NewHandler(st store.Store, orch *checkout.Orchestrator, reports *report.Service, tp trace.TracerProvider, mp metric.MeterProvider) (*Handler, error) {
	meter := mp.Meter("minimart.api")

	orders, err := meter.Int64Counter("checkout.orders",
		metric.WithDescription("Committed checkouts."),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders counter")
	}
	revenue, err := meter.Float64Counter("checkout.revenue",
		metric.WithDescription("Revenue across committed checkouts."),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create revenue counter")
	}

	return &Handler{
		store:        st,
		orchestrator: orch,
		reports:      reports,
		tracer:       tp.Tracer("minimart.api"),
		orders:       orders,
		revenue:      revenue,
	}, nil
}

// Register mounts every endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("POST /api/products", h.AddProduct)
	mux.HandleFunc("GET /api/inventory", h.ListInventory)
	mux.HandleFunc("POST /api/inventory/adjust", h.AdjustInventory)
	mux.HandleFunc("GET /api/customers", h.ListCustomers)
	mux.HandleFunc("POST /api/customers", h.RegisterCustomer)
	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("GET /api/promotions", h.GetPromotions)
	mux.HandleFunc("PUT /api/promotions", h.UpdatePromotions)
	mux.HandleFunc("GET /api/reports/sales", h.SalesReport)
	mux.HandleFunc("GET /api/reports/low-stock", h.LowStockReport)
}

// readBody drains the request body, refusing anything over maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return io.ReadAll(r.Body)
}

// respond writes the encoder's buffer as a JSON response.
func respond(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// respondError writes the standard error body: {"code": N, "message": "..."}.
func respondError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()
	respond(w, status, &e)
}

// internalError logs err and responds 500 without leaking its message.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}
