// Package health provides Kubernetes-style liveness and readiness probes.
//
// Registered checks run on background goroutines at a fixed interval and are
// debounced: a check flips to unhealthy only after three consecutive
// failures and back to healthy after one success, so a single blip does not
// bounce traffic routing.
package health

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// Debounce thresholds applied to every check.
const (
	failureThreshold = 3
	successThreshold = 1
)

// CheckFunc probes one component, returning nil when it is healthy.
type CheckFunc func(ctx context.Context) error

// probe is one registered check with its runtime state. run is only ever
// called from a single goroutine; healthy and lastErr are additionally read
// by the HTTP endpoints, hence the atomics. The counters stay local to run.
type probe struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails  int
	passes int
}

func newProbe(name string, timeout time.Duration, fn CheckFunc) *probe {
	p := &probe{name: name, timeout: timeout, fn: fn}
	p.healthy.Store(true) // healthy until proven otherwise
	return p
}

// run executes the probe once and applies the debounce thresholds.
func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.fn(ctx)
	p.lastErr.Store(&err)

	if err != nil {
		p.passes = 0
		p.fails++
		if p.fails >= failureThreshold {
			p.healthy.Store(false)
		}
		return
	}

	p.fails = 0
	p.passes++
	if p.passes >= successThreshold {
		p.healthy.Store(true)
	}
}

func (p *probe) isHealthy() bool {
	return p.healthy.Load()
}

func (p *probe) lastError() error {
	if e := p.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

// loop re-runs the probe at interval until ctx is cancelled.
func (p *probe) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

// Health tracks the service's liveness and readiness probes.
type Health struct {
	accepting atomic.Bool

	mu     sync.RWMutex
	live   []*probe
	ready  []*probe
	cancel context.CancelFunc
}

// New creates a Health starting in the not-ready state; call SetReady(true)
// once initialization is done.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a probe served on /livez: is the process itself
// still functional. Goroutine count and GC pause are typical candidates.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.live = append(h.live, newProbe(name, timeout, fn))
}

// AddReadinessCheck registers a probe served on /readyz: may traffic be
// routed here. Database connectivity is the usual candidate.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = append(h.ready, newProbe(name, timeout, fn))
}

// Start launches one goroutine per registered probe, each re-running its
// check at interval until the context is cancelled or Stop is called.
// Register all probes before starting.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := append(slices.Clone(h.live), h.ready...)
	h.mu.Unlock()

	for _, p := range probes {
		go p.loop(ctx, interval)
	}
}

// SetReady flips the manual readiness gate: true once initialization is
// done, false while draining during shutdown.
func (h *Health) SetReady(ready bool) {
	h.accepting.Store(ready)
}

// IsReady reports whether the gate is open and every readiness probe passes.
func (h *Health) IsReady() bool {
	if !h.accepting.Load() {
		return false
	}

	h.mu.RLock()
	probes := h.ready
	h.mu.RUnlock()

	for _, p := range probes {
		if !p.isHealthy() {
			return false
		}
	}
	return true
}

// Stop cancels the probe goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// LiveEndpoint serves /livez: 200 {"status":"ok"} while every liveness
// probe passes, 503 listing the failing probes otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	probes := slices.Clone(h.live)
	h.mu.RUnlock()

	writeStatus(w, failures(probes))
}

// ReadyEndpoint serves /readyz: 200 only when the service is marked ready
// and every readiness probe passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	probes := slices.Clone(h.ready)
	h.mu.RUnlock()

	failed := failures(probes)
	if !h.accepting.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

// failures maps probe name to failure message for every unhealthy probe,
// using the error stored by the last run. Probes are never re-run on
// request.
func failures(probes []*probe) map[string]string {
	out := make(map[string]string)
	for _, p := range probes {
		if p.isHealthy() {
			continue
		}
		if err := p.lastError(); err != nil {
			out[p.name] = err.Error()
		} else {
			out[p.name] = "check is unhealthy"
		}
	}
	return out
}

// writeStatus renders {"status":"ok"}, or a 503 body with the per-check
// failure messages.
func writeStatus(w http.ResponseWriter, failed map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	if len(failed) == 0 {
		e.Str("ok")
		e.ObjEnd()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(e.Bytes())
		return
	}
	e.Str("unhealthy")
	e.FieldStart("checks")
	e.ObjStart()
	for _, name := range slices.Sorted(maps.Keys(failed)) {
		e.FieldStart(name)
		e.Str(failed[name])
	}
	e.ObjEnd()
	e.ObjEnd()
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write(e.Bytes())
}
