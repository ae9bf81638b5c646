package httpmiddleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// hit sends one request through the handler from the given remote address.
func hit(handler http.Handler, remoteAddr string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func limited(max int) http.Handler {
	return RateLimit(RateLimitConfig{Max: max, Window: time.Minute})(okHandler())
}

func TestRateLimit_AllowsBurstUpToMax(t *testing.T) {
	handler := limited(5)

	for i := range 5 {
		w := hit(handler, "192.168.1.1:12345", nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_RejectsPastMax(t *testing.T) {
	handler := limited(2)

	hit(handler, "10.0.0.1:9999", nil)
	hit(handler, "10.0.0.1:9999", nil)
	w := hit(handler, "10.0.0.1:9999", nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(http.StatusTooManyRequests), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_BucketsAreIndependentPerIP(t *testing.T) {
	handler := limited(1)

	assert.Equal(t, http.StatusOK, hit(handler, "10.0.0.1:1234", nil).Code)
	assert.Equal(t, http.StatusOK, hit(handler, "10.0.0.2:1234", nil).Code)
	// Only the host part keys the bucket, not the port.
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "10.0.0.1:5678", nil).Code)
}

func TestRateLimit_HeadersCountDown(t *testing.T) {
	handler := limited(10)

	w := hit(handler, "192.168.1.1:4444", nil)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	w = hit(handler, "192.168.1.1:4444", nil)
	assert.Equal(t, "8", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	cfg := RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-Terminal-ID")
		},
	}
	handler := RateLimit(cfg)(okHandler())

	lane1 := http.Header{"X-Terminal-Id": {"lane-1"}}
	lane2 := http.Header{"X-Terminal-Id": {"lane-2"}}

	assert.Equal(t, http.StatusOK, hit(handler, "10.0.0.1:1", lane1).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "10.0.0.2:2", lane1).Code)
	assert.Equal(t, http.StatusOK, hit(handler, "10.0.0.1:3", lane2).Code)
}

func TestRateLimitWithCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := RateLimitWithCleanup(ctx, RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, hit(handler, "10.0.0.9:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "10.0.0.9:2", nil).Code)
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{Max: 3, Window: time.Minute})
	now := time.Now()

	rl.take("lane-1", now)
	rl.take("lane-2", now.Add(90*time.Second))

	rl.evict(now.Add(2 * time.Minute))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "lane-1", "idle for two full windows")
	assert.Contains(t, rl.clients, "lane-2", "seen within the last two windows")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		header     http.Header
		want       string
	}{
		{"remote addr only", "192.0.2.7:4711", nil, "192.0.2.7"},
		{"unparsable remote addr", "not-an-addr", nil, "not-an-addr"},
		{
			"x-real-ip wins over remote addr", "192.0.2.7:4711",
			http.Header{"X-Real-Ip": {"198.51.100.4"}},
			"198.51.100.4",
		},
		{
			"x-forwarded-for wins over both", "192.0.2.7:4711",
			http.Header{
				"X-Forwarded-For": {"203.0.113.50, 70.41.3.18"},
				"X-Real-Ip":       {"198.51.100.4"},
			},
			"203.0.113.50",
		},
		{
			"single hop x-forwarded-for is trimmed", "192.0.2.7:4711",
			http.Header{"X-Forwarded-For": {" 203.0.113.50 "}},
			"203.0.113.50",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, vs := range tt.header {
				for _, v := range vs {
					req.Header.Add(k, v)
				}
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
