package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-key token bucket limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per Window. It doubles as the
	// burst size, so an idle client may spend its whole allowance at once.
	Max int
	// Window is the period over which Max requests are replenished.
	Window time.Duration
	// KeyFunc extracts the rate limit key from a request.
	// If nil, the client IP address is used.
	KeyFunc func(*http.Request) string
}

// client is one key's bucket plus the last time it was seen, for eviction.
type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// rateLimiter hands out a token bucket per key.
type rateLimiter struct {
	cfg     RateLimitConfig
	rps     rate.Limit
	mu      sync.Mutex
	clients map[string]*client
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	rps := rate.Inf
	if cfg.Max > 0 && cfg.Window > 0 {
		rps = rate.Limit(float64(cfg.Max) / cfg.Window.Seconds())
	}
	return &rateLimiter{
		cfg:     cfg,
		rps:     rps,
		clients: make(map[string]*client),
	}
}

// take tries to consume one token for key and reports the tokens left after
// the attempt. A denied request does not consume.
func (rl *rateLimiter) take(key string, now time.Time) (allowed bool, tokens float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[key]
	if !ok {
		c = &client{bucket: rate.NewLimiter(rl.rps, rl.cfg.Max)}
		rl.clients[key] = c
	}
	c.lastSeen = now

	allowed = c.bucket.AllowN(now, 1)
	return allowed, c.bucket.TokensAt(now)
}

// resetTime is when the key's bucket will be full again.
func (rl *rateLimiter) resetTime(now time.Time, tokens float64) time.Time {
	missing := float64(rl.cfg.Max) - tokens
	if missing <= 0 || rl.rps <= 0 {
		return now
	}
	return now.Add(time.Duration(missing / float64(rl.rps) * float64(time.Second)))
}

// retryAfter is the whole seconds until one token becomes available.
func (rl *rateLimiter) retryAfter(tokens float64) int {
	deficit := 1 - tokens
	if deficit <= 0 || rl.rps <= 0 {
		return 0
	}
	return int(math.Ceil(deficit / float64(rl.rps)))
}

// evict drops clients idle for at least two windows.
func (rl *rateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, c := range rl.clients {
		if now.Sub(c.lastSeen) >= 2*rl.cfg.Window {
			delete(rl.clients, key)
		}
	}
}

func (rl *rateLimiter) startEviction(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(2 * rl.cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.evict(now)
			}
		}
	}()
}

// RateLimit returns a middleware that enforces a per-key request rate. When
// the limit is exceeded it responds with 429 Too Many Requests and a JSON
// body. Every response carries X-RateLimit-Limit, X-RateLimit-Remaining, and
// X-RateLimit-Reset headers.
//
// This variant never evicts idle keys. Use RateLimitWithCleanup for automatic
// eviction.
func RateLimit(cfg RateLimitConfig) Middleware {
	return rateLimitMiddleware(newRateLimiter(cfg))
}

// RateLimitWithCleanup is like RateLimit but additionally starts a goroutine
// that evicts keys idle for two windows. The goroutine stops when ctx is
// cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	rl.startEviction(ctx)
	return rateLimitMiddleware(rl)
}

func rateLimitMiddleware(rl *rateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			allowed, tokens := rl.take(rl.cfg.KeyFunc(r), now)

			remaining := int(tokens)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rl.resetTime(now, tokens).Unix(), 10))

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter(tokens)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				var e jx.Encoder
				e.ObjStart()
				e.FieldStart("code")
				e.Int(http.StatusTooManyRequests)
				e.FieldStart("message")
				e.Str("rate limit exceeded")
				e.ObjEnd()
				_, _ = w.Write(e.Bytes())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the caller's IP, preferring X-Forwarded-For, then
// X-Real-IP, then RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// A proxy chain is comma-separated; the client is first.
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
