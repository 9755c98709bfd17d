package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/apimachinery/pkg/util/cache"
)

const (
	clientLimiterTTL     = 10 * time.Minute
	clientLimiterEntries = 4096
)

// rateLimiter decides whether a request from the given client may proceed.
type rateLimiter interface {
	Allow(client string) bool
}

// clientLimiter keeps one token bucket per client address. Idle buckets
// expire from the LRU so the table stays bounded.
type clientLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets *cache.LRUExpireCache
}

func newClientLimiter(ratePerSecond float64, burst int) *clientLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &clientLimiter{
		rps:     rate.Limit(ratePerSecond),
		burst:   burst,
		buckets: cache.NewLRUExpireCache(clientLimiterEntries),
	}
}

func (l *clientLimiter) Allow(client string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	var limiter *rate.Limiter
	if v, ok := l.buckets.Get(client); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(l.rps, l.burst)
	}
	// Re-adding refreshes the idle expiry.
	l.buckets.Add(client, limiter, clientLimiterTTL)
	l.mu.Unlock()

	return limiter.Allow()
}

func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter.Allow(clientKey(r)) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "Too many requests", "rate limit exceeded, please retry shortly")
	})
}

// clientKey prefers the first X-Forwarded-For hop and falls back to the
// connection's remote host.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
