package handlers

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type rateLimiter interface {
	Allow(key string) bool
}

// clientLimiter gives every client address its own token bucket holding limit tokens that
// refill evenly over window.
type clientLimiter struct {
	every  rate.Limit
	burst  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	clients map[string]*clientBucket
}

type clientBucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &clientLimiter{
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		window:  window,
		clock:   clock,
		clients: make(map[string]*clientBucket),
	}
}

func (l *clientLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()
	bucket, ok := l.clients[key]
	if !ok {
		l.evictIdleLocked(now)
		bucket = &clientBucket{tokens: rate.NewLimiter(l.every, l.burst)}
		l.clients[key] = bucket
	}
	bucket.lastSeen = now
	return bucket.tokens.AllowN(now, 1)
}

// evictIdleLocked drops buckets idle for a full window; they would be full again anyway.
func (l *clientLimiter) evictIdleLocked(now time.Time) {
	for key, bucket := range l.clients {
		if now.Sub(bucket.lastSeen) >= l.window {
			delete(l.clients, key)
		}
	}
}

// clientKey identifies the caller by remote address. RealIP middleware runs first.
func clientKey(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
