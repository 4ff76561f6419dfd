package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const rateLimitMessage = "Rate limit exceeded. Please try again later."

// Limiter is a request rate limiting middleware
type Limiter interface {
	Middleware(next http.Handler) http.Handler
}

// RateLimiter is an in-memory, per-client token bucket limiter.
// Each client may burst up to requests and refills at requests per window.
type RateLimiter struct {
	clients  map[string]*clientLimit
	done     chan struct{}
	requests int
	window   time.Duration
	mu       sync.Mutex
	stopOnce sync.Once
}

type clientLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
// requests: maximum number of requests allowed per window
// window: time window duration (e.g., 1 minute)
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests < 1 {
		requests = 1
	}

	rl := &RateLimiter{
		clients:  make(map[string]*clientLimit),
		done:     make(chan struct{}),
		requests: requests,
		window:   window,
	}

	// Cleanup idle clients every window duration
	go rl.cleanup()

	return rl
}

// Middleware returns a rate limiting middleware
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(getClientIP(r)) {
			writeRateLimited(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, exists := rl.clients[clientID]
	if !exists {
		every := rl.window / time.Duration(rl.requests)
		client = &clientLimit{limiter: rate.NewLimiter(rate.Every(every), rl.requests)}
		rl.clients[clientID] = client
	}
	client.lastSeen = time.Now()
	return client.limiter.Allow()
}

// cleanup drops clients idle for longer than a window; their buckets are full again by then
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-rl.window)
			for clientID, client := range rl.clients {
				if client.lastSeen.Before(cutoff) {
					delete(rl.clients, clientID)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// RedisRateLimiter is a fixed-window limiter shared between instances through Redis.
// Redis errors fail open.
type RedisRateLimiter struct {
	client   redis.Cmdable
	logger   *slog.Logger
	now      func() time.Time
	prefix   string
	requests int
	window   time.Duration
}

// NewRedisRateLimiter creates a limiter counting requests in Redis
func NewRedisRateLimiter(client redis.Cmdable, requests int, window time.Duration, logger *slog.Logger) *RedisRateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRateLimiter{
		client:   client,
		logger:   logger,
		now:      time.Now,
		prefix:   "murmur:ratelimit",
		requests: requests,
		window:   window,
	}
}

// Middleware returns a rate limiting middleware
func (rl *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := rl.allow(r.Context(), getClientIP(r))
		if err != nil {
			rl.logger.Warn("rate limiter unavailable, allowing request", "error", err)
		} else if !allowed {
			writeRateLimited(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RedisRateLimiter) allow(ctx context.Context, clientID string) (bool, error) {
	windowStart := rl.now().UnixNano() / int64(rl.window)
	key := fmt.Sprintf("%s:%s:%d", rl.prefix, clientID, windowStart)

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	if count == 1 {
		if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate counter expiry: %w", err)
		}
	}
	return count <= int64(rl.requests), nil
}

func writeRateLimited(w http.ResponseWriter) {
	writeAuthError(w, http.StatusTooManyRequests, rateLimitMessage)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (if behind proxy); the first hop is the client
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	// Check X-Real-IP header
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	// Fall back to RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
