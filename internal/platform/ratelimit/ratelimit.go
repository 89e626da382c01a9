// Package ratelimit provides fixed-window request limiting, shared between
// HTTP middleware and the pre-authentication gate.
package ratelimit

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medeez/gate/internal/metrics"
)

// Policy defines a fixed-window rate limit: Limit requests per Window per
// derived key.
type Policy struct {
	// Name is a short identifier for the limited endpoint, used for
	// logging/metrics (e.g. "hooks:pre-auth").
	Name   string
	Window time.Duration
	Limit  int
	// Key builds the bucket key for this request.
	Key func(echo.Context) string
}

// Store abstracts a shared counter store for fixed-window limiting.
type Store interface {
	// Allow increments the counter for the key in the given window and
	// returns whether the request is allowed. When blocked, retryAfterSec
	// indicates seconds until the window resets.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfterSec int, err error)
}

// MemoryStore is a process-local Store for development and tests. Multi
// instance deployments should use the Redis store.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	start time.Time
	count int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucket)}
}

func (s *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok || now.Sub(b.start) >= window {
		s.buckets[key] = &bucket{start: now, count: 1}
		return true, 0, nil
	}
	if b.count < limit {
		b.count++
		return true, 0, nil
	}
	retryAfter := int((window - now.Sub(b.start)) / time.Second)
	return false, retryAfter, nil
}

// Middleware enforces the Policy against the Store. Store errors fail open:
// an unreachable counter must not take authentication down with it.
func Middleware(p Policy, s Store) echo.MiddlewareFunc {
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	if p.Limit <= 0 {
		p.Limit = 60
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "global"
			if p.Key != nil {
				key = p.Key(c)
			}
			allowed, retryAfter, err := s.Allow(c.Request().Context(), key, p.Limit, p.Window)
			if err != nil || allowed {
				return next(c)
			}
			src := "ip"
			if strings.Contains(key, ":email:") {
				src = "email"
			}
			metrics.IncRateLimitExceeded(p.Name, src)
			if retryAfter > 0 {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
			}
			return c.JSON(429, map[string]string{"error": "rate limit exceeded"})
		}
	}
}

// KeyByIP buckets requests per client IP under the given prefix.
func KeyByIP(prefix string) func(echo.Context) string {
	return func(c echo.Context) string {
		return prefix + ":ip:" + c.RealIP()
	}
}

// EmailKey buckets login attempts per normalized email address.
func EmailKey(prefix, email string) string {
	return prefix + ":email:" + strings.ToLower(strings.TrimSpace(email))
}
