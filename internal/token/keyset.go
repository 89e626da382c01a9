package token

import (
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/medeez/gate/internal/metrics"
)

// KeySource resolves a verification key by key ID. Implementations must be
// safe for concurrent use.
type KeySource interface {
	Key(ctx context.Context, kid string) (crypto.PublicKey, error)
}

// ErrKeyNotFound is returned when the key set has no key for the given kid.
var ErrKeyNotFound = errors.New("token: signing key not found")

// ErrFetchThrottled is returned when the remote key source would be hit more
// often than the configured rate allows.
var ErrFetchThrottled = errors.New("token: key set fetch throttled")

// RemoteKeySetOptions bound the cache and the remote fetch behavior.
type RemoteKeySetOptions struct {
	// URL of the JWKS document. Required unless resolved via DiscoverJWKSURL.
	URL string
	// TTL per cached key entry. Defaults to 10 minutes.
	TTL time.Duration
	// MaxEntries caps the number of cached keys. Defaults to 5.
	MaxEntries int
	// FetchPerMinute caps remote fetches to tolerate rotation storms without
	// amplifying them. Defaults to 10.
	FetchPerMinute int
	// HTTPClient used for fetches. Defaults to a client with a 5s timeout.
	HTTPClient *http.Client
}

// RemoteKeySet is a bounded, time-expiring cache over a remote JWKS endpoint.
// It is constructed once at process start and injected into the verifier so
// tests can substitute a fake KeySource.
type RemoteKeySet struct {
	url     string
	ttl     time.Duration
	max     int
	limiter *rate.Limiter
	client  *http.Client

	mu      sync.RWMutex
	entries map[string]keyEntry

	group singleflight.Group
}

type keyEntry struct {
	key       crypto.PublicKey
	fetchedAt time.Time
}

func NewRemoteKeySet(opts RemoteKeySetOptions) *RemoteKeySet {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 5
	}
	if opts.FetchPerMinute <= 0 {
		opts.FetchPerMinute = 10
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &RemoteKeySet{
		url:     opts.URL,
		ttl:     opts.TTL,
		max:     opts.MaxEntries,
		limiter: rate.NewLimiter(rate.Limit(float64(opts.FetchPerMinute)/60.0), opts.FetchPerMinute),
		client:  client,
		entries: map[string]keyEntry{},
	}
}

// DiscoverJWKSURL resolves the jwks_uri for an issuer via OIDC discovery.
func DiscoverJWKSURL(ctx context.Context, issuer string) (string, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return "", fmt.Errorf("oidc discovery failed: %w", err)
	}
	var meta struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return "", fmt.Errorf("invalid discovery metadata: %w", err)
	}
	if meta.JWKSURI == "" {
		return "", errors.New("token: discovery document has no jwks_uri")
	}
	return meta.JWKSURI, nil
}

// Key returns the public key for kid, refreshing from the remote endpoint on
// miss. Concurrent misses for the same kid are coalesced into one fetch.
func (s *RemoteKeySet) Key(ctx context.Context, kid string) (crypto.PublicKey, error) {
	s.mu.RLock()
	e, ok := s.entries[kid]
	s.mu.RUnlock()
	if ok && time.Since(e.fetchedAt) < s.ttl {
		metrics.IncJWKSFetch("hit")
		return e.key, nil
	}

	v, err, _ := s.group.Do(kid, func() (any, error) {
		// Re-check under the flight: another caller may have refreshed.
		s.mu.RLock()
		e, ok := s.entries[kid]
		s.mu.RUnlock()
		if ok && time.Since(e.fetchedAt) < s.ttl {
			return e.key, nil
		}
		if !s.limiter.Allow() {
			metrics.IncJWKSFetch("throttled")
			return nil, ErrFetchThrottled
		}
		metrics.IncJWKSFetch("miss")
		key, err := s.fetch(ctx, kid)
		if err != nil {
			metrics.IncJWKSFetch("error")
			return nil, err
		}
		s.store(kid, key)
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(crypto.PublicKey), nil
}

func (s *RemoteKeySet) fetch(ctx context.Context, kid string) (crypto.PublicKey, error) {
	if s.url == "" {
		return nil, errors.New("token: key set URL not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token: key set fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token: key set fetch returned %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("token: invalid key set document: %w", err)
	}
	for _, k := range set.Keys {
		if k.KeyID == kid && k.IsPublic() && k.Valid() {
			return k.Key, nil
		}
	}
	return nil, ErrKeyNotFound
}

func (s *RemoteKeySet) store(kid string, key crypto.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) >= s.max {
		s.evictOldestLocked()
	}
	s.entries[kid] = keyEntry{key: key, fetchedAt: time.Now()}
}

func (s *RemoteKeySet) evictOldestLocked() {
	var oldest string
	var oldestAt time.Time
	for kid, e := range s.entries {
		if oldest == "" || e.fetchedAt.Before(oldestAt) {
			oldest = kid
			oldestAt = e.fetchedAt
		}
	}
	if oldest != "" {
		delete(s.entries, oldest)
	}
}
