package jwtx

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultKeyCacheTTL = time.Hour
	minRefreshInterval = time.Minute
	maxJWKSBodyBytes   = 1 << 20
)

// RemoteKeySet serves keys from a JWKS endpoint. Keys are cached until the
// response's Cache-Control max-age runs out. An unknown kid forces one
// refresh, at most once per minRefreshInterval, and concurrent refreshes
// share a single request.
type RemoteKeySet struct {
	url    string
	client *http.Client
	keys   *KeySet
	group  singleflight.Group

	mu          sync.RWMutex
	expiresAt   time.Time
	lastFetched time.Time

	// Now is the clock used for cache expiry. Defaults to time.Now.
	Now func() time.Time
}

// NewRemoteKeySet creates a key set for url. timeout bounds every fetch.
func NewRemoteKeySet(url string, timeout time.Duration) *RemoteKeySet {
	return &RemoteKeySet{
		url:    url,
		client: &http.Client{Timeout: timeout},
		keys:   NewKeySet(),
		Now:    time.Now,
	}
}

// Key returns the verification key for kid, fetching the JWKS when the cache
// is stale or the kid is unknown.
func (r *RemoteKeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if r.fresh() {
		if pk, err := r.keys.Get(kid); err == nil {
			return pk, nil
		}
		if !r.mayRefetch() {
			return nil, ErrUnknownKID
		}
	}

	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}

	pk, err := r.keys.Get(kid)
	if err != nil {
		return nil, ErrUnknownKID
	}
	return pk, nil
}

// Refresh fetches the JWKS now. Concurrent callers share one request.
func (r *RemoteKeySet) Refresh(ctx context.Context) error {
	ch := r.group.DoChan("jwks", func() (any, error) {
		// Detached so one caller giving up does not fail the others.
		fetchCtx := context.WithoutCancel(ctx)
		return nil, r.fetch(fetchCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrFetchKeys, ctx.Err())
	}
}

// Ready reports whether any keys are loaded.
func (r *RemoteKeySet) Ready() bool {
	return r.keys.Len() > 0
}

func (r *RemoteKeySet) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchKeys, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchKeys, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrFetchKeys, resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBodyBytes)).Decode(&jwks); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrFetchKeys, err)
	}
	if err := r.keys.ResetFromJWKS(jwks); err != nil {
		return fmt.Errorf("%w: %w", ErrFetchKeys, err)
	}

	now := r.Now()
	r.mu.Lock()
	r.lastFetched = now
	r.expiresAt = now.Add(maxAge(resp.Header.Get("Cache-Control")))
	r.mu.Unlock()

	return nil
}

func (r *RemoteKeySet) fresh() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Now().Before(r.expiresAt)
}

func (r *RemoteKeySet) mayRefetch() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Now().Sub(r.lastFetched) >= minRefreshInterval
}

// maxAge extracts max-age from a Cache-Control header value.
func maxAge(cacheControl string) time.Duration {
	for directive := range strings.SplitSeq(cacheControl, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		secs, err := strconv.Atoi(strings.Trim(value, `"`))
		if err != nil || secs <= 0 {
			break
		}
		return time.Duration(secs) * time.Second
	}
	return defaultKeyCacheTTL
}
