package authsdk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshSkew refreshes the access token this long before it expires.
const refreshSkew = 30 * time.Second

// Session is a signed-in account. Methods refresh the access token when it
// is about to expire. Safe for concurrent use.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	user         *Account
}

func (c *SDKClient) newSession(resp AuthResponse) *Session {
	s := &Session{client: c}
	if resp.User.ID != "" {
		u := resp.User
		s.user = &u
	}
	s.setTokens(resp.Token, resp.RefreshToken)
	return s
}

// setTokens must be called with mu held for writing, or before the session
// is shared.
func (s *Session) setTokens(access, refresh string) {
	s.accessToken = access
	s.refreshToken = refresh
	s.expiresAt = tokenExpiry(access).Add(-refreshSkew)
}

// tokenExpiry reads exp without verifying the signature; the server checks
// that. An unreadable token counts as already expired.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	pair, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	s.setTokens(pair.Token, pair.RefreshToken)
	return s.accessToken, nil
}

// Refresh forces a token refresh.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	_, err := s.getValidToken(ctx)
	return err
}

// AccessToken returns the current access token without checking expiry.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// User returns the account as last seen by this session, or nil before the
// first call that returns it.
func (s *Session) User() *Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) setUser(a Account) {
	s.mu.Lock()
	s.user = &a
	s.mu.Unlock()
}

// authCall sends an authenticated request and decodes the envelope data.
func authCall[T any](ctx context.Context, s *Session, method, path string, body any, out *T) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}
	return call(ctx, s.client, method, path, token, body, out)
}
