package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/congregation/internal/auth/domain"
	"github.com/aussiebroadwan/congregation/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultGoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
	googleLeeway         = 30 * time.Second
)

// GoogleIssuers are the iss values Google uses for ID tokens.
var GoogleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

type GoogleConfig struct {
	// ClientIDs are the accepted audiences, one per app (web, android).
	ClientIDs []string
	JWKSURL   string
	Timeout   time.Duration
}

// GoogleVerifier validates Google ID tokens against Google's published
// signing keys.
type GoogleVerifier struct {
	clientIDs []string
	keys      *jwtx.RemoteKeySet
	rs        *jwtx.RS256Verifier
}

var _ Verifier = (*GoogleVerifier)(nil)

func NewGoogleVerifier(cfg GoogleConfig) *GoogleVerifier {
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = DefaultGoogleJWKSURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	keys := jwtx.NewRemoteKeySet(cfg.JWKSURL, cfg.Timeout)
	return &GoogleVerifier{
		clientIDs: cfg.ClientIDs,
		keys:      keys,
		rs:        jwtx.NewRS256Verifier(keys, googleLeeway),
	}
}

// Enabled reports whether any client id is configured.
func (g *GoogleVerifier) Enabled() bool {
	return len(g.clientIDs) > 0
}

// SetClock overrides the clock used for token times and key caching.
func (g *GoogleVerifier) SetClock(now func() time.Time) {
	g.rs.Now = now
	g.keys.Now = now
}

type googleClaims struct {
	jwt.RegisteredClaims

	Email         string          `json:"email"`
	EmailVerified json.RawMessage `json:"email_verified"`
	Name          string          `json:"name"`
	Picture       string          `json:"picture"`
}

// emailVerified accepts both the boolean and the legacy string form.
func (c *googleClaims) emailVerified() bool {
	switch string(c.EmailVerified) {
	case "true", `"true"`:
		return true
	}
	return false
}

func (g *GoogleVerifier) Verify(ctx context.Context, assertion string) (domain.ExternalIdentity, error) {
	if !g.Enabled() {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: google sign-in is not configured", ErrInvalidAssertion)
	}

	var claims googleClaims
	if err := g.rs.ParseInto(ctx, assertion, &claims); err != nil {
		if errors.Is(err, jwtx.ErrFetchKeys) {
			return domain.ExternalIdentity{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
		return domain.ExternalIdentity{}, fmt.Errorf("%w: %w", ErrInvalidAssertion, err)
	}

	if err := jwtx.ValidateIssuer(&claims.RegisteredClaims, GoogleIssuers...); err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: %w", ErrInvalidAssertion, err)
	}
	if err := jwtx.ValidateAudience(&claims.RegisteredClaims, g.clientIDs); err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: %w", ErrInvalidAssertion, err)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.After(g.rs.Now().Add(googleLeeway)) {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: issued in the future", ErrInvalidAssertion)
	}
	if claims.Subject == "" {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: missing subject", ErrInvalidAssertion)
	}
	if claims.Email == "" {
		return domain.ExternalIdentity{}, ErrMissingEmail
	}

	return domain.ExternalIdentity{
		Provider:      domain.ProviderGoogle,
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.emailVerified(),
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}

// Ready reports whether Google's keys have been loaded at least once.
func (g *GoogleVerifier) Ready() bool {
	return g.keys.Ready()
}
