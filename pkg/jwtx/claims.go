package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose says what a token may be used for. A token is only accepted by
// the flow matching its purpose.
type Purpose string

const (
	PurposeAccess  Purpose = "ACCESS"
	PurposeRefresh Purpose = "REFRESH"
	PurposeReset   Purpose = "RESET"
)

// Default token lifetimes. Access tokens must stay much shorter than refresh
// tokens, and reset links should go stale within the hour.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultResetTokenTTL   = 1 * time.Hour
)

// Claims is the claim set carried by every token this service issues.
type Claims struct {
	jwt.RegisteredClaims

	Role    string  `json:"role,omitempty"`
	Email   string  `json:"email,omitempty"`
	Purpose Purpose `json:"purpose"`
}

// NewClaims builds claims for subject valid from now until now+ttl.
func NewClaims(
	subject, role, email string,
	purpose Purpose,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	now = now.UTC()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Role:    role,
		Email:   email,
		Purpose: purpose,
	}
}

// NewJTI returns a random token id.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks iss against the accepted values. No accepted values
// means nothing to enforce.
func ValidateIssuer(rc *jwt.RegisteredClaims, accepted ...string) error {
	if len(accepted) == 0 {
		return nil
	}
	if slices.Contains(accepted, rc.Issuer) {
		return nil
	}
	return ErrIssuer
}

// ValidateAudience checks that at least one expected audience is present.
func ValidateAudience(rc *jwt.RegisteredClaims, expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(rc.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateTimes checks exp and nbf at now, allowing leeway for clock skew.
// A missing exp is treated as expired.
func ValidateTimes(rc *jwt.RegisteredClaims, now time.Time, leeway time.Duration) error {
	if rc.ExpiresAt == nil || now.After(rc.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if rc.NotBefore != nil && now.Before(rc.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}

// IssuedBefore reports whether the token was issued strictly before t.
// Tokens without iat are treated as issued at the epoch.
func (c *Claims) IssuedBefore(t time.Time) bool {
	if c.IssuedAt == nil {
		return true
	}
	return c.IssuedAt.Time.Before(t.Truncate(time.Second))
}
