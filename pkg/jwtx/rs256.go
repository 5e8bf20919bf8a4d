package jwtx

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KeyLookup resolves an RSA verification key by kid.
type KeyLookup interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// RS256Verifier checks signatures of third-party RS256 tokens. Claim
// policy (issuer, audience) is left to the caller because every provider
// has its own.
type RS256Verifier struct {
	keys   KeyLookup
	leeway time.Duration

	// Now is the clock used for exp/nbf. Defaults to time.Now.
	Now func() time.Time
}

func NewRS256Verifier(keys KeyLookup, leeway time.Duration) *RS256Verifier {
	return &RS256Verifier{keys: keys, leeway: leeway, Now: time.Now}
}

// ParseInto verifies tokenStr and decodes it into claims, which must embed
// jwt.RegisteredClaims. exp is required and checked with the leeway.
func (v *RS256Verifier) ParseInto(ctx context.Context, tokenStr string, claims jwt.Claims) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	_, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid", ErrMalformed)
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		if errors.Is(err, ErrFetchKeys) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return ErrMalformed
	}
	nbf, err := claims.GetNotBefore()
	if err != nil {
		return ErrMalformed
	}
	return ValidateTimes(&jwt.RegisteredClaims{ExpiresAt: exp, NotBefore: nbf}, v.Now().UTC(), v.leeway)
}
