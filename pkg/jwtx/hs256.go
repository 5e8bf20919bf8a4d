package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret we accept (256 bits).
const MinSecretLength = 32

var ErrWeakSecret = fmt.Errorf("jwtx: signing secret must be at least %d bytes", MinSecretLength)

// HS256Signer signs tokens with a shared process-wide secret.
type HS256Signer struct {
	secret []byte
	issuer string
}

// NewHS256Signer copies secret into a new signer. Callers build claims with
// NewClaims using Issuer().
func NewHS256Signer(secret []byte, issuer string) (*HS256Signer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &HS256Signer{secret: append([]byte(nil), secret...), issuer: issuer}, nil
}

func (s *HS256Signer) Issuer() string { return s.issuer }

// Sign serializes claims into a compact JWT.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	if claims.Purpose == "" {
		return "", errors.New("jwtx: claims without purpose")
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// HS256Verifier checks tokens signed by HS256Signer with the same secret.
type HS256Verifier struct {
	secret []byte
	issuer string
	leeway time.Duration

	// Now is the clock used for exp/nbf. Defaults to time.Now.
	Now func() time.Time
}

func NewHS256Verifier(secret []byte, issuer string) *HS256Verifier {
	return &HS256Verifier{
		secret: append([]byte(nil), secret...),
		issuer: issuer,
		leeway: 5 * time.Second,
		Now:    time.Now,
	}
}

// Verify checks algorithm, signature, issuer and validity window. Every
// failure collapses to ErrInvalidToken.
func (v *HS256Verifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	if err := ValidateIssuer(&claims.RegisteredClaims, v.issuer); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if err := ValidateTimes(&claims.RegisteredClaims, v.Now().UTC(), v.leeway); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Purpose == "" {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

// VerifyPurpose is Verify plus a purpose check, so a refresh or reset token
// can never be replayed as an access token.
func (v *HS256Verifier) VerifyPurpose(tokenStr string, want Purpose) (Claims, error) {
	claims, err := v.Verify(tokenStr)
	if err != nil {
		return Claims{}, err
	}
	if claims.Purpose != want {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// PurposeVerifier pins an HS256Verifier to one purpose so it satisfies
// Verifier for middleware.
type PurposeVerifier struct {
	*HS256Verifier
	Purpose Purpose
}

func (p PurposeVerifier) Verify(tokenStr string) (Claims, error) {
	return p.HS256Verifier.VerifyPurpose(tokenStr, p.Purpose)
}
