package jwtx

import (
	"errors"
)

// Verifier validates a token and hands back its claims when it is legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// ErrInvalidToken is the only error our own verifier returns. Expired,
// tampered, wrong purpose and malformed all look the same to callers.
var ErrInvalidToken = errors.New("jwtx: invalid or expired token")

// Detailed causes, used internally and by verifiers of third-party tokens.
var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
	ErrFetchKeys   = errors.New("jwtx: fetch signing keys")
)
