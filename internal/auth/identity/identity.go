// Package identity verifies assertions issued by external identity
// providers and turns them into domain.ExternalIdentity values.
package identity

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/congregation/internal/auth/domain"
)

//go:generate mockgen -source=identity.go -destination=mock/verifier.go -package=mock

var (
	// ErrInvalidAssertion covers bad signatures, issuers, audiences, expiry
	// and anything unparseable.
	ErrInvalidAssertion = errors.New("identity: invalid assertion")

	// ErrMissingEmail means the assertion verified but carries no email.
	ErrMissingEmail = errors.New("identity: assertion has no email")

	// ErrProviderUnavailable is transient: the provider's keys could not be
	// fetched. Callers may retry later.
	ErrProviderUnavailable = errors.New("identity: provider unavailable")
)

// Verifier checks a provider assertion (for Google, an ID token).
type Verifier interface {
	Verify(ctx context.Context, assertion string) (domain.ExternalIdentity, error)
}
