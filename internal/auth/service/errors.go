package service

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

var (
	ErrValidation               = errors.New("validation failed")
	ErrAccountExists            = errors.New("account already exists")
	ErrNotFound                 = errors.New("account not found")
	ErrBadCredentials           = errors.New("invalid credentials")
	ErrExternalOnly             = errors.New("account signs in with an external provider")
	ErrInvalidOrExpiredToken    = errors.New("invalid or expired token")
	ErrLinkConfirmationRequired = errors.New("account link requires confirmation")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrForbidden                = errors.New("forbidden")
)

// DefaultStoreTimeout bounds a single store round trip.
const DefaultStoreTimeout = 5 * time.Second

func storeContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, d)
}

// internal wraps an unexpected failure with domain context. errors.Is still
// reaches the cause.
func internal(area, code string, err error, kv ...any) error {
	return oops.In(area).Code(code).With(kv...).Wrap(err)
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now().UTC()
}
