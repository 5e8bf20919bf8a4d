package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/congregation/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Sub-repositories are exposed as
// methods so a transaction-scoped Store can hand out the same repos bound to
// the transaction, and nobody opens a transaction inside another one.
type Store interface {
	Accounts() Accounts
	ResetTokens() ResetTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. Inside fn only use tx; the outer Store may be
	// blocked on the same connection.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail matches the stored email exactly.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	GetAccountByExternalID(ctx context.Context, externalID string) (domain.Account, error)

	// CreateAccount inserts a new account. A taken email or external id
	// returns ErrAlreadyExists.
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdateCredentialDigest replaces the digest and records changedAt as
	// the moment credentials last changed.
	UpdateCredentialDigest(ctx context.Context, id, digest string, changedAt time.Time) error

	// RehashCredentialDigest swaps the digest for one with current
	// parameters. The credential itself is unchanged.
	RehashCredentialDigest(ctx context.Context, id, digest string) error

	// LinkExternalIdentity attaches externalID and replaces the avatar when
	// avatarURL is non-empty. An external id already owned by another account
	// returns ErrAlreadyExists.
	LinkExternalIdentity(ctx context.Context, id, externalID, avatarURL string, linkedAt time.Time) error

	// UpdateProfile writes display name, avatar, locale and settings.
	UpdateProfile(ctx context.Context, a domain.Account) error

	DeleteAccount(ctx context.Context, id string) error
}

// ResetLedger remembers password reset tokens that were already used.
type ResetLedger interface {
	// Consume records jti as used. A jti seen before returns
	// ErrAlreadyExists. Entries may be forgotten after expiresAt.
	Consume(ctx context.Context, jti, accountID string, expiresAt time.Time) error

	// Release forgets jti so the token can be used again. Only called when
	// the password update that followed Consume did not commit.
	Release(ctx context.Context, jti string) error
}

// ResetTokens is the relational ledger, which also needs housekeeping.
type ResetTokens interface {
	ResetLedger

	// DeleteExpiredResetTokens removes entries that expired before now.
	DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}
