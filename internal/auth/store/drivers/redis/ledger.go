// Package redis keeps the password reset ledger in Redis so several service
// instances share one view of consumed tokens.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/congregation/internal/auth/store"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "congregation:reset:"

type Ledger struct {
	client goredis.UniversalClient

	// Now is the clock used to derive key TTLs. Defaults to time.Now.
	Now func() time.Time
}

var _ store.ResetLedger = (*Ledger)(nil)

func NewLedger(client goredis.UniversalClient) *Ledger {
	return &Ledger{client: client, Now: time.Now}
}

// Consume marks jti as used with SET NX. The key lives until the token
// would have expired anyway, so the keyspace cleans itself up.
func (l *Ledger) Consume(ctx context.Context, jti, accountID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(l.Now())
	if ttl < time.Second {
		ttl = time.Second
	}

	ok, err := l.client.SetNX(ctx, keyPrefix+jti, accountID, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis: consume reset token: %w", err)
	}
	if !ok {
		return store.ErrAlreadyExists
	}
	return nil
}

func (l *Ledger) Release(ctx context.Context, jti string) error {
	if err := l.client.Del(ctx, keyPrefix+jti).Err(); err != nil {
		return fmt.Errorf("redis: release reset token: %w", err)
	}
	return nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
