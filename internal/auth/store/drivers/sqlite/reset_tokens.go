package sqlite

import (
	"context"
	"time"
)

type resetTokensRepo struct {
	db dbtx
}

func (r *resetTokensRepo) Consume(ctx context.Context, jti, accountID string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO consumed_reset_tokens (jti, account_id, expires_at, consumed_at)
		VALUES (?, ?, ?, ?)`,
		jti, accountID, expiresAt.UTC(), time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *resetTokensRepo) Release(ctx context.Context, jti string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM consumed_reset_tokens WHERE jti = ?`, jti)
	return err
}

func (r *resetTokensRepo) DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM consumed_reset_tokens WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
