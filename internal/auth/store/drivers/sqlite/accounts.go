package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/congregation/internal/auth/domain"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, email, credential_digest, external_identity_id, display_name, avatar_url,
	role, locale, settings, credentials_changed_at, linked_at, created_at, updated_at`

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
}

func (r *accountsRepo) GetAccountByExternalID(ctx context.Context, externalID string) (domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE external_identity_id = ?`, externalID)
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	settings, err := encodeSettings(a.Settings)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Email,
		mapStringNull(a.CredentialDigest),
		mapStringNull(a.ExternalIdentityID),
		a.DisplayName,
		a.AvatarURL,
		string(a.Role),
		a.Locale,
		settings,
		mapOptionalTime(a.CredentialsChangedAt),
		mapOptionalTime(a.LinkedAt),
		a.CreatedAt.UTC(),
		a.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *accountsRepo) UpdateCredentialDigest(ctx context.Context, id, digest string, changedAt time.Time) error {
	changedAt = changedAt.UTC()
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE accounts
		SET credential_digest = ?, credentials_changed_at = ?, updated_at = ?
		WHERE id = ?`,
		digest, changedAt, changedAt, id,
	))
}

func (r *accountsRepo) RehashCredentialDigest(ctx context.Context, id, digest string) error {
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE accounts SET credential_digest = ? WHERE id = ? AND credential_digest IS NOT NULL`,
		digest, id,
	))
}

func (r *accountsRepo) LinkExternalIdentity(ctx context.Context, id, externalID, avatarURL string, linkedAt time.Time) error {
	linkedAt = linkedAt.UTC()
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE accounts
		SET external_identity_id = ?,
		    avatar_url = CASE WHEN ? <> '' THEN ? ELSE avatar_url END,
		    linked_at = ?,
		    updated_at = ?
		WHERE id = ?`,
		externalID, avatarURL, avatarURL, linkedAt, linkedAt, id,
	))
}

func (r *accountsRepo) UpdateProfile(ctx context.Context, a domain.Account) error {
	settings, err := encodeSettings(a.Settings)
	if err != nil {
		return err
	}
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE accounts
		SET display_name = ?, avatar_url = ?, locale = ?, settings = ?, updated_at = ?
		WHERE id = ?`,
		a.DisplayName, a.AvatarURL, a.Locale, settings, a.UpdatedAt.UTC(), a.ID,
	))
}

func (r *accountsRepo) DeleteAccount(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id))
}

func (r *accountsRepo) getOne(ctx context.Context, query string, arg any) (domain.Account, error) {
	var (
		a          domain.Account
		digest     sql.NullString
		externalID sql.NullString
		role       string
		settings   string
		changedAt  sql.NullTime
		linkedAt   sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID,
		&a.Email,
		&digest,
		&externalID,
		&a.DisplayName,
		&a.AvatarURL,
		&role,
		&a.Locale,
		&settings,
		&changedAt,
		&linkedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}

	a.CredentialDigest = mapNullString(digest)
	a.ExternalIdentityID = mapNullString(externalID)
	a.Role = domain.Role(role)
	a.CredentialsChangedAt = mapNullTimePtr(changedAt)
	a.LinkedAt = mapNullTimePtr(linkedAt)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()

	if err := json.Unmarshal([]byte(settings), &a.Settings); err != nil {
		return domain.Account{}, fmt.Errorf("sqlite: decode settings for %s: %w", a.ID, err)
	}
	return a, nil
}

func encodeSettings(s map[string]any) (string, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode settings: %w", err)
	}
	return string(b), nil
}
