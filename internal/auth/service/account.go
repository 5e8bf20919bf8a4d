package service

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/aussiebroadwan/congregation/internal/auth/domain"
	"github.com/aussiebroadwan/congregation/internal/auth/mail"
	"github.com/aussiebroadwan/congregation/internal/auth/metrics"
	"github.com/aussiebroadwan/congregation/internal/auth/store"
	"github.com/aussiebroadwan/congregation/pkg/cryptox"
	"github.com/aussiebroadwan/congregation/pkg/idx"
	"github.com/aussiebroadwan/congregation/pkg/slogx"
)

// AccountService resolves principals: registration, password and external
// sign-in, credential changes and the profile.
type AccountService struct {
	Store  store.Store
	Tokens *TokenService
	Mailer mail.Mailer

	// Ledger overrides the store's reset ledger (for example with redis).
	// When nil, reset tokens are consumed in the same transaction as the
	// password update.
	Ledger store.ResetLedger

	LinkPolicy   LinkPolicy
	Metrics      *metrics.Metrics
	StoreTimeout time.Duration
	Now          func() time.Time
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Locale      string
}

// ProfileUpdate carries the fields to change. Nil fields are left alone.
type ProfileUpdate struct {
	DisplayName *string
	AvatarURL   *string
	Locale      *string
	Settings    map[string]any
}

func (s *AccountService) now() time.Time { return clock(s.Now) }

func (s *AccountService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return storeContext(ctx, s.StoreTimeout)
}

// Register creates a password account with role USER.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (domain.Account, error) {
	log := slogx.FromContext(ctx)
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return domain.Account{}, ErrValidation
	}

	sctx, cancel := s.storeCtx(ctx)
	_, err := s.Store.Accounts().GetAccountByEmail(sctx, email)
	cancel()
	switch {
	case err == nil:
		return domain.Account{}, ErrAccountExists
	case !errors.Is(err, store.ErrNotFound):
		return domain.Account{}, internal("account", "LOOKUP_FAILED", err, "email", email)
	}

	digest, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.Account{}, internal("account", "HASH_FAILED", err)
	}

	now := s.now()
	acc := domain.Account{
		ID:               idx.NewAt(now).String(),
		Email:            email,
		CredentialDigest: digest,
		DisplayName:      strings.TrimSpace(in.DisplayName),
		Role:             domain.RoleUser,
		Locale:           normalizeLocale(in.Locale),
		Settings:         map[string]any{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	sctx, cancel = s.storeCtx(ctx)
	defer cancel()
	if err := s.Store.Accounts().CreateAccount(sctx, acc); err != nil {
		// A concurrent registration won the unique index.
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, ErrAccountExists
		}
		return domain.Account{}, internal("account", "CREATE_FAILED", err, "email", email)
	}

	s.Metrics.Registration("password")
	log.Info("account registered", slog.String("account_id", acc.ID))
	s.deliver(ctx, "welcome", func(ctx context.Context) error {
		return s.Mailer.SendWelcome(ctx, acc.Email, acc.DisplayName)
	})
	return acc, nil
}

// Authenticate checks an email and password pair.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (domain.Account, error) {
	log := slogx.FromContext(ctx)
	email = strings.TrimSpace(email)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	acc, err := s.Store.Accounts().GetAccountByEmail(sctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Metrics.AuthAttempt("password", "not_found")
			return domain.Account{}, ErrNotFound
		}
		return domain.Account{}, internal("account", "LOOKUP_FAILED", err, "email", email)
	}
	if !acc.HasPassword() {
		s.Metrics.AuthAttempt("password", "external_only")
		return domain.Account{}, ErrExternalOnly
	}
	if !cryptox.VerifyPassword(password, acc.CredentialDigest) {
		s.Metrics.AuthAttempt("password", "bad_credentials")
		log.Info("password rejected", slog.String("account_id", acc.ID))
		return domain.Account{}, ErrBadCredentials
	}

	if cryptox.NeedsRehash(acc.CredentialDigest) {
		if digest, err := cryptox.HashPassword(password); err != nil {
			log.Warn("rehash failed", slog.String("account_id", acc.ID), slog.Any("error", err))
		} else if err := s.Store.Accounts().RehashCredentialDigest(sctx, acc.ID, digest); err != nil {
			log.Warn("rehash not stored", slog.String("account_id", acc.ID), slog.Any("error", err))
		} else {
			acc.CredentialDigest = digest
		}
	}

	s.Metrics.AuthAttempt("password", "success")
	s.deliver(ctx, "alert", func(ctx context.Context) error {
		return s.Mailer.SendSecurityAlert(ctx, acc.Email, mail.AlertLogin)
	})
	return acc, nil
}

// ChangePassword replaces the digest after checking the current password.
// Refresh tokens issued before the change stop working.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return ErrValidation
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	acc, err := s.Store.Accounts().GetAccountByID(sctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return internal("account", "LOOKUP_FAILED", err, "account_id", accountID)
	}
	if !acc.HasPassword() {
		return ErrExternalOnly
	}
	if !cryptox.VerifyPassword(oldPassword, acc.CredentialDigest) {
		return ErrBadCredentials
	}

	digest, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return internal("account", "HASH_FAILED", err)
	}
	if err := s.Store.Accounts().UpdateCredentialDigest(sctx, acc.ID, digest, s.now()); err != nil {
		return internal("account", "UPDATE_FAILED", err, "account_id", acc.ID)
	}

	slogx.Audit(ctx, "password.changed", slog.String("account_id", acc.ID))
	s.deliver(ctx, "alert", func(ctx context.Context) error {
		return s.Mailer.SendSecurityAlert(ctx, acc.Email, mail.AlertPasswordChange)
	})
	return nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	acc, err := s.Store.Accounts().GetAccountByID(sctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrNotFound
		}
		return domain.Account{}, internal("account", "LOOKUP_FAILED", err, "account_id", accountID)
	}
	return acc, nil
}

// UpdateProfile applies the non-nil fields of p. Settings are merged key by
// key; a nil value removes the key.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, p ProfileUpdate) (domain.Account, error) {
	acc, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}

	if p.DisplayName != nil {
		acc.DisplayName = strings.TrimSpace(*p.DisplayName)
	}
	if p.AvatarURL != nil {
		acc.AvatarURL = strings.TrimSpace(*p.AvatarURL)
	}
	if p.Locale != nil {
		acc.Locale = normalizeLocale(*p.Locale)
	}
	if p.Settings != nil {
		merged := maps.Clone(acc.Settings)
		if merged == nil {
			merged = map[string]any{}
		}
		for k, v := range p.Settings {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		acc.Settings = merged
	}
	acc.UpdatedAt = s.now()

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.Store.Accounts().UpdateProfile(sctx, acc); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrNotFound
		}
		return domain.Account{}, internal("account", "UPDATE_FAILED", err, "account_id", accountID)
	}
	return acc, nil
}

// DeleteAccount removes the account. Password accounts must confirm with
// their password.
func (s *AccountService) DeleteAccount(ctx context.Context, accountID, password string) error {
	acc, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if acc.HasPassword() {
		if password == "" {
			return ErrValidation
		}
		if !cryptox.VerifyPassword(password, acc.CredentialDigest) {
			return ErrBadCredentials
		}
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.Store.Accounts().DeleteAccount(sctx, acc.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return internal("account", "DELETE_FAILED", err, "account_id", acc.ID)
	}

	slogx.Audit(ctx, "account.deleted", slog.String("account_id", acc.ID))
	return nil
}

// deliver sends mail without letting a delivery failure reach the caller.
func (s *AccountService) deliver(ctx context.Context, kind string, send func(context.Context) error) {
	if s.Mailer == nil {
		return
	}
	if err := send(context.WithoutCancel(ctx)); err != nil {
		s.Metrics.MailFailure(kind)
		slogx.FromContext(ctx).Warn("mail not sent", slog.String("kind", kind), slog.Any("error", err))
	}
}
