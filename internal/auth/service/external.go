package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/congregation/internal/auth/domain"
	"github.com/aussiebroadwan/congregation/internal/auth/store"
	"github.com/aussiebroadwan/congregation/pkg/cryptox"
	"github.com/aussiebroadwan/congregation/pkg/idx"
	"github.com/aussiebroadwan/congregation/pkg/slogx"
)

// AuthenticateExternal resolves a verified external identity to an account.
// Lookup is by external id first, then by email. Unknown identities get a
// new account; an email match is handed to the link policy.
func (s *AccountService) AuthenticateExternal(ctx context.Context, ext domain.ExternalIdentity) (domain.Account, error) {
	if ext.Subject == "" || strings.TrimSpace(ext.Email) == "" {
		return domain.Account{}, ErrValidation
	}

	// A lost insert race is resolved by looking again once.
	for attempt := 0; ; attempt++ {
		acc, err := s.resolveExternal(ctx, ext)
		if errors.Is(err, store.ErrAlreadyExists) && attempt == 0 {
			continue
		}
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, ErrAccountExists
		}
		return acc, err
	}
}

func (s *AccountService) resolveExternal(ctx context.Context, ext domain.ExternalIdentity) (domain.Account, error) {
	log := slogx.FromContext(ctx)
	provider := ext.Provider
	if provider == "" {
		provider = domain.ProviderGoogle
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	acc, err := s.Store.Accounts().GetAccountByExternalID(sctx, ext.Subject)
	if err == nil {
		s.Metrics.AuthAttempt(provider, "success")
		return acc, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, internal("account", "LOOKUP_FAILED", err, "provider", provider)
	}

	email := strings.TrimSpace(ext.Email)
	acc, err = s.Store.Accounts().GetAccountByEmail(sctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return s.createExternal(ctx, sctx, ext, provider)
	}
	if err != nil {
		return domain.Account{}, internal("account", "LOOKUP_FAILED", err, "email", email)
	}

	policy := s.LinkPolicy.String()
	if acc.HasExternalIdentity() {
		s.recordLinkDecision(ctx, acc, provider, policy, "conflict")
		return domain.Account{}, ErrLinkConfirmationRequired
	}
	if !s.LinkPolicy.Allows(ext) {
		s.recordLinkDecision(ctx, acc, provider, policy, "refused")
		return domain.Account{}, ErrLinkConfirmationRequired
	}

	if err := s.Store.Accounts().LinkExternalIdentity(sctx, acc.ID, ext.Subject, ext.Picture, s.now()); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, err
		}
		return domain.Account{}, internal("account", "LINK_FAILED", err, "account_id", acc.ID)
	}
	s.recordLinkDecision(ctx, acc, provider, policy, "linked")

	linked, err := s.Store.Accounts().GetAccountByID(sctx, acc.ID)
	if err != nil {
		return domain.Account{}, internal("account", "LOOKUP_FAILED", err, "account_id", acc.ID)
	}
	s.Metrics.AuthAttempt(provider, "success")
	log.Info("external identity linked", slog.String("account_id", acc.ID), slog.String("provider", provider))
	return linked, nil
}

func (s *AccountService) createExternal(ctx, sctx context.Context, ext domain.ExternalIdentity, provider string) (domain.Account, error) {
	now := s.now()
	email := strings.TrimSpace(ext.Email)
	name := strings.TrimSpace(ext.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	acc := domain.Account{
		ID:                 idx.NewAt(now).String(),
		Email:              email,
		ExternalIdentityID: ext.Subject,
		DisplayName:        name,
		AvatarURL:          ext.Picture,
		Role:               domain.RoleUser,
		Locale:             domain.DefaultLocale,
		Settings:           map[string]any{},
		LinkedAt:           &now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.Store.Accounts().CreateAccount(sctx, acc); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, err
		}
		return domain.Account{}, internal("account", "CREATE_FAILED", err, "provider", provider)
	}

	s.Metrics.Registration(provider)
	s.Metrics.AuthAttempt(provider, "success")
	slogx.FromContext(ctx).Info("account registered", slog.String("account_id", acc.ID), slog.String("provider", provider))
	s.deliver(ctx, "welcome", func(ctx context.Context) error {
		return s.Mailer.SendWelcome(ctx, acc.Email, acc.DisplayName)
	})
	return acc, nil
}

// LinkExternal attaches ext to an authenticated account. Accounts with a
// password must present it.
func (s *AccountService) LinkExternal(ctx context.Context, accountID, password string, ext domain.ExternalIdentity) (domain.Account, error) {
	if ext.Subject == "" {
		return domain.Account{}, ErrValidation
	}
	provider := ext.Provider
	if provider == "" {
		provider = domain.ProviderGoogle
	}

	acc, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	if acc.ExternalIdentityID == ext.Subject {
		return acc, nil
	}
	if acc.HasExternalIdentity() {
		s.recordLinkDecision(ctx, acc, provider, "explicit", "conflict")
		return domain.Account{}, ErrLinkConfirmationRequired
	}
	if acc.HasPassword() && !cryptox.VerifyPassword(password, acc.CredentialDigest) {
		return domain.Account{}, ErrBadCredentials
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.Store.Accounts().GetAccountByExternalID(sctx, ext.Subject); err == nil {
		s.recordLinkDecision(ctx, acc, provider, "explicit", "taken")
		return domain.Account{}, ErrAccountExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, internal("account", "LOOKUP_FAILED", err, "account_id", acc.ID)
	}

	if err := s.Store.Accounts().LinkExternalIdentity(sctx, acc.ID, ext.Subject, ext.Picture, s.now()); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, ErrAccountExists
		}
		return domain.Account{}, internal("account", "LINK_FAILED", err, "account_id", acc.ID)
	}
	s.recordLinkDecision(ctx, acc, provider, "explicit", "linked")

	linked, err := s.Store.Accounts().GetAccountByID(sctx, acc.ID)
	if err != nil {
		return domain.Account{}, internal("account", "LOOKUP_FAILED", err, "account_id", acc.ID)
	}
	return linked, nil
}

func (s *AccountService) recordLinkDecision(ctx context.Context, acc domain.Account, provider, policy, decision string) {
	s.Metrics.LinkDecision(policy, decision)
	slogx.Audit(ctx, "account.link_decision",
		slog.String("account_id", acc.ID),
		slog.String("provider", provider),
		slog.String("policy", policy),
		slog.String("decision", decision),
	)
}
