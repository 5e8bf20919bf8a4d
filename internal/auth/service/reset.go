package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/congregation/internal/auth/mail"
	"github.com/aussiebroadwan/congregation/internal/auth/store"
	"github.com/aussiebroadwan/congregation/pkg/cryptox"
	"github.com/aussiebroadwan/congregation/pkg/slogx"
)

// InitiatePasswordReset mails a reset link to password accounts. The result
// is nil whether or not the email belongs to anyone.
func (s *AccountService) InitiatePasswordReset(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)
	email = strings.TrimSpace(email)

	sctx, cancel := s.storeCtx(ctx)
	acc, err := s.Store.Accounts().GetAccountByEmail(sctx, email)
	cancel()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("reset lookup failed", slog.Any("error", internal("reset", "LOOKUP_FAILED", err)))
		}
		return nil
	}
	if !acc.HasPassword() {
		log.Debug("reset requested for external-only account", slog.String("account_id", acc.ID))
		return nil
	}

	token, err := s.Tokens.IssueReset(acc)
	if err != nil {
		log.Error("reset token not issued", slog.String("account_id", acc.ID), slog.Any("error", err))
		return nil
	}

	slogx.Audit(ctx, "password_reset.requested", slog.String("account_id", acc.ID))
	s.deliver(ctx, "reset", func(ctx context.Context) error {
		return s.Mailer.SendPasswordReset(ctx, acc.Email, token)
	})
	return nil
}

// CompletePasswordReset sets a new password using a RESET token. Each token
// works once.
func (s *AccountService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return ErrValidation
	}
	claims, err := s.Tokens.VerifyReset(token)
	if err != nil {
		return ErrInvalidOrExpiredToken
	}
	if claims.ID == "" {
		return ErrInvalidOrExpiredToken
	}

	digest, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return internal("reset", "HASH_FAILED", err)
	}

	now := s.now()
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	consumed := false
	err = s.Store.WithTx(sctx, func(tx store.Tx) error {
		acc, err := tx.Accounts().GetAccountByID(sctx, claims.Subject)
		if err != nil {
			return err
		}
		// A later credential change retires every outstanding reset link.
		if acc.CredentialsChangedAt != nil && claims.IssuedBefore(*acc.CredentialsChangedAt) {
			return store.ErrAlreadyExists
		}

		if err := tx.Accounts().UpdateCredentialDigest(sctx, acc.ID, digest, now); err != nil {
			return err
		}
		if s.Ledger == nil {
			return tx.ResetTokens().Consume(sctx, claims.ID, acc.ID, claims.ExpiresAt.Time)
		}

		// The external ledger is outside the transaction: consume last and
		// release the jti if the commit still fails.
		if err := s.Ledger.Consume(sctx, claims.ID, acc.ID, claims.ExpiresAt.Time); err != nil {
			return err
		}
		consumed = true
		return nil
	})
	if err != nil && consumed {
		s.releaseResetToken(ctx, claims.ID, claims.Subject)
	}
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrAlreadyExists):
		return ErrInvalidOrExpiredToken
	default:
		return internal("reset", "COMPLETE_FAILED", err, "account_id", claims.Subject)
	}

	slogx.Audit(ctx, "password_reset.completed", slog.String("account_id", claims.Subject))
	s.deliver(ctx, "alert", func(ctx context.Context) error {
		return s.Mailer.SendSecurityAlert(ctx, claims.Email, mail.AlertPasswordChange)
	})
	return nil
}

func (s *AccountService) releaseResetToken(ctx context.Context, jti, accountID string) {
	rctx, cancel := s.storeCtx(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.Ledger.Release(rctx, jti); err != nil {
		slogx.FromContext(ctx).Error("reset token not released",
			slog.String("account_id", accountID),
			slog.Any("error", internal("reset", "RELEASE_FAILED", err)))
	}
}
