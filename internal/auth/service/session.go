package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/congregation/internal/auth/domain"
	"github.com/aussiebroadwan/congregation/internal/auth/store"
	"github.com/aussiebroadwan/congregation/pkg/jwtx"
	"github.com/aussiebroadwan/congregation/pkg/slogx"
)

// TokenService issues and renews the bearer tokens handed to clients.
type TokenService struct {
	Store    store.Store
	Signer   *jwtx.HS256Signer
	Verifier *jwtx.HS256Verifier

	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	ResetTTL     time.Duration
	StoreTimeout time.Duration
	Now          func() time.Time
}

// TokenPair is what a successful sign-in returns.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func (s *TokenService) now() time.Time { return clock(s.Now) }

func ttlOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (s *TokenService) sign(acc domain.Account, purpose jwtx.Purpose, ttl time.Duration) (jwtx.Claims, string, error) {
	claims := jwtx.NewClaims(acc.ID, string(acc.Role), acc.Email, purpose, ttl, s.Signer.Issuer(), s.now())
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return jwtx.Claims{}, "", internal("token", "SIGN_FAILED", err, "purpose", string(purpose))
	}
	return claims, token, nil
}

// IssuePair signs an ACCESS and a REFRESH token for acc.
func (s *TokenService) IssuePair(acc domain.Account) (TokenPair, error) {
	access, accessToken, err := s.sign(acc, jwtx.PurposeAccess, ttlOr(s.AccessTTL, jwtx.DefaultAccessTokenTTL))
	if err != nil {
		return TokenPair{}, err
	}
	_, refreshToken, err := s.sign(acc, jwtx.PurposeRefresh, ttlOr(s.RefreshTTL, jwtx.DefaultRefreshTokenTTL))
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    access.ExpiresAt.Time,
	}, nil
}

// IssueReset signs a single-use RESET token for acc.
func (s *TokenService) IssueReset(acc domain.Account) (string, error) {
	_, token, err := s.sign(acc, jwtx.PurposeReset, ttlOr(s.ResetTTL, jwtx.DefaultResetTokenTTL))
	return token, err
}

// VerifyReset checks a RESET token. Anything else is ErrInvalidOrExpiredToken.
func (s *TokenService) VerifyReset(token string) (jwtx.Claims, error) {
	claims, err := s.Verifier.VerifyPurpose(token, jwtx.PurposeReset)
	if err != nil {
		return jwtx.Claims{}, ErrInvalidOrExpiredToken
	}
	return claims, nil
}

// Refresh trades a REFRESH token for a new pair. The account is reloaded so
// role changes and credential changes take effect.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (domain.Account, TokenPair, error) {
	log := slogx.FromContext(ctx)

	claims, err := s.Verifier.VerifyPurpose(refreshToken, jwtx.PurposeRefresh)
	if err != nil {
		return domain.Account{}, TokenPair{}, ErrUnauthorized
	}

	sctx, cancel := storeContext(ctx, s.StoreTimeout)
	defer cancel()

	acc, err := s.Store.Accounts().GetAccountByID(sctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, TokenPair{}, ErrUnauthorized
		}
		return domain.Account{}, TokenPair{}, internal("token", "LOOKUP_FAILED", err, "account_id", claims.Subject)
	}
	if acc.CredentialsChangedAt != nil && claims.IssuedBefore(*acc.CredentialsChangedAt) {
		log.Info("stale refresh token", slog.String("account_id", acc.ID))
		return domain.Account{}, TokenPair{}, ErrUnauthorized
	}

	pair, err := s.IssuePair(acc)
	if err != nil {
		return domain.Account{}, TokenPair{}, err
	}
	return acc, pair, nil
}
