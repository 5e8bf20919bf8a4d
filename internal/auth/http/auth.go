package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/congregation/internal/auth/domain"
	"github.com/aussiebroadwan/congregation/internal/auth/identity"
	"github.com/aussiebroadwan/congregation/internal/auth/service"
	"github.com/aussiebroadwan/congregation/pkg/authsdk"
	"github.com/aussiebroadwan/congregation/pkg/httpx"
)

type AuthHandler struct {
	Accounts *service.AccountService
	Tokens   *service.TokenService
	Google   identity.Verifier
	Errors   ErrorWriter
}

// Register godoc
//
//	@Summary		Register
//	@Description	Create a password account and sign it in. A welcome email is sent.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RegisterRequest							true	"email, password, name, locale"
//	@Success		201		{object}	httpx.Envelope{data=authsdk.AuthResponse}			"user, token, refreshToken"
//	@Failure		400		{object}	httpx.Envelope									"validation failed or user exists"
//	@Failure		429		{object}	httpx.Envelope									"rate limited"
//	@Router			/api/v1/auth/register [post].
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	acc, err := h.Accounts.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.Name,
		Locale:      req.Locale,
	})
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}

	pair, err := h.Tokens.IssuePair(acc)
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "User registered successfully", toAuthResponse(acc, pair))
}

// Login godoc
//
//	@Summary		Login
//	@Description	Sign in with email and password.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest					true	"email, password"
//	@Success		200		{object}	httpx.Envelope{data=authsdk.AuthResponse}	"user, token, refreshToken"
//	@Failure		400		{object}	httpx.Envelope							"validation failed or Google-only account"
//	@Failure		401		{object}	httpx.Envelope							"invalid credentials"
//	@Failure		404		{object}	httpx.Envelope							"user not found"
//	@Failure		429		{object}	httpx.Envelope							"rate limited"
//	@Router			/api/v1/auth/login [post].
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	acc, err := h.Accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}

	pair, err := h.Tokens.IssuePair(acc)
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Login successful", toAuthResponse(acc, pair))
}

// GoogleSignIn godoc
//
//	@Summary		Google sign-in
//	@Description	Exchange a Google ID token for a session. Unknown identities get a new account.
//	@Description	An existing account with the same email is only linked when the link policy allows it.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.GoogleRequest					true	"credential"
//	@Success		200		{object}	httpx.Envelope{data=authsdk.AuthResponse}	"user, token, refreshToken"
//	@Failure		400		{object}	httpx.Envelope							"invalid Google token or Google sign-in not configured"
//	@Failure		409		{object}	httpx.Envelope							"account exists, link required"
//	@Failure		503		{object}	httpx.Envelope							"Google keys unavailable"
//	@Router			/api/v1/auth/google [post].
func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req authsdk.GoogleRequest
	if !decode(w, r, &req) {
		return
	}
	ext, err := h.verifyGoogle(r.Context(), req.Credential)
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}

	acc, err := h.Accounts.AuthenticateExternal(r.Context(), ext)
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}

	pair, err := h.Tokens.IssuePair(acc)
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Login successful", toAuthResponse(acc, pair))
}

// verifyGoogle treats a missing verifier like one with no client ids.
func (h *AuthHandler) verifyGoogle(ctx context.Context, credential string) (domain.ExternalIdentity, error) {
	if h.Google == nil {
		return domain.ExternalIdentity{}, fmt.Errorf("%w: google sign-in is not configured", identity.ErrInvalidAssertion)
	}
	return h.Google.Verify(ctx, credential)
}

// GoogleLink godoc
//
//	@Summary		Link Google account
//	@Description	Attach a Google identity to the signed-in account. Accounts with a password must confirm it.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		authsdk.GoogleLinkRequest					true	"credential, password"
//	@Success		200		{object}	httpx.Envelope{data=authsdk.UserResponse}	"user"
//	@Failure		400		{object}	httpx.Envelope								"invalid Google token or already linked elsewhere"
//	@Failure		401		{object}	httpx.Envelope								"unauthorized or wrong password"
//	@Failure		409		{object}	httpx.Envelope								"a different Google account is linked"
//	@Router			/api/v1/auth/google/link [post].
func (h *AuthHandler) GoogleLink(w http.ResponseWriter, r *http.Request) {
	var req authsdk.GoogleLinkRequest
	if !decode(w, r, &req) {
		return
	}
	ext, err := h.verifyGoogle(r.Context(), req.Credential)
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}

	acc, err := h.Accounts.LinkExternal(r.Context(), httpx.AccountID(r.Context()), req.Password, ext)
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Google account linked", authsdk.UserResponse{User: toAccount(acc)})
}

// Refresh godoc
//
//	@Summary		Refresh tokens
//	@Description	Trade a refresh token for a new access and refresh token.
//	@Description	Refresh tokens issued before the last password change are rejected.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest					true	"refreshToken"
//	@Success		200		{object}	httpx.Envelope{data=authsdk.TokenPair}	"token, refreshToken"
//	@Failure		400		{object}	httpx.Envelope							"validation failed"
//	@Failure		401		{object}	httpx.Envelope							"invalid refresh token"
//	@Router			/api/v1/auth/refresh [post].
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if !decode(w, r, &req) {
		return
	}

	_, pair, err := h.Tokens.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Token refreshed", authsdk.TokenPair{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Me godoc
//
//	@Summary		Current user
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	httpx.Envelope{data=authsdk.UserResponse}	"user"
//	@Failure		401	{object}	httpx.Envelope								"unauthorized"
//	@Failure		404	{object}	httpx.Envelope								"user not found"
//	@Router			/api/v1/auth/me [get].
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	acc, err := h.Accounts.GetAccount(r.Context(), httpx.AccountID(r.Context()))
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "OK", authsdk.UserResponse{User: toAccount(acc)})
}
