package http

import (
	"net/http"

	"github.com/aussiebroadwan/congregation/internal/auth/service"
	"github.com/aussiebroadwan/congregation/pkg/authsdk"
	"github.com/aussiebroadwan/congregation/pkg/httpx"
)

// forgotPasswordMessage is returned whether or not the email is known.
const forgotPasswordMessage = "If an account exists for this email, a reset link has been sent"

type PasswordHandler struct {
	Accounts *service.AccountService
	Errors   ErrorWriter
}

// Change godoc
//
//	@Summary		Change password
//	@Description	Replace the password after confirming the current one. Older refresh tokens stop working.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		authsdk.ChangePasswordRequest	true	"oldPassword, newPassword"
//	@Success		200		{object}	httpx.Envelope					"password changed"
//	@Failure		400		{object}	httpx.Envelope					"validation failed or Google-only account"
//	@Failure		401		{object}	httpx.Envelope					"wrong current password"
//	@Router			/api/v1/auth/change-password [post].
func (h *PasswordHandler) Change(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.Accounts.ChangePassword(r.Context(), httpx.AccountID(r.Context()), req.OldPassword, req.NewPassword)
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Password changed successfully", nil)
}

// Forgot godoc
//
//	@Summary		Request password reset
//	@Description	Mail a reset link. The response is the same whether or not the email is registered.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.ForgotPasswordRequest	true	"email"
//	@Success		200		{object}	httpx.Envelope					"generic acknowledgement"
//	@Failure		400		{object}	httpx.Envelope					"malformed email"
//	@Router			/api/v1/auth/forgot-password [post].
func (h *PasswordHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	_ = h.Accounts.InitiatePasswordReset(r.Context(), req.Email)
	httpx.WriteSuccess(w, http.StatusOK, forgotPasswordMessage, nil)
}

// Reset godoc
//
//	@Summary		Reset password
//	@Description	Set a new password with the token from the reset email. Each token works once.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.ResetPasswordRequest	true	"token, newPassword"
//	@Success		200		{object}	httpx.Envelope					"password reset"
//	@Failure		400		{object}	httpx.Envelope					"validation failed or invalid token"
//	@Router			/api/v1/auth/reset-password [post].
func (h *PasswordHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.Accounts.CompletePasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Password reset successfully", nil)
}
