package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/congregation/internal/auth/service"
	"github.com/aussiebroadwan/congregation/pkg/authsdk"
	"github.com/aussiebroadwan/congregation/pkg/httpx"
)

type ProfileHandler struct {
	Accounts *service.AccountService
	Errors   ErrorWriter
}

// Get godoc
//
//	@Summary		Get profile
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	httpx.Envelope{data=authsdk.UserResponse}	"user"
//	@Failure		401	{object}	httpx.Envelope								"unauthorized"
//	@Failure		404	{object}	httpx.Envelope								"user not found"
//	@Router			/api/v1/users/me [get].
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	acc, err := h.Accounts.GetAccount(r.Context(), httpx.AccountID(r.Context()))
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "OK", authsdk.UserResponse{User: toAccount(acc)})
}

// Update godoc
//
//	@Summary		Update profile
//	@Description	Change display name, avatar, locale or settings. Omitted fields are kept; a null settings value removes the key.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		authsdk.UpdateProfileRequest				true	"displayName, avatarUrl, locale, settings"
//	@Success		200		{object}	httpx.Envelope{data=authsdk.UserResponse}	"user"
//	@Failure		400		{object}	httpx.Envelope								"validation failed"
//	@Failure		401		{object}	httpx.Envelope								"unauthorized"
//	@Router			/api/v1/users/me [patch].
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req authsdk.UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}

	acc, err := h.Accounts.UpdateProfile(r.Context(), httpx.AccountID(r.Context()), service.ProfileUpdate{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		Locale:      req.Locale,
		Settings:    req.Settings,
	})
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Profile updated", authsdk.UserResponse{User: toAccount(acc)})
}

// Delete godoc
//
//	@Summary		Delete account
//	@Description	Permanently delete the signed-in account. Password accounts must confirm the password.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		authsdk.DeleteAccountRequest	false	"password"
//	@Success		200		{object}	httpx.Envelope					"account deleted"
//	@Failure		400		{object}	httpx.Envelope					"password missing"
//	@Failure		401		{object}	httpx.Envelope					"unauthorized or wrong password"
//	@Router			/api/v1/users/me [delete].
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req authsdk.DeleteAccountRequest
	// The body is optional for accounts without a password.
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.Accounts.DeleteAccount(r.Context(), httpx.AccountID(r.Context()), req.Password); err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Account deleted", nil)
}

type AdminHandler struct {
	Accounts *service.AccountService
	Errors   ErrorWriter
}

// GetAccount godoc
//
//	@Summary		Get any account
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string										true	"account id"
//	@Success		200	{object}	httpx.Envelope{data=authsdk.UserResponse}	"user"
//	@Failure		401	{object}	httpx.Envelope								"unauthorized"
//	@Failure		403	{object}	httpx.Envelope								"not an admin"
//	@Failure		404	{object}	httpx.Envelope								"user not found"
//	@Router			/api/v1/admin/accounts/{id} [get].
func (h *AdminHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.Accounts.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		h.Errors.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "OK", authsdk.UserResponse{User: toAccount(acc)})
}
