package http

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"

	"github.com/aussiebroadwan/congregation/internal/auth/domain"
	"github.com/aussiebroadwan/congregation/internal/auth/identity"
	"github.com/aussiebroadwan/congregation/internal/auth/service"
	"github.com/aussiebroadwan/congregation/pkg/authsdk"
	"github.com/aussiebroadwan/congregation/pkg/httpx"
	"github.com/aussiebroadwan/congregation/pkg/slogx"
)

const internalErrorMessage = "Internal server error"

// ErrorWriter maps service errors to HTTP responses. Every handler goes
// through it so the status taxonomy lives in one place.
type ErrorWriter struct {
	// Dev puts the error text of unexpected failures in the response.
	Dev bool
}

func (e ErrorWriter) Write(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "Validation failed")
	case errors.Is(err, service.ErrAccountExists):
		httpx.WriteError(w, http.StatusBadRequest, "User already exists")
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrBadCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrExternalOnly):
		httpx.WriteError(w, http.StatusBadRequest, "Please login with Google")
	case errors.Is(err, identity.ErrInvalidAssertion), errors.Is(err, identity.ErrMissingEmail):
		httpx.WriteError(w, http.StatusBadRequest, "Invalid Google token")
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		httpx.WriteError(w, http.StatusBadRequest, "Invalid or expired token")
	case errors.Is(err, service.ErrUnauthorized):
		httpx.WriteUnauthorized(w, "invalid or expired token")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, service.ErrLinkConfirmationRequired):
		httpx.WriteError(w, http.StatusConflict,
			"An account with this email already exists. Sign in with your password to link Google.")
	case errors.Is(err, identity.ErrProviderUnavailable), errors.Is(err, context.DeadlineExceeded):
		slogx.FromContext(r.Context()).Warn("dependency unavailable", slog.Any("error", err))
		httpx.WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
		msg := internalErrorMessage
		if e.Dev {
			msg = err.Error()
		}
		httpx.WriteError(w, http.StatusInternalServerError, msg)
	}
}

// validatable is implemented by the authsdk request types.
type validatable interface {
	Validate() []httpx.FieldError
}

// decode reads and validates a JSON body, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dst validatable) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	if errs := dst.Validate(); len(errs) > 0 {
		httpx.WriteValidationError(w, errs)
		return false
	}
	return true
}

func toAccount(a domain.Account) authsdk.Account {
	settings := maps.Clone(a.Settings)
	if settings == nil {
		settings = map[string]any{}
	}
	return authsdk.Account{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		AvatarURL:   a.AvatarURL,
		Role:        string(a.Role),
		Locale:      a.Locale,
		Settings:    settings,
		HasPassword: a.HasPassword(),
		HasGoogle:   a.HasExternalIdentity(),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toAuthResponse(a domain.Account, pair service.TokenPair) authsdk.AuthResponse {
	return authsdk.AuthResponse{
		User:         toAccount(a),
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}
