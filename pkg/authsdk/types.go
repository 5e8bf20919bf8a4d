package authsdk

import (
	"time"

	"github.com/aussiebroadwan/congregation/pkg/httpx"
)

// ============================================================================
// Envelope
// ============================================================================

// Envelope is the body of every API response. Data is decoded into the
// caller's type.
type Envelope[T any] struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    T            `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError names one input field the server rejected.
type FieldError = httpx.FieldError

// ============================================================================
// Accounts and sessions
// ============================================================================

// Account is the public view of an account. The credential digest is never
// sent; HasPassword says whether one exists.
type Account struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	DisplayName string         `json:"displayName"`
	AvatarURL   string         `json:"avatarUrl,omitempty"`
	Role        string         `json:"role"`
	Locale      string         `json:"locale"`
	Settings    map[string]any `json:"settings"`
	HasPassword bool           `json:"hasPassword"`
	HasGoogle   bool           `json:"hasGoogle"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// AuthResponse is returned by register, login and Google sign-in.
type AuthResponse struct {
	User         Account `json:"user"`
	Token        string  `json:"token"`
	RefreshToken string  `json:"refreshToken"`
}

// TokenPair is returned by the refresh endpoint.
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// UserResponse wraps a single account.
type UserResponse struct {
	User Account `json:"user"`
}

// ============================================================================
// Requests
// ============================================================================

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Locale   string `json:"locale,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleRequest carries a Google ID token.
type GoogleRequest struct {
	Credential string `json:"credential"`
}

// GoogleLinkRequest links a Google identity to the signed-in account.
// Password is required when the account has one.
type GoogleLinkRequest struct {
	Credential string `json:"credential"`
	Password   string `json:"password,omitempty"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UpdateProfileRequest changes only the fields that are set. A settings key
// with a null value is removed.
type UpdateProfileRequest struct {
	DisplayName *string        `json:"displayName,omitempty"`
	AvatarURL   *string        `json:"avatarUrl,omitempty"`
	Locale      *string        `json:"locale,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
}

type DeleteAccountRequest struct {
	Password string `json:"password,omitempty"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse is returned by /livez and /readyz. Checks is only set by
// /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency as "ok", "disabled" or an error.
type HealthChecks struct {
	Database string `json:"database"`
	Ledger   string `json:"ledger"`
	Google   string `json:"google"`
}
