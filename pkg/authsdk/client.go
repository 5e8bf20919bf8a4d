package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to the Congregation auth service. Unauthenticated calls
// live here; signing in returns a Session for the rest.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Register creates a password account and signs it in.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	var out AuthResponse
	if err := call(ctx, c, http.MethodPost, "/api/v1/auth/register", "", req, &out); err != nil {
		return nil, err
	}
	return c.newSession(out), nil
}

// Login signs in with email and password.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, error) {
	var out AuthResponse
	err := call(ctx, c, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return c.newSession(out), nil
}

// LoginWithGoogle exchanges a Google ID token for a session. An existing
// password account with the same email yields ErrLinkConfirmationRequired.
func (c *SDKClient) LoginWithGoogle(ctx context.Context, credential string) (*Session, error) {
	var out AuthResponse
	err := call(ctx, c, http.MethodPost, "/api/v1/auth/google", "", GoogleRequest{Credential: credential}, &out)
	if err != nil {
		return nil, err
	}
	return c.newSession(out), nil
}

// Refresh trades a refresh token for a new pair.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var out TokenPair
	err := call(ctx, c, http.MethodPost, "/api/v1/auth/refresh", "", RefreshRequest{RefreshToken: refreshToken}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ResumeSession rebuilds a session from stored tokens. The account is
// fetched lazily by Session.Me.
func (c *SDKClient) ResumeSession(accessToken, refreshToken string) *Session {
	return c.newSession(AuthResponse{Token: accessToken, RefreshToken: refreshToken})
}

// ForgotPassword always succeeds for a well-formed email, whether or not an
// account exists.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) error {
	return call[struct{}](ctx, c, http.MethodPost, "/api/v1/auth/forgot-password", "", ForgotPasswordRequest{Email: email}, nil)
}

// ResetPassword completes a reset with the token from the email.
func (c *SDKClient) ResetPassword(ctx context.Context, token, newPassword string) error {
	return call[struct{}](ctx, c, http.MethodPost, "/api/v1/auth/reset-password", "",
		ResetPasswordRequest{Token: token, NewPassword: newPassword}, nil)
}
