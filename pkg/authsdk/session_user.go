package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Me returns the signed-in account.
func (s *Session) Me(ctx context.Context) (*Account, error) {
	var out UserResponse
	if err := authCall(ctx, s, http.MethodGet, "/api/v1/users/me", nil, &out); err != nil {
		return nil, err
	}
	s.setUser(out.User)
	return &out.User, nil
}

// UpdateProfile changes the fields set in req.
func (s *Session) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Account, error) {
	var out UserResponse
	if err := authCall(ctx, s, http.MethodPatch, "/api/v1/users/me", req, &out); err != nil {
		return nil, err
	}
	s.setUser(out.User)
	return &out.User, nil
}

// ChangePassword replaces the password. Refresh tokens issued before the
// change stop working, so the session signs in again with the new password.
func (s *Session) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	req := ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}
	if err := authCall[struct{}](ctx, s, http.MethodPost, "/api/v1/auth/change-password", req, nil); err != nil {
		return err
	}

	user := s.User()
	if user == nil {
		var err error
		if user, err = s.Me(ctx); err != nil {
			return err
		}
	}

	fresh, err := s.client.Login(ctx, user.Email, newPassword)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTokens(fresh.accessToken, fresh.refreshToken)
	s.user = fresh.user
	return nil
}

// LinkGoogle attaches a Google identity to this account. password is
// required when the account has one.
func (s *Session) LinkGoogle(ctx context.Context, credential, password string) (*Account, error) {
	var out UserResponse
	req := GoogleLinkRequest{Credential: credential, Password: password}
	if err := authCall(ctx, s, http.MethodPost, "/api/v1/auth/google/link", req, &out); err != nil {
		return nil, err
	}
	s.setUser(out.User)
	return &out.User, nil
}

// DeleteAccount removes the account. The session is unusable afterwards.
func (s *Session) DeleteAccount(ctx context.Context, password string) error {
	return authCall[struct{}](ctx, s, http.MethodDelete, "/api/v1/users/me", DeleteAccountRequest{Password: password}, nil)
}

// GetAccount fetches any account. Requires the ADMIN role.
func (s *Session) GetAccount(ctx context.Context, id string) (*Account, error) {
	var out UserResponse
	if err := authCall(ctx, s, http.MethodGet, "/api/v1/admin/accounts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}
