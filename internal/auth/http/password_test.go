package http_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestForgotPasswordIsUniform(t *testing.T) {
	ts := newServer(t)
	ts.mailer.EXPECT().SendPasswordReset(gomock.Any(), "real@x.com", gomock.Any()).Return(nil)
	ts.quiet()
	ts.register(t, "real@x.com")

	unknown := ts.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{"email": "nonexistent@x.com"})
	real := ts.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{"email": "real@x.com"})

	require.Equal(t, http.StatusOK, unknown.Code)
	require.Equal(t, unknown.Code, real.Code)
	require.JSONEq(t, unknown.Body, real.Body)

	bad := ts.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{"email": "nope"})
	require.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestResetPasswordFlow(t *testing.T) {
	ts := newServer(t)
	var token string
	ts.mailer.EXPECT().SendPasswordReset(gomock.Any(), "reset@x.com", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, tok string) error {
			token = tok
			return nil
		})
	ts.quiet()
	ts.register(t, "reset@x.com")

	res := ts.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{"email": "reset@x.com"})
	require.Equal(t, http.StatusOK, res.Code)
	require.NotEmpty(t, token)

	const next = "Bb2@bbbb"
	res = ts.do(t, http.MethodPost, "/api/v1/auth/reset-password", "", map[string]string{"token": token, "newPassword": "weak"})
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "newPassword", res.get("errors.0.field").String())

	res = ts.do(t, http.MethodPost, "/api/v1/auth/reset-password", "", map[string]string{"token": token, "newPassword": next})
	require.Equal(t, http.StatusOK, res.Code, res.Body)

	res = ts.do(t, http.MethodPost, "/api/v1/auth/reset-password", "", map[string]string{"token": token, "newPassword": next})
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "Invalid or expired token", res.get("message").String())

	res = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "reset@x.com", "password": next})
	require.Equal(t, http.StatusOK, res.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	ts := newServer(t).quiet()
	token, _ := ts.register(t, "change@x.com")

	res := ts.do(t, http.MethodPost, "/api/v1/auth/change-password", token, map[string]string{"oldPassword": "Wrong1!x", "newPassword": "Bb2@bbbb"})
	require.Equal(t, http.StatusUnauthorized, res.Code)

	res = ts.do(t, http.MethodPost, "/api/v1/auth/change-password", token, map[string]string{"oldPassword": strongPassword, "newPassword": "short"})
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = ts.do(t, http.MethodPost, "/api/v1/auth/change-password", token, map[string]string{"oldPassword": strongPassword, "newPassword": "Bb2@bbbb"})
	require.Equal(t, http.StatusOK, res.Code)

	res = ts.do(t, http.MethodPost, "/api/v1/auth/change-password", "", map[string]string{"oldPassword": strongPassword, "newPassword": "Bb2@bbbb"})
	require.Equal(t, http.StatusUnauthorized, res.Code)
}
