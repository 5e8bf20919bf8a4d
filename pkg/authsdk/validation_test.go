package authsdk_test

import (
	"strings"
	"testing"

	"github.com/aussiebroadwan/congregation/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func fields(errs []authsdk.FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestRegisterRequestValidate(t *testing.T) {
	valid := authsdk.RegisterRequest{Email: "a@x.com", Password: "Aa1!aaaa", Name: "Ann"}
	require.Empty(t, valid.Validate())

	withLocale := valid
	withLocale.Locale = "pt-BR"
	require.Empty(t, withLocale.Validate())

	cases := map[string]struct {
		req  authsdk.RegisterRequest
		want []string
	}{
		"everything wrong": {
			req:  authsdk.RegisterRequest{Email: "nope", Password: "short", Name: "A", Locale: "not a tag!"},
			want: []string{"email", "password", "name", "locale"},
		},
		"missing all": {
			req:  authsdk.RegisterRequest{},
			want: []string{"email", "password", "name"},
		},
		"email too long": {
			req:  authsdk.RegisterRequest{Email: strings.Repeat("a", 250) + "@x.com", Password: "Aa1!aaaa", Name: "Ann"},
			want: []string{"email"},
		},
		"password without symbol": {
			req:  authsdk.RegisterRequest{Email: "a@x.com", Password: "Aa1aaaaa", Name: "Ann"},
			want: []string{"password"},
		},
		"password without upper": {
			req:  authsdk.RegisterRequest{Email: "a@x.com", Password: "aa1!aaaa", Name: "Ann"},
			want: []string{"password"},
		},
		"password with only a space as symbol": {
			req:  authsdk.RegisterRequest{Email: "a@x.com", Password: "Aa1 aaaa", Name: "Ann"},
			want: []string{},
		},
		"password with accented letter as symbol": {
			req:  authsdk.RegisterRequest{Email: "a@x.com", Password: "Aa1\u00e9aaaa", Name: "Ann"},
			want: []string{},
		},
		"password with arabic-indic digit": {
			req:  authsdk.RegisterRequest{Email: "a@x.com", Password: "Aa\u0661!aaaa", Name: "Ann"},
			want: []string{"password"},
		},
		"password with non-ascii upper only": {
			req:  authsdk.RegisterRequest{Email: "a@x.com", Password: "\u00c9a1!aaaa", Name: "Ann"},
			want: []string{"password"},
		},
		"password too long": {
			req:  authsdk.RegisterRequest{Email: "a@x.com", Password: "Aa1!" + strings.Repeat("a", 125), Name: "Ann"},
			want: []string{"password"},
		},
		"name too long": {
			req:  authsdk.RegisterRequest{Email: "a@x.com", Password: "Aa1!aaaa", Name: strings.Repeat("n", 101)},
			want: []string{"name"},
		},
		"locale too long": {
			req:  authsdk.RegisterRequest{Email: "a@x.com", Password: "Aa1!aaaa", Name: "Ann", Locale: strings.Repeat("a", 36)},
			want: []string{"locale"},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, fields(tc.req.Validate()))
		})
	}
}

func TestOtherRequestsValidate(t *testing.T) {
	require.Equal(t, []string{"email", "password"}, fields(authsdk.LoginRequest{}.Validate()))
	require.Equal(t, []string{"credential"}, fields(authsdk.GoogleRequest{Credential: " "}.Validate()))
	require.Equal(t, []string{"oldPassword", "newPassword"}, fields(authsdk.ChangePasswordRequest{NewPassword: "weak"}.Validate()))
	require.Equal(t, []string{"email"}, fields(authsdk.ForgotPasswordRequest{Email: "x"}.Validate()))
	require.Equal(t, []string{"token", "newPassword"}, fields(authsdk.ResetPasswordRequest{}.Validate()))
	require.Equal(t, []string{"refreshToken"}, fields(authsdk.RefreshRequest{}.Validate()))

	name, locale, avatar := "x", "not a tag!", "javascript:alert(1)"
	require.Equal(t, []string{"displayName", "avatarUrl", "locale"}, fields(authsdk.UpdateProfileRequest{DisplayName: &name, AvatarURL: &avatar, Locale: &locale}.Validate()))
	require.Empty(t, authsdk.UpdateProfileRequest{}.Validate())

	for _, ok := range []string{"https://img.example.com/a.png", ""} {
		require.Empty(t, authsdk.UpdateProfileRequest{AvatarURL: &ok}.Validate(), ok)
	}
	long := "https://img.example.com/" + strings.Repeat("a", authsdk.MaxAvatarURLLength)
	require.Equal(t, []string{"avatarUrl"}, fields(authsdk.UpdateProfileRequest{AvatarURL: &long}.Validate()))
}
