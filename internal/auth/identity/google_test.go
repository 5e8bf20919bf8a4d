package identity_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/congregation/internal/auth/domain"
	"github.com/aussiebroadwan/congregation/internal/auth/identity"
	"github.com/aussiebroadwan/congregation/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	webClient     = "web-client.apps.googleusercontent.com"
	androidClient = "android-client.apps.googleusercontent.com"
)

type fakeGoogle struct {
	priv *rsa.PrivateKey
	kid  string
	srv  *httptest.Server
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	g := &fakeGoogle{priv: priv, kid: "google-kid-1"}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=21600")
		_ = json.NewEncoder(w).Encode(jwtx.JWKS{Keys: []jwtx.JWK{jwtx.NewRSAJWK(g.kid, "RS256", &priv.PublicKey)}})
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGoogle) verifier(clientIDs ...string) *identity.GoogleVerifier {
	return identity.NewGoogleVerifier(identity.GoogleConfig{
		ClientIDs: clientIDs,
		JWKSURL:   g.srv.URL,
		Timeout:   time.Second,
	})
}

func (g *fakeGoogle) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = g.kid
	s, err := tok.SignedString(g.priv)
	require.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            webClient,
		"sub":            "1234567890",
		"email":          "member@example.com",
		"email_verified": true,
		"name":           "Church Member",
		"picture":        "https://lh3.googleusercontent.com/a/photo",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

func TestGoogleVerifierAcceptsValidToken(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier(webClient, androidClient)

	ext, err := v.Verify(context.Background(), g.sign(t, validClaims()))
	require.NoError(t, err)
	require.Equal(t, domain.ExternalIdentity{
		Provider:      domain.ProviderGoogle,
		Subject:       "1234567890",
		Email:         "member@example.com",
		EmailVerified: true,
		Name:          "Church Member",
		Picture:       "https://lh3.googleusercontent.com/a/photo",
	}, ext)
	require.True(t, v.Ready())
}

func TestGoogleVerifierAndroidAudienceAndLegacyFields(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier(webClient, androidClient)

	claims := validClaims()
	claims["aud"] = androidClient
	claims["iss"] = "accounts.google.com"
	claims["email_verified"] = "true"

	ext, err := v.Verify(context.Background(), g.sign(t, claims))
	require.NoError(t, err)
	require.True(t, ext.EmailVerified)
}

func TestGoogleVerifierRejects(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier(webClient)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cases := map[string]func() string{
		"wrong audience": func() string {
			c := validClaims()
			c["aud"] = "someone-else"
			return g.sign(t, c)
		},
		"wrong issuer": func() string {
			c := validClaims()
			c["iss"] = "https://evil.example.com"
			return g.sign(t, c)
		},
		"expired": func() string {
			c := validClaims()
			c["exp"] = time.Now().Add(-time.Hour).Unix()
			return g.sign(t, c)
		},
		"issued in the future": func() string {
			c := validClaims()
			c["iat"] = time.Now().Add(time.Hour).Unix()
			return g.sign(t, c)
		},
		"forged signature": func() string {
			tok := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims())
			tok.Header["kid"] = g.kid
			s, err := tok.SignedString(other)
			require.NoError(t, err)
			return s
		},
		"unknown kid": func() string {
			tok := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims())
			tok.Header["kid"] = "rotated-away"
			s, err := tok.SignedString(g.priv)
			require.NoError(t, err)
			return s
		},
		"garbage": func() string { return "definitely-not-a-jwt" },
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token())
			require.ErrorIs(t, err, identity.ErrInvalidAssertion)
		})
	}
}

func TestGoogleVerifierMissingEmail(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier(webClient)

	c := validClaims()
	delete(c, "email")

	_, err := v.Verify(context.Background(), g.sign(t, c))
	require.ErrorIs(t, err, identity.ErrMissingEmail)
}

func TestGoogleVerifierProviderDown(t *testing.T) {
	g := newFakeGoogle(t)
	token := g.sign(t, validClaims())
	g.srv.Close()

	_, err := g.verifier(webClient).Verify(context.Background(), token)
	require.ErrorIs(t, err, identity.ErrProviderUnavailable)
}

func TestGoogleVerifierDisabled(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier()
	require.False(t, v.Enabled())

	_, err := v.Verify(context.Background(), g.sign(t, validClaims()))
	require.ErrorIs(t, err, identity.ErrInvalidAssertion)
}
