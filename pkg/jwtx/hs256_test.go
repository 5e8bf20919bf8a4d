package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/congregation/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testIssuer = "congregation"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newHS256(t *testing.T) (*jwtx.HS256Signer, *jwtx.HS256Verifier) {
	t.Helper()
	s, err := jwtx.NewHS256Signer(testSecret, testIssuer)
	require.NoError(t, err)
	return s, jwtx.NewHS256Verifier(testSecret, testIssuer)
}

func TestHS256SignAndVerify(t *testing.T) {
	signer, verifier := newHS256(t)

	claims := jwtx.NewClaims("acc-1", "ADMIN", "a@example.com", jwtx.PurposeAccess, time.Minute, signer.Issuer(), time.Now())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "acc-1", got.Subject)
	require.Equal(t, "ADMIN", got.Role)
	require.Equal(t, "a@example.com", got.Email)
	require.Equal(t, jwtx.PurposeAccess, got.Purpose)
	require.Equal(t, claims.ID, got.ID)
}

func TestHS256RejectsWeakSecret(t *testing.T) {
	_, err := jwtx.NewHS256Signer([]byte("short"), testIssuer)
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}

func TestHS256SignRequiresPurpose(t *testing.T) {
	signer, _ := newHS256(t)
	claims := jwtx.NewClaims("acc-1", "USER", "", "", time.Minute, testIssuer, time.Now())
	_, err := signer.Sign(claims)
	require.Error(t, err)
}

func TestHS256VerifyFailuresCollapse(t *testing.T) {
	signer, verifier := newHS256(t)
	now := time.Now()

	sign := func(c jwtx.Claims) string {
		tok, err := signer.Sign(c)
		require.NoError(t, err)
		return tok
	}

	otherSigner, err := jwtx.NewHS256Signer([]byte("ffffffffffffffffffffffffffffffff"), testIssuer)
	require.NoError(t, err)
	forged, err := otherSigner.Sign(jwtx.NewClaims("acc-1", "USER", "", jwtx.PurposeAccess, time.Minute, testIssuer, now))
	require.NoError(t, err)

	noneTok, err := jwt.NewWithClaims(jwt.SigningMethodNone,
		jwtx.NewClaims("acc-1", "USER", "", jwtx.PurposeAccess, time.Minute, testIssuer, now),
	).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"expired":      sign(jwtx.NewClaims("acc-1", "USER", "", jwtx.PurposeAccess, time.Minute, testIssuer, now.Add(-time.Hour))),
		"wrong issuer": sign(jwtx.NewClaims("acc-1", "USER", "", jwtx.PurposeAccess, time.Minute, "someone-else", now)),
		"no subject":   sign(jwtx.NewClaims("", "USER", "", jwtx.PurposeAccess, time.Minute, testIssuer, now)),
		"forged":       forged,
		"alg none":     noneTok,
		"garbage":      "abc.def.ghi",
		"empty":        "",
	}

	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := verifier.Verify(tok)
			require.ErrorIs(t, err, jwtx.ErrInvalidToken)
		})
	}
}

func TestHS256VerifyPurpose(t *testing.T) {
	signer, verifier := newHS256(t)

	refresh, err := signer.Sign(jwtx.NewClaims("acc-1", "USER", "", jwtx.PurposeRefresh, time.Hour, testIssuer, time.Now()))
	require.NoError(t, err)

	_, err = verifier.VerifyPurpose(refresh, jwtx.PurposeRefresh)
	require.NoError(t, err)

	_, err = verifier.VerifyPurpose(refresh, jwtx.PurposeAccess)
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)

	var access jwtx.Verifier = jwtx.PurposeVerifier{HS256Verifier: verifier, Purpose: jwtx.PurposeAccess}
	_, err = access.Verify(refresh)
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)
}

func TestHS256VerifierClock(t *testing.T) {
	signer, verifier := newHS256(t)
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tok, err := signer.Sign(jwtx.NewClaims("acc-1", "USER", "", jwtx.PurposeReset, time.Hour, testIssuer, issued))
	require.NoError(t, err)

	verifier.Now = func() time.Time { return issued.Add(59 * time.Minute) }
	_, err = verifier.Verify(tok)
	require.NoError(t, err)

	verifier.Now = func() time.Time { return issued.Add(61 * time.Minute) }
	_, err = verifier.Verify(tok)
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)
}
