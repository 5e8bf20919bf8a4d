package http_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	authhttp "github.com/aussiebroadwan/congregation/internal/auth/http"
	"github.com/aussiebroadwan/congregation/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	ts := newServer(t, func(ts *testServer) {
		ts.router.Readiness = authhttp.Readiness{GoogleEnabled: true, GoogleReady: func() bool { return false }}
	})

	res := ts.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "ok", res.get("status").String())
	require.Equal(t, "test", res.get("version").String())

	res = ts.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "ok", res.get("checks.database").String())
	require.Equal(t, "pending", res.get("checks.google").String(), "a cold key cache is not fatal")

	require.NoError(t, ts.store.Close())
	res = ts.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, res.Code)
	require.Equal(t, "degraded", res.get("status").String())
}

func TestReadyzLedger(t *testing.T) {
	ts := newServer(t, func(ts *testServer) {
		ts.router.Readiness = authhttp.Readiness{
			Ledger: func(context.Context) error { return errors.New("connection refused") },
		}
	})

	res := ts.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, res.Code)
	require.Equal(t, "error", res.get("checks.ledger").String())
	require.Equal(t, "disabled", res.get("checks.google").String())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newServer(t).quiet()
	ts.register(t, "m@x.com")

	res := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body, "congregation_auth_http_requests_total")
	require.Contains(t, res.Body, `route="POST /api/v1/auth/register"`)
	require.Contains(t, res.Body, "congregation_auth_registrations_total")
}

func TestCredentialRateLimit(t *testing.T) {
	ts := newServer(t, func(ts *testServer) {
		ts.router.Limits.Credentials = httpx.RateLimitConfig{Name: "strict", RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	})

	login := func(email string) int {
		return ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": strongPassword}).Code
	}

	require.Equal(t, http.StatusNotFound, login("x@x.com"))
	require.Equal(t, http.StatusNotFound, login("x@x.com"))
	require.Equal(t, http.StatusTooManyRequests, login("x@x.com"))
	require.Equal(t, http.StatusNotFound, login("y@x.com"), "limits are per email")
}

func TestCORSPreflight(t *testing.T) {
	ts := newServer(t)

	res := ts.doWithHeaders(t, http.MethodOptions, "/api/v1/auth/login", map[string]string{
		"Origin":                        "capacitor://localhost",
		"Access-Control-Request-Method": http.MethodPost,
	})
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, "capacitor://localhost", res.Header.Get("Access-Control-Allow-Origin"))
}
