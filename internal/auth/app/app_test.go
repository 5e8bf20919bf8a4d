package app

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		Env:                  EnvDev,
		LogLevel:             "error",
		LogFormat:            "text",
		Port:                 8080,
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
		StoreTimeout:         time.Second,
		Issuer:               "congregation-test",
		DatabaseFile:         filepath.Join(dir, "auth.db"),
		PepperFile:           filepath.Join(dir, "pepper"),
		AccessTTL:            15 * time.Minute,
		RefreshTTL:           7 * 24 * time.Hour,
		ResetTTL:             time.Hour,
		GoogleLinkPolicy:     "confirm",
		ResetLedger:          LedgerSQLite,
		MailDriver:           MailLog,
		MailFrom:             "no-reply@example.com",
		FrontendURL:          "http://localhost:3000",
	}
}

func TestNewServesRegistration(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSecret = goodSecret

	app, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.closeStores() })

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)

	body := []byte(`{"email":"grace@example.com","password":"Sup3r$ecret","name":"Grace"}`)
	resp, err := http.Post(srv.URL+"/api/v1/auth/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewWithoutGoogleClientIDs(t *testing.T) {
	app, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.closeStores() })
	require.False(t, app.google.Enabled())
	require.False(t, app.router.Readiness.GoogleEnabled)

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)

	body := []byte(`{"credential":"eyJhbGciOiJSUzI1NiJ9.e30.sig"}`)
	resp, err := http.Post(srv.URL+"/api/v1/auth/google", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNewWithRedisLedger(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.ResetLedger = LedgerRedis
	cfg.RedisAddr = mr.Addr()

	app, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.closeStores() })
	require.NotNil(t, app.ledger)
	require.NotNil(t, app.router.Readiness.Ledger)
}

func TestNewFailsWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.ResetLedger = LedgerRedis
	cfg.RedisAddr = addr

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := New(ctx, cfg)
	require.Error(t, err)
}

func TestProductionRequiresSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = EnvProd

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := testConfig(t)
	cfg.Port = port

	app, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/livez", port))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
