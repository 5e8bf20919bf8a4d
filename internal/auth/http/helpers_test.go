package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authhttp "github.com/aussiebroadwan/congregation/internal/auth/http"
	idmock "github.com/aussiebroadwan/congregation/internal/auth/identity/mock"
	mailmock "github.com/aussiebroadwan/congregation/internal/auth/mail/mock"
	"github.com/aussiebroadwan/congregation/internal/auth/metrics"
	"github.com/aussiebroadwan/congregation/internal/auth/service"
	"github.com/aussiebroadwan/congregation/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/congregation/pkg/httpx"
	"github.com/aussiebroadwan/congregation/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/mock/gomock"
)

const strongPassword = "Aa1!aaaa"

var testSecret = []byte("http-test-secret-0123456789abcdef!!")

type testServer struct {
	router   *authhttp.Router
	store    *sqlite.Store
	accounts *service.AccountService
	tokens   *service.TokenService
	google   *idmock.MockVerifier
	mailer   *mailmock.MockMailer
	metrics  *metrics.Metrics
}

func relaxed() httpx.RateLimitConfig {
	return httpx.RateLimitConfig{Name: "test", RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
}

func newServer(t *testing.T, opts ...func(*testServer)) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.MemoryPath)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	signer, err := jwtx.NewHS256Signer(testSecret, "congregation-test")
	require.NoError(t, err)
	verifier := jwtx.NewHS256Verifier(testSecret, "congregation-test")

	ctrl := gomock.NewController(t)
	ts := &testServer{
		store:   st,
		google:  idmock.NewMockVerifier(ctrl),
		mailer:  mailmock.NewMockMailer(ctrl),
		metrics: metrics.New(),
	}
	ts.tokens = &service.TokenService{Store: st, Signer: signer, Verifier: verifier}
	ts.accounts = &service.AccountService{
		Store:   st,
		Tokens:  ts.tokens,
		Mailer:  ts.mailer,
		Metrics: ts.metrics,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	access := jwtx.PurposeVerifier{HS256Verifier: verifier, Purpose: jwtx.PurposeAccess}
	ts.router = authhttp.NewRouter(access, "test", st, logger, ts.metrics, httpx.DefaultAllowedOrigins)
	ts.router.Accounts = ts.accounts
	ts.router.Tokens = ts.tokens
	ts.router.Google = ts.google
	ts.router.Limits = authhttp.Limits{Credentials: relaxed(), Authenticated: relaxed(), Public: relaxed()}

	for _, opt := range opts {
		opt(ts)
	}
	ts.router.ApplyRoutes()
	return ts
}

// quiet accepts any mail.
func (ts *testServer) quiet() *testServer {
	ts.mailer.EXPECT().SendWelcome(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	ts.mailer.EXPECT().SendSecurityAlert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	ts.mailer.EXPECT().SendPasswordReset(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	return ts
}

type response struct {
	Code   int
	Header http.Header
	Body   string
}

func (r response) get(path string) gjson.Result { return gjson.Get(r.Body, path) }

func (ts *testServer) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequestWithContext(context.Background(), method, path, rd)
	req.RemoteAddr = "192.0.2.10:5555"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return response{Code: rec.Code, Header: rec.Header(), Body: rec.Body.String()}
}

// register signs up email and returns the access token.
func (ts *testServer) register(t *testing.T, email string) (string, response) {
	t.Helper()
	res := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": strongPassword, "name": "Ann",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	return res.get("data.token").String(), res
}

func (ts *testServer) doWithHeaders(t *testing.T, method, path string, headers map[string]string) response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return response{Code: rec.Code, Header: rec.Header(), Body: rec.Body.String()}
}
