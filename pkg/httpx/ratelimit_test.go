package httpx_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/congregation/pkg/httpx"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func jsonRequest(body, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remote
	return req
}

func TestIPKeyExtractor(t *testing.T) {
	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(req))
	})

	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")
		require.Equal(t, "203.0.113.1", httpx.IPKeyExtractor(req))
	})

	t.Run("uses X-Real-IP if X-Forwarded-For absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Real-IP", "203.0.113.2")
		require.Equal(t, "203.0.113.2", httpx.IPKeyExtractor(req))
	})
}

func TestJSONFieldKeyExtractor(t *testing.T) {
	extract := httpx.JSONFieldKeyExtractor("email")

	t.Run("reads field and restores body", func(t *testing.T) {
		req := jsonRequest(`{"email":" Alice@Example.com ","password":"x"}`, "10.0.0.1:1")
		require.Equal(t, "alice@example.com", extract(req))

		rest, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"email":" Alice@Example.com ","password":"x"}`, string(rest))
	})

	t.Run("missing field", func(t *testing.T) {
		require.Empty(t, extract(jsonRequest(`{"password":"x"}`, "10.0.0.1:1")))
	})

	t.Run("not json", func(t *testing.T) {
		require.Empty(t, extract(jsonRequest(`email=alice`, "10.0.0.1:1")))
	})

	t.Run("non-string field", func(t *testing.T) {
		require.Empty(t, extract(jsonRequest(`{"email":42}`, "10.0.0.1:1")))
	})
}

func TestCompositeKeyExtractor(t *testing.T) {
	extractor := httpx.CompositeKeyExtractor(":",
		httpx.IPKeyExtractor,
		httpx.JSONFieldKeyExtractor("email"),
	)

	t.Run("combines multiple extractors", func(t *testing.T) {
		require.Equal(t, "192.168.1.1:alice@example.com", extractor(jsonRequest(`{"email":"alice@example.com"}`, "192.168.1.1:12345")))
	})

	t.Run("skips empty values", func(t *testing.T) {
		require.Equal(t, "192.168.1.1", extractor(jsonRequest(`{}`, "192.168.1.1:12345")))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	serve := func(h http.Handler, remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("blocks requests over limit", func(t *testing.T) {
		config := httpx.RateLimitConfig{Name: "test", RequestsPerWindow: 3, Window: time.Minute, Burst: 3}
		h := httpx.RateLimitMiddleware(config, httpx.IPKeyExtractor)(okHandler)

		for i := range 3 {
			require.Equal(t, http.StatusOK, serve(h, "192.168.1.1:12345").Code, "request %d should succeed", i+1)
		}

		rec := serve(h, "192.168.1.1:12345")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
		require.False(t, gjson.Get(rec.Body.String(), "success").Bool())
		require.NotEmpty(t, gjson.Get(rec.Body.String(), "message").String())
	})

	t.Run("different keys are tracked separately", func(t *testing.T) {
		config := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
		h := httpx.RateLimitByIP(config)(okHandler)

		for range 2 {
			require.Equal(t, http.StatusOK, serve(h, "192.168.1.1:12345").Code)
		}
		require.Equal(t, http.StatusTooManyRequests, serve(h, "192.168.1.1:12345").Code)
		require.Equal(t, http.StatusOK, serve(h, "192.168.1.2:12345").Code)
	})

	t.Run("allows request when key extractor returns empty", func(t *testing.T) {
		config := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		h := httpx.RateLimitMiddleware(config, func(*http.Request) string { return "" })(okHandler)

		for range 3 {
			require.Equal(t, http.StatusOK, serve(h, "192.168.1.1:12345").Code)
		}
	})

	t.Run("reports rejections", func(t *testing.T) {
		var got []string
		httpx.OnRateLimited = func(profile string) { got = append(got, profile) }
		t.Cleanup(func() { httpx.OnRateLimited = nil })

		config := httpx.RateLimitConfig{Name: "strict", RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		h := httpx.RateLimitByIP(config)(okHandler)
		serve(h, "10.1.1.1:1")
		serve(h, "10.1.1.1:1")

		require.Equal(t, []string{"strict"}, got)
	})
}

func TestRateLimitByIPAndJSONField(t *testing.T) {
	config := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}

	var seen []string
	h := httpx.RateLimitByIPAndJSONField(config, "email")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = append(seen, gjson.GetBytes(b, "email").String())
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(email string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, jsonRequest(`{"email":"`+email+`"}`, "192.168.1.1:12345"))
		return rec.Code
	}

	require.Equal(t, http.StatusOK, serve("alice@example.com"))
	require.Equal(t, http.StatusOK, serve("alice@example.com"))
	require.Equal(t, http.StatusTooManyRequests, serve("alice@example.com"))
	require.Equal(t, http.StatusOK, serve("bob@example.com"))

	require.Equal(t, []string{"alice@example.com", "alice@example.com", "bob@example.com"}, seen, "handler still sees the body")
}

func TestParseRateLimitFromEnv(t *testing.T) {
	t.Setenv("RATELIMIT_TEST_REQUESTS", "7")
	t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "30")
	t.Setenv("RATELIMIT_TEST_BURST", "-1")

	got := httpx.ParseRateLimitFromEnv("TEST", httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 3})
	require.Equal(t, 7, got.RequestsPerWindow)
	require.Equal(t, 30*time.Second, got.Window)
	require.Equal(t, 3, got.Burst, "invalid override ignored")
}

func TestRateLimitProfiles(t *testing.T) {
	for _, config := range []httpx.RateLimitConfig{httpx.StrictLimit, httpx.ModerateLimit, httpx.LenientLimit} {
		t.Run(config.Name, func(t *testing.T) {
			require.Positive(t, config.RequestsPerWindow)
			require.Positive(t, config.Window)
			require.Positive(t, config.Burst)
		})
	}

	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
}

func BenchmarkRateLimitMiddleware(b *testing.B) {
	config := httpx.RateLimitConfig{RequestsPerWindow: 1000000, Window: time.Minute, Burst: 1000}
	h := httpx.RateLimitByIP(config)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	b.ResetTimer()
	for b.Loop() {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
