package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/congregation/internal/auth/domain"
	"github.com/aussiebroadwan/congregation/internal/auth/identity"
	"github.com/aussiebroadwan/congregation/internal/auth/metrics"
	"github.com/aussiebroadwan/congregation/internal/auth/service"
	"github.com/aussiebroadwan/congregation/internal/auth/store"
	"github.com/aussiebroadwan/congregation/pkg/httpx"
	"github.com/aussiebroadwan/congregation/pkg/jwtx"
	"github.com/aussiebroadwan/congregation/pkg/slogx"

	_ "github.com/aussiebroadwan/congregation/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Limits are the rate limit profiles applied per route class.
type Limits struct {
	// Credentials guards endpoints that take a password or email, keyed by
	// IP and email.
	Credentials httpx.RateLimitConfig
	// Authenticated is keyed by account.
	Authenticated httpx.RateLimitConfig
	// Public covers cheap unauthenticated reads.
	Public httpx.RateLimitConfig
}

func DefaultLimits() Limits {
	return Limits{
		Credentials:   httpx.StrictLimit,
		Authenticated: httpx.ModerateLimit,
		Public:        httpx.LenientLimit,
	}
}

// Readiness probes optional dependencies for /readyz.
type Readiness struct {
	// Ledger pings a reset ledger kept outside the database.
	Ledger func(ctx context.Context) error
	// GoogleEnabled and GoogleReady describe the Google key cache. A cold
	// cache does not make the service unready.
	GoogleEnabled bool
	GoogleReady   func() bool
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	access       jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics
	store        store.Store

	Accounts  *service.AccountService
	Tokens    *service.TokenService
	Google    identity.Verifier
	Readiness Readiness
	Limits    Limits

	// Dev exposes internal error text in responses.
	Dev bool
}

func NewRouter(
	access jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	m *metrics.Metrics,
	allowedOrigins []string,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		Mux:          http.NewServeMux(),
		access:       access,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		metrics:      m,
		store:        st,
		Limits:       DefaultLimits(),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(allowedOrigins),
		httpx.MaxBody(httpx.DefaultMaxBodyBytes),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerPassword()
	r.registerUsers()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Congregation Authentication Service API
//	@version		0.1.0
//	@description	Account registration, password and Google sign-in, password reset and profile management.
//	@description
//	@description				Access and refresh tokens are HS256 JWTs. Send the access token as "Bearer {token}".
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/congregation
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle registers h behind the route metrics and the given middleware.
func (r *Router) handle(pattern string, h http.Handler, mws ...httpx.Middleware) {
	chain := append([]httpx.Middleware{r.metrics.Instrument(pattern)}, mws...)
	r.Mux.Handle(pattern, httpx.Chain(h, chain...))
}

func (r *Router) errorWriter() ErrorWriter {
	return ErrorWriter{Dev: r.Dev}
}

// authenticated requires an ACCESS token and limits per account.
func (r *Router) authenticated(extra ...httpx.Middleware) []httpx.Middleware {
	return append([]httpx.Middleware{
		httpx.AuthnMiddleware(r.access),
		httpx.RateLimitByAccount(r.Limits.Authenticated),
	}, extra...)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Accounts: r.Accounts,
		Tokens:   r.Tokens,
		Google:   r.Google,
		Errors:   r.errorWriter(),
	}

	// Credential endpoints: strict limit by IP + email against brute force.
	byEmail := httpx.RateLimitByIPAndJSONField(r.Limits.Credentials, "email")
	r.handle("POST /api/v1/auth/register", http.HandlerFunc(h.Register), byEmail)
	r.handle("POST /api/v1/auth/login", http.HandlerFunc(h.Login), byEmail)

	r.handle("POST /api/v1/auth/google", http.HandlerFunc(h.GoogleSignIn),
		httpx.RateLimitByIP(r.Limits.Credentials),
	)
	r.handle("POST /api/v1/auth/google/link", http.HandlerFunc(h.GoogleLink), r.authenticated()...)

	r.handle("POST /api/v1/auth/refresh", http.HandlerFunc(h.Refresh),
		httpx.RateLimitByIP(r.Limits.Authenticated),
	)
	r.handle("GET /api/v1/auth/me", http.HandlerFunc(h.Me), r.authenticated()...)
}

func (r *Router) registerPassword() {
	h := &PasswordHandler{
		Accounts: r.Accounts,
		Errors:   r.errorWriter(),
	}

	r.handle("POST /api/v1/auth/change-password", http.HandlerFunc(h.Change), r.authenticated()...)
	r.handle("POST /api/v1/auth/forgot-password", http.HandlerFunc(h.Forgot),
		httpx.RateLimitByIPAndJSONField(r.Limits.Credentials, "email"),
	)
	r.handle("POST /api/v1/auth/reset-password", http.HandlerFunc(h.Reset),
		httpx.RateLimitByIP(r.Limits.Credentials),
	)
}

func (r *Router) registerUsers() {
	h := &ProfileHandler{
		Accounts: r.Accounts,
		Errors:   r.errorWriter(),
	}

	r.handle("GET /api/v1/users/me", http.HandlerFunc(h.Get), r.authenticated()...)
	r.handle("PATCH /api/v1/users/me", http.HandlerFunc(h.Update), r.authenticated()...)
	r.handle("DELETE /api/v1/users/me", http.HandlerFunc(h.Delete), r.authenticated()...)
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{
		Accounts: r.Accounts,
		Errors:   r.errorWriter(),
	}

	r.handle("GET /api/v1/admin/accounts/{id}", http.HandlerFunc(h.GetAccount),
		r.authenticated(httpx.RequireRole(string(domain.RoleAdmin)))...,
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
		httpx.RateLimitByIP(r.Limits.Public),
	))
	r.Mux.Handle("GET /readyz", httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.Readiness),
		httpx.RateLimitByIP(r.Limits.Public),
	))
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}
