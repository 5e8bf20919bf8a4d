package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/congregation/internal/auth/http"
	"github.com/aussiebroadwan/congregation/internal/auth/identity"
	"github.com/aussiebroadwan/congregation/internal/auth/mail"
	"github.com/aussiebroadwan/congregation/internal/auth/metrics"
	"github.com/aussiebroadwan/congregation/internal/auth/service"
	"github.com/aussiebroadwan/congregation/internal/auth/store"
	redisstore "github.com/aussiebroadwan/congregation/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/congregation/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/congregation/pkg/cryptox"
	"github.com/aussiebroadwan/congregation/pkg/httpx"
	"github.com/aussiebroadwan/congregation/pkg/jwtx"
	"github.com/aussiebroadwan/congregation/pkg/slogx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application owns the auth service and its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      *sqlite.Store
	redis   goredis.UniversalClient
	ledger  store.ResetLedger
	google  *identity.GoogleVerifier
	mailer  mail.Mailer
	metrics *metrics.Metrics

	tokens       *service.TokenService
	accounts     *service.AccountService
	housekeeping *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "congregation-auth",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New wires every dependency. Nothing listens until Run.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{cfg: cfg, logger: NewLogger(cfg)}
	slog.SetDefault(app.logger)

	if err := cryptox.LoadPepper(cfg.PepperFile); err != nil {
		return nil, err
	}

	secret, err := app.signingSecret()
	if err != nil {
		return nil, err
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initLedger(ctx); err != nil {
		app.closeStores()
		return nil, err
	}

	if err := app.initServices(secret); err != nil {
		app.closeStores()
		return nil, err
	}
	app.initHTTP(secret)

	return app, nil
}

func (app *Application) signingSecret() ([]byte, error) {
	secret, err := app.cfg.Secret()
	if err != nil {
		return nil, err
	}
	if secret != nil {
		return secret, nil
	}
	if app.cfg.IsProduction() {
		return nil, errors.New("no signing secret configured")
	}

	// Dev only: tokens stop verifying after a restart.
	ephemeral, err := cryptox.GenerateToken(cryptox.TokenSize512)
	if err != nil {
		return nil, err
	}
	app.logger.Warn("AUTH_JWT_SECRET not set, using an ephemeral signing secret")
	return []byte(ephemeral), nil
}

// OpenStore opens the configured database and applies migrations, retrying
// the initial ping while the volume settles.
func OpenStore(ctx context.Context, cfg Config, logger *slog.Logger) (*sqlite.Store, error) {
	db, err := sqlite.NewStore(cfg.DatabaseFile)
	if err != nil {
		return nil, oops.In("app").Code("DB_OPEN_FAILED").With("path", cfg.DatabaseFile).Wrap(err)
	}

	if err := waitFor(ctx, logger, "database", db.Ping); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, oops.In("app").Code("MIGRATION_FAILED").Wrap(err)
	}
	return db, nil
}

func (app *Application) initDatabase(ctx context.Context) error {
	db, err := OpenStore(ctx, app.cfg, app.logger)
	if err != nil {
		return err
	}
	app.db = db
	app.logger.Info("database ready", slog.String("path", app.cfg.DatabaseFile))
	return nil
}

func (app *Application) initLedger(ctx context.Context) error {
	if app.cfg.ResetLedger != LedgerRedis {
		// Consumed reset tokens live in the accounts database.
		return nil
	}

	app.redis = goredis.NewClient(&goredis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})
	ledger := redisstore.NewLedger(app.redis)
	if err := waitFor(ctx, app.logger, "redis", ledger.Ping); err != nil {
		return err
	}
	app.ledger = ledger
	app.logger.Info("redis reset ledger ready", slog.String("addr", app.cfg.RedisAddr))
	return nil
}

// waitFor retries ping with exponential backoff for about half a minute.
func waitFor(ctx context.Context, logger *slog.Logger, name string, ping func(context.Context) error) error {
	backoff := retry.WithMaxRetries(6, retry.NewExponential(250*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := ping(pingCtx); err != nil {
			logger.Warn("dependency not ready", slog.String("dependency", name), slog.Any("error", err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.In("app").Code("DEPENDENCY_UNAVAILABLE").With("dependency", name).Wrap(err)
	}
	return nil
}

func (app *Application) initServices(secret []byte) error {
	signer, err := jwtx.NewHS256Signer(secret, app.cfg.Issuer)
	if err != nil {
		return err
	}
	verifier := jwtx.NewHS256Verifier(secret, app.cfg.Issuer)

	policy, err := service.ParseLinkPolicy(app.cfg.GoogleLinkPolicy)
	if err != nil {
		return err
	}

	app.metrics = metrics.New()
	httpx.OnRateLimited = app.metrics.RateLimited

	app.mailer = app.newMailer()

	// Without client ids every assertion is rejected as invalid.
	app.google = identity.NewGoogleVerifier(identity.GoogleConfig{
		ClientIDs: app.cfg.GoogleClientIDs,
		JWKSURL:   app.cfg.GoogleJWKSURL,
		Timeout:   app.cfg.GoogleJWKSTimeout,
	})
	if !app.google.Enabled() {
		app.logger.Info("google sign-in disabled, AUTH_GOOGLE_CLIENT_IDS is empty")
	}

	app.tokens = &service.TokenService{
		Store:        app.db,
		Signer:       signer,
		Verifier:     verifier,
		AccessTTL:    app.cfg.AccessTTL,
		RefreshTTL:   app.cfg.RefreshTTL,
		ResetTTL:     app.cfg.ResetTTL,
		StoreTimeout: app.cfg.StoreTimeout,
	}
	app.accounts = &service.AccountService{
		Store:        app.db,
		Tokens:       app.tokens,
		Mailer:       app.mailer,
		Ledger:       app.ledger,
		LinkPolicy:   policy,
		Metrics:      app.metrics,
		StoreTimeout: app.cfg.StoreTimeout,
	}

	app.housekeeping = service.NewHousekeepingService(app.db, app.logger, app.cfg.HousekeepingInterval)
	return nil
}

func (app *Application) newMailer() mail.Mailer {
	var sender mail.Sender = mail.LogSender{}
	if app.cfg.MailDriver == MailSMTP {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:   app.cfg.SMTPHost,
			Port:   app.cfg.SMTPPort,
			User:   app.cfg.SMTPUser,
			Pass:   app.cfg.SMTPPass,
			Secure: app.cfg.SMTPSecure,
		})
	}
	app.logger.Info("mail driver configured", slog.String("driver", app.cfg.MailDriver))
	return mail.NewTemplateMailer(sender, app.cfg.MailFrom, app.cfg.FrontendURL)
}

func (app *Application) initHTTP(secret []byte) {
	access := jwtx.PurposeVerifier{
		HS256Verifier: jwtx.NewHS256Verifier(secret, app.cfg.Issuer),
		Purpose:       jwtx.PurposeAccess,
	}

	router := httpapi.NewRouter(access, BuildVersion, app.db, app.logger, app.metrics, app.cfg.AllowedOrigins)
	router.Accounts = app.accounts
	router.Tokens = app.tokens
	router.Dev = !app.cfg.IsProduction()

	router.Google = app.google
	if app.google.Enabled() {
		router.Readiness.GoogleEnabled = true
		router.Readiness.GoogleReady = app.google.Ready
	}
	if app.redis != nil {
		router.Readiness.Ledger = func(ctx context.Context) error { return app.redis.Ping(ctx).Err() }
	}
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Handler exposes the router, mostly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run serves until ctx is cancelled, SIGINT/SIGTERM arrives or the listener
// fails, then shuts down.
func (app *Application) Run(ctx context.Context) error {
	app.housekeeping.Start()

	app.logger.Info("auth service starting", slog.Int("port", app.cfg.Port), slog.String("version", BuildVersion))

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		_ = app.Shutdown()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// Shutdown drains requests, stops housekeeping and closes stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slog.Any("error", err))
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", slog.Any("error", err))
		}
	}

	app.housekeeping.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}
	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
