package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aussiebroadwan/congregation/internal/auth/service"
	"github.com/aussiebroadwan/congregation/pkg/jwtx"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"

	LedgerSQLite = "sqlite"
	LedgerRedis  = "redis"

	MailLog  = "log"
	MailSMTP = "smtp"
)

type Config struct {
	Env                  string        `env:"ENV" envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                 int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
	StoreTimeout         time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	AllowedOrigins       []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	Issuer        string `env:"AUTH_ISSUER" envDefault:"congregation-auth"`
	DatabaseFile  string `env:"AUTH_DATABASE_FILE" envDefault:"auth.db"`
	PepperFile    string `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`
	JWTSecret     string `env:"AUTH_JWT_SECRET"`
	JWTSecretFile string `env:"AUTH_JWT_SECRET_FILE"`

	AccessTTL  time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"AUTH_REFRESH_TTL" envDefault:"168h"`
	ResetTTL   time.Duration `env:"AUTH_RESET_TTL" envDefault:"1h"`

	// GoogleClientIDs lists accepted audiences. Empty disables Google sign-in.
	GoogleClientIDs   []string      `env:"AUTH_GOOGLE_CLIENT_IDS" envSeparator:","`
	GoogleJWKSURL     string        `env:"AUTH_GOOGLE_JWKS_URL"`
	GoogleJWKSTimeout time.Duration `env:"AUTH_GOOGLE_JWKS_TIMEOUT" envDefault:"5s"`
	GoogleLinkPolicy  string        `env:"AUTH_GOOGLE_LINK_POLICY" envDefault:"confirm"`

	ResetLedger   string `env:"AUTH_RESET_LEDGER" envDefault:"sqlite"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	MailDriver  string `env:"MAIL_DRIVER" envDefault:"log"`
	MailFrom    string `env:"MAIL_FROM" envDefault:"Congregation <no-reply@localhost>"`
	SMTPHost    string `env:"SMTP_HOST"`
	SMTPPort    int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser    string `env:"SMTP_USER"`
	SMTPPass    string `env:"SMTP_PASS"`
	SMTPSecure  bool   `env:"SMTP_SECURE" envDefault:"false"`
}

// LoadConfig reads envFile when given (a missing default .env is fine), then
// parses the environment and validates the result.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.ResetLedger = strings.ToLower(strings.TrimSpace(c.ResetLedger))
	c.MailDriver = strings.ToLower(strings.TrimSpace(c.MailDriver))
	c.FrontendURL = strings.TrimRight(c.FrontendURL, "/")

	ids := c.GoogleClientIDs[:0]
	for _, id := range c.GoogleClientIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	c.GoogleClientIDs = ids
}

func (c Config) IsProduction() bool { return c.Env == EnvProd }

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.IsProduction() && c.JWTSecret == "" && c.JWTSecretFile == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET or AUTH_JWT_SECRET_FILE is required in production"))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < jwtx.MinSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes", jwtx.MinSecretLength))
	}

	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.ResetTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	} else if c.AccessTTL >= c.RefreshTTL {
		errs = append(errs, errors.New("AUTH_ACCESS_TTL must be shorter than AUTH_REFRESH_TTL"))
	}

	switch c.ResetLedger {
	case LedgerSQLite:
	case LedgerRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when AUTH_RESET_LEDGER=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_RESET_LEDGER must be %q or %q, got %q", LedgerSQLite, LedgerRedis, c.ResetLedger))
	}

	if _, err := service.ParseLinkPolicy(c.GoogleLinkPolicy); err != nil {
		errs = append(errs, fmt.Errorf("AUTH_GOOGLE_LINK_POLICY: %w", err))
	}

	switch c.MailDriver {
	case MailLog:
	case MailSMTP:
		if c.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required when MAIL_DRIVER=smtp"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_DRIVER must be %q or %q, got %q", MailLog, MailSMTP, c.MailDriver))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}

	return errors.Join(errs...)
}

// Secret returns the HMAC signing secret from AUTH_JWT_SECRET or the file
// named by AUTH_JWT_SECRET_FILE. An empty result means none was configured.
func (c Config) Secret() ([]byte, error) {
	if c.JWTSecret != "" {
		return []byte(c.JWTSecret), nil
	}
	if c.JWTSecretFile == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(c.JWTSecretFile)
	if err != nil {
		return nil, fmt.Errorf("reading AUTH_JWT_SECRET_FILE: %w", err)
	}
	secret := []byte(strings.TrimSpace(string(raw)))
	if len(secret) < jwtx.MinSecretLength {
		return nil, jwtx.ErrWeakSecret
	}
	return secret, nil
}
