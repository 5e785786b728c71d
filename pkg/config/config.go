package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Stripe       StripeConfig
	SMTP         SMTPConfig
	Billing      BillingConfig
	Gate         GateConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Stripe.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STRIPEMIRROR_APP_ENV" default:"dev"`
	Port         string `envconfig:"STRIPEMIRROR_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STRIPEMIRROR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STRIPEMIRROR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STRIPEMIRROR_DB_DSN"`
	Driver string `envconfig:"STRIPEMIRROR_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STRIPEMIRROR_DB_HOST"`
	Port     int    `envconfig:"STRIPEMIRROR_DB_PORT" default:"5432"`
	User     string `envconfig:"STRIPEMIRROR_DB_USER"`
	Password string `envconfig:"STRIPEMIRROR_DB_PASSWORD"`
	Name     string `envconfig:"STRIPEMIRROR_DB_NAME"`
	SSLMode  string `envconfig:"STRIPEMIRROR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STRIPEMIRROR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STRIPEMIRROR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STRIPEMIRROR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STRIPEMIRROR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either STRIPEMIRROR_DB_DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"STRIPEMIRROR_REDIS_URL"`
	Address      string        `envconfig:"STRIPEMIRROR_REDIS_ADDR"`
	Password     string        `envconfig:"STRIPEMIRROR_REDIS_PASSWORD"`
	DB           int           `envconfig:"STRIPEMIRROR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STRIPEMIRROR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STRIPEMIRROR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STRIPEMIRROR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STRIPEMIRROR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STRIPEMIRROR_REDIS_WRITE_TIMEOUT" default:"5s"`
	DedupTTL     time.Duration `envconfig:"STRIPEMIRROR_REDIS_DEDUP_TTL" default:"720h"`
}

// StripeConfig carries the Processor credentials and API pinning.
type StripeConfig struct {
	PublicKey      string `envconfig:"STRIPEMIRROR_STRIPE_PUBLIC_KEY"`
	SecretKey      string `envconfig:"STRIPEMIRROR_STRIPE_SECRET_KEY" required:"true"`
	ClientID       string `envconfig:"STRIPEMIRROR_STRIPE_CLIENT_ID"`
	EndpointSecret string `envconfig:"STRIPEMIRROR_STRIPE_ENDPOINT_SECRET"`
	APIVersion     string `envconfig:"STRIPEMIRROR_STRIPE_API_VERSION" default:"2015-10-16"`
}

func (s StripeConfig) validate() error {
	if strings.TrimSpace(s.SecretKey) == "" {
		return fmt.Errorf("stripe secret key is required")
	}
	return nil
}

type SMTPConfig struct {
	Host     string `envconfig:"STRIPEMIRROR_SMTP_HOST"`
	Port     int    `envconfig:"STRIPEMIRROR_SMTP_PORT" default:"587"`
	Username string `envconfig:"STRIPEMIRROR_SMTP_USERNAME"`
	Password string `envconfig:"STRIPEMIRROR_SMTP_PASSWORD"`
}

// BillingConfig holds the policy knobs consumed by actions and hooks.
type BillingConfig struct {
	InvoiceFromEmail       string          `envconfig:"STRIPEMIRROR_INVOICE_FROM_EMAIL" default:"billing@example.com"`
	DefaultPlan            string          `envconfig:"STRIPEMIRROR_DEFAULT_PLAN"`
	HookSet                string          `envconfig:"STRIPEMIRROR_HOOKSET" default:"default"`
	SendEmailReceipts      bool            `envconfig:"STRIPEMIRROR_SEND_EMAIL_RECEIPTS" default:"true"`
	SubscriptionTaxPercent decimal.Decimal `envconfig:"STRIPEMIRROR_SUBSCRIPTION_TAX_PERCENT" default:"0"`
	DocumentMaxSizeKB      int             `envconfig:"STRIPEMIRROR_DOCUMENT_MAX_SIZE_KB" default:"512"`
}

// GateConfig configures the subscription access gate.
type GateConfig struct {
	ExceptionURLs []string `envconfig:"STRIPEMIRROR_SUBSCRIPTION_REQUIRED_EXCEPTION_URLS"`
	RedirectURL   string   `envconfig:"STRIPEMIRROR_SUBSCRIPTION_REQUIRED_REDIRECT" default:"/subscribe"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STRIPEMIRROR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STRIPEMIRROR_AUTO_MIGRATE" default:"false"`
}
