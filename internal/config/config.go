package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Collection   CollectionConfig
	Twilio       TwilioConfig
	AMQP         AMQPConfig
	Reminder     ReminderConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `envconfig:"APP_NAME" default:"chama-service"`
	Env                   string `envconfig:"APP_ENV" default:"development"`
	Host                  string `envconfig:"APP_HOST" default:"0.0.0.0"`
	Port                  string `envconfig:"APP_PORT" default:"8080"`
	Version               string `envconfig:"APP_VERSION" default:"dev"`
	Timezone              string `envconfig:"APP_TIMEZONE" default:"Africa/Nairobi"`
	RequestTimeoutSeconds int    `envconfig:"HTTP_REQUEST_TIMEOUT_SECONDS" default:"30"`
}

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory store.
type PostgresConfig struct {
	DSN            string `envconfig:"POSTGRES_DSN"`
	MaxConns       int32  `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
	MinConns       int32  `envconfig:"POSTGRES_MIN_CONNS" default:"2"`
	RunMigrations  bool   `envconfig:"POSTGRES_RUN_MIGRATIONS" default:"true"`
	ConnMaxIdleSec int32  `envconfig:"POSTGRES_CONN_MAX_IDLE_SECONDS" default:"30"`
	ConnMaxLifeSec int32  `envconfig:"POSTGRES_CONN_MAX_LIFE_SECONDS" default:"300"`
}

// RedisConfig holds Redis connection values. An empty address disables Redis.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEVELOPMENT" default:"false"`
	// Service is copied from APP_NAME after loading.
	Service string `ignored:"true"`
}

// AuthConfig defines administrator authentication parameters.
type AuthConfig struct {
	JWTSecret             string `envconfig:"AUTH_JWT_SECRET" default:"dev-secret"`
	AccessTokenTTLMinutes int    `envconfig:"AUTH_ACCESS_TOKEN_TTL_MINUTES" default:"60"`
	AdminUsername         string `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPasswordHash     string `envconfig:"ADMIN_PASSWORD_HASH"`
}

// CollectionConfig seeds cycle settings when none are stored yet.
type CollectionConfig struct {
	DefaultAmount string `envconfig:"COLLECTION_DEFAULT_AMOUNT" default:"1000"`
	Currency      string `envconfig:"COLLECTION_CURRENCY" default:"KSh"`
}

// TwilioConfig holds WhatsApp channel credentials.
type TwilioConfig struct {
	AccountSID       string `envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken        string `envconfig:"TWILIO_AUTH_TOKEN"`
	WhatsAppNumber   string `envconfig:"TWILIO_WHATSAPP_NUMBER" default:"+14155238886"`
	ValidateWebhook  bool   `envconfig:"TWILIO_VALIDATE_WEBHOOK" default:"false"`
	WebhookPublicURL string `envconfig:"TWILIO_WEBHOOK_PUBLIC_URL"`
}

// AMQPConfig configures queued reminder delivery. An empty URL sends inline.
type AMQPConfig struct {
	URL      string `envconfig:"AMQP_URL"`
	Exchange string `envconfig:"AMQP_EXCHANGE" default:"chama"`
	Queue    string `envconfig:"AMQP_REMINDER_QUEUE" default:"chama.reminders"`
}

// ReminderConfig controls the scheduled reminder sweep.
type ReminderConfig struct {
	Hour       int           `envconfig:"REMINDER_HOUR" default:"9"`
	Minute     int           `envconfig:"REMINDER_MINUTE" default:"0"`
	LockKey    string        `envconfig:"REMINDER_LOCK_KEY" default:"chama:reminders:lock"`
	LockTTL    time.Duration `envconfig:"REMINDER_LOCK_TTL" default:"1h"`
	SendPacing time.Duration `envconfig:"REMINDER_SEND_PACING" default:"1s"`
}

// NotificationConfig toggles event-driven member notifications.
type NotificationConfig struct {
	SendReceipts bool `envconfig:"NOTIFY_PAYMENT_RECEIPTS" default:"false"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Logger.Service = cfg.App.Name
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	if _, err := decimal.NewFromString(c.Collection.DefaultAmount); err != nil {
		return fmt.Errorf("invalid COLLECTION_DEFAULT_AMOUNT: %w", err)
	}
	if c.Reminder.Hour < 0 || c.Reminder.Hour > 23 {
		return fmt.Errorf("invalid REMINDER_HOUR: %d", c.Reminder.Hour)
	}
	if c.Reminder.Minute < 0 || c.Reminder.Minute > 59 {
		return fmt.Errorf("invalid REMINDER_MINUTE: %d", c.Reminder.Minute)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// Location returns the reference time zone used for calendar-month boundaries.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// DefaultAmountDecimal returns the parsed fallback per-member amount.
func (c CollectionConfig) DefaultAmountDecimal() decimal.Decimal {
	amount, err := decimal.NewFromString(c.DefaultAmount)
	if err != nil {
		return decimal.NewFromInt(1000)
	}
	return amount
}

// Enabled reports whether Twilio credentials are present.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != ""
}
