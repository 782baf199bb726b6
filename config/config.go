package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Provider ProviderConfig `mapstructure:"provider"`
	Charge   ChargeConfig   `mapstructure:"charge"`
	EventLog EventLogConfig `mapstructure:"eventlog"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Report   ReportConfig   `mapstructure:"report"`
	Events   EventsConfig   `mapstructure:"events"`
	Forward  ForwardConfig  `mapstructure:"forward"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

type WebhookConfig struct {
	Secret          string   `mapstructure:"secret"`
	VerifySignature bool     `mapstructure:"verify_signature"`
	SignatureHeader string   `mapstructure:"signature_header"`
	Providers       []string `mapstructure:"providers"`
	// UnrecognizedStatus is the HTTP status answered for event types outside the handled set.
	UnrecognizedStatus int `mapstructure:"unrecognized_status"`
}

type ProviderConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ChargeConfig struct {
	ProductPrice     int64         `mapstructure:"product_price"`
	ProductName      string        `mapstructure:"product_name"`
	Description      string        `mapstructure:"description"`
	ExpiresIn        time.Duration `mapstructure:"expires_in"`
	ExternalIDPrefix string        `mapstructure:"external_id_prefix"`
	StatusTTL        time.Duration `mapstructure:"status_ttl"`
}

type EventLogConfig struct {
	Path string `mapstructure:"path"`
}

type MonitorConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinInterval time.Duration `mapstructure:"min_interval"`
}

type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Timezone  string `mapstructure:"timezone"`
}

// Location resolves the configured report timezone.
func (r ReportConfig) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(r.Timezone)
}

type EventsConfig struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ForwardConfig controls relaying recorded events to a downstream system.
type ForwardConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	URL             string        `mapstructure:"url"`
	Secret          string        `mapstructure:"secret"`
	SignatureHeader string        `mapstructure:"signature_header"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type ArchiveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	EndpointURL     string `mapstructure:"endpoint_url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Prefix          string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from the .env file, the config file and environment variables.
// Environment variables override file values. Prefix: PIX_.
// Nested keys use underscore: PIX_WEBHOOK_SECRET, PIX_PROVIDER_API_KEY, etc.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("PIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by the provider's own tooling.
	_ = v.BindEnv("provider.api_key", "PIX_PROVIDER_API_KEY", "ABACATEPAY_API_KEY")
	_ = v.BindEnv("webhook.secret", "PIX_WEBHOOK_SECRET", "WEBHOOK_SECRET")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.verify_signature", true)
	v.SetDefault("webhook.signature_header", "X-Webhook-Signature")
	v.SetDefault("webhook.providers", []string{"abacatepay"})
	v.SetDefault("webhook.unrecognized_status", 400)
	v.SetDefault("provider.base_url", "https://api.abacatepay.com/v1")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.timeout", "30s")
	v.SetDefault("charge.product_price", 34700)
	v.SetDefault("charge.product_name", "PrescrevaMe Premium")
	v.SetDefault("charge.description", "PrescrevaMe Premium subscription")
	v.SetDefault("charge.expires_in", "15m")
	v.SetDefault("charge.external_id_prefix", "prescreva-me-")
	v.SetDefault("charge.status_ttl", "24h")
	v.SetDefault("eventlog.path", "data/payment_events.jsonl")
	v.SetDefault("monitor.interval", "5s")
	v.SetDefault("monitor.max_attempts", 100)
	v.SetDefault("monitor.min_interval", "1s")
	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("report.timezone", "UTC")
	v.SetDefault("events.workers", 4)
	v.SetDefault("events.queue_size", 256)
	v.SetDefault("events.timeout", "10s")
	v.SetDefault("forward.enabled", false)
	v.SetDefault("forward.url", "")
	v.SetDefault("forward.secret", "")
	v.SetDefault("forward.signature_header", "X-Webhook-Signature")
	v.SetDefault("forward.max_attempts", 3)
	v.SetDefault("forward.retry_backoff", "1s")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "pix-reconciler")
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.prefix", "reports")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// loadDotEnv exports variables from PIX_ENV_FILE (default .env) without
// overriding variables that are already set.
func loadDotEnv() error {
	file := os.Getenv("PIX_ENV_FILE")
	if file == "" {
		file = ".env"
	}
	if err := godotenv.Load(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", file, err)
	}
	return nil
}

// Validate rejects configurations the services cannot run safely with.
func (c *Config) Validate() error {
	var errs []error

	if c.Webhook.VerifySignature && c.Webhook.Secret == "" {
		errs = append(errs, errors.New("webhook.secret is required while webhook.verify_signature is enabled"))
	}
	if c.Webhook.UnrecognizedStatus != 200 && c.Webhook.UnrecognizedStatus != 400 {
		errs = append(errs, fmt.Errorf("webhook.unrecognized_status must be 200 or 400, got %d", c.Webhook.UnrecognizedStatus))
	}
	if c.Forward.Enabled {
		if c.Forward.URL == "" {
			errs = append(errs, errors.New("forward.url is required while forward.enabled is set"))
		}
		if c.Forward.MaxAttempts < 1 {
			errs = append(errs, errors.New("forward.max_attempts must be at least 1"))
		}
	}
	errs = append(errs, c.ValidateCore())

	return errors.Join(errs...)
}

// ValidateCore checks the settings shared by the server and pixctl:
// charges, monitoring, the event log and reporting.
func (c *Config) ValidateCore() error {
	var errs []error

	if c.Monitor.MinInterval < 0 {
		errs = append(errs, errors.New("monitor.min_interval must not be negative"))
	}
	if c.Monitor.Interval < c.Monitor.MinInterval {
		errs = append(errs, fmt.Errorf("monitor.interval %s is below monitor.min_interval %s", c.Monitor.Interval, c.Monitor.MinInterval))
	}
	if c.Monitor.MaxAttempts < 1 {
		errs = append(errs, errors.New("monitor.max_attempts must be at least 1"))
	}
	if c.Charge.ProductPrice <= 0 {
		errs = append(errs, errors.New("charge.product_price must be positive"))
	}
	if c.EventLog.Path == "" {
		errs = append(errs, errors.New("eventlog.path is required"))
	}
	if _, err := c.Report.Location(); err != nil {
		errs = append(errs, fmt.Errorf("report.timezone: %w", err))
	}

	return errors.Join(errs...)
}
