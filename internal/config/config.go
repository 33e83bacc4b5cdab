package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all Restock Guardian configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	SMS      SMSConfig      `mapstructure:"sms"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Slack    SlackConfig    `mapstructure:"slack"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite or postgres
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ServerConfig defines HTTP API settings.
type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AlertsConfig defines low-stock alerting behaviour.
type AlertsConfig struct {
	Transport     string        `mapstructure:"transport"` // twilio, webhook or slack
	Recipients    []string      `mapstructure:"recipients"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	Brand         string        `mapstructure:"brand"`
	WatchInterval time.Duration `mapstructure:"watch_interval"`
}

// SMSConfig defines Twilio settings.
type SMSConfig struct {
	AccountSID string        `mapstructure:"account_sid"`
	AuthToken  string        `mapstructure:"auth_token"`
	From       string        `mapstructure:"from"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Breaker    BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig defines the transport circuit breaker.
type BreakerConfig struct {
	Failures uint          `mapstructure:"failures"`
	Window   uint          `mapstructure:"window"`
	Delay    time.Duration `mapstructure:"delay"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	URL    string `mapstructure:"url"`
	Secret string `mapstructure:"secret"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultsConfig defines default values.
type DefaultsConfig struct {
	Actor string `mapstructure:"actor"`
}

// envAliases binds well-known variable names in addition to the RSG_ ones.
var envAliases = map[string][]string{
	"sms.account_sid":   {"RSG_SMS_ACCOUNT_SID", "TWILIO_ACCOUNT_SID"},
	"sms.auth_token":    {"RSG_SMS_AUTH_TOKEN", "TWILIO_AUTH_TOKEN"},
	"sms.from":          {"RSG_SMS_FROM", "TWILIO_PHONE_NUMBER"},
	"alerts.recipients": {"RSG_ALERTS_RECIPIENTS", "ALERT_RECIPIENTS"},
	"storage.url":       {"RSG_STORAGE_URL", "DATABASE_URL"},
}

// LoadEnv loads variables from the given .env files into the process
// environment. Missing files are skipped; variables already set are kept.
// It returns the files that were loaded.
func LoadEnv(files ...string) ([]string, error) {
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return loaded, fmt.Errorf("load env file %s: %w", file, err)
		}
		loaded = append(loaded, file)
	}
	return loaded, nil
}

// Load reads configuration from .env files, the config file and environment
// variables.
func Load(cfgFile string) (*Config, error) {
	if _, err := LoadEnv(".env", ".env.local"); err != nil {
		return nil, err
	}

	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".rsg"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", filepath.Join(home, ".rsg", "inventory.db"))
	v.SetDefault("storage.max_open_conns", 10)
	v.SetDefault("storage.max_idle_conns", 5)
	v.SetDefault("storage.conn_max_lifetime", "30m")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("alerts.transport", "twilio")
	v.SetDefault("alerts.recipients", []string{})
	v.SetDefault("alerts.cooldown", "30s")
	v.SetDefault("alerts.max_attempts", 3)
	v.SetDefault("alerts.brand", "BobaStop Inventory")
	v.SetDefault("alerts.watch_interval", "1m")
	v.SetDefault("sms.base_url", "https://api.twilio.com")
	v.SetDefault("sms.timeout", "10s")
	v.SetDefault("sms.breaker.failures", 5)
	v.SetDefault("sms.breaker.window", 10)
	v.SetDefault("sms.breaker.delay", "30s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("defaults.actor", "admin")

	// Environment variables
	v.SetEnvPrefix("RSG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Alerts.Recipients = splitRecipients(cfg.Alerts.Recipients)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.driver: unsupported driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.URL == "" {
		return fmt.Errorf("storage.url is required for postgres")
	}
	switch c.Alerts.Transport {
	case "twilio", "webhook", "slack":
	default:
		return fmt.Errorf("alerts.transport: unsupported transport %q", c.Alerts.Transport)
	}
	if c.Alerts.MaxAttempts < 1 {
		return fmt.Errorf("alerts.max_attempts must be at least 1")
	}
	return nil
}

// splitRecipients flattens comma-separated entries and drops blanks.
func splitRecipients(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, r := range strings.Split(entry, ",") {
			if r = strings.TrimSpace(r); r != "" {
				out = append(out, r)
			}
		}
	}
	return out
}
