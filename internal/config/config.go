// Package config provides configuration loading, validation, and management
// for joinkeeper. Values come from built-in defaults, an optional YAML file and
// the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PlaceholderToken is the value shipped in example .env files.
const PlaceholderToken = "your_bot_token_here"

// Config defines the application configuration parameters.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"    yaml:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"  yaml:"telegram"`
	Server    ServerConfig    `mapstructure:"server"    yaml:"server"`
	Approval  ApprovalConfig  `mapstructure:"approval"  yaml:"approval"`
	Messages  MessagesConfig  `mapstructure:"messages"  yaml:"messages"`
	Database  DatabaseConfig  `mapstructure:"database"  yaml:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Sentry    SentryConfig    `mapstructure:"sentry"    yaml:"sentry"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"  yaml:"json"`
}

// TelegramConfig holds Bot API credentials and the update delivery mode.
type TelegramConfig struct {
	Token              string `mapstructure:"token"                yaml:"token"`
	Production         bool   `mapstructure:"production"           yaml:"production"`
	Render             bool   `mapstructure:"render"               yaml:"render"`
	WebhookURL         string `mapstructure:"webhook_url"          yaml:"webhook_url"          validate:"omitempty,url"`
	WebhookSecret      string `mapstructure:"webhook_secret"       yaml:"webhook_secret"`
	DropPendingUpdates bool   `mapstructure:"drop_pending_updates" yaml:"drop_pending_updates"`
}

// ServerConfig holds the HTTP listener used for webhooks, health and metrics.
type ServerConfig struct {
	Port              int           `mapstructure:"port"                yaml:"port"                validate:"min=0,max=65535"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"min=1s"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    yaml:"shutdown_timeout"    validate:"min=1s"`
	// PollingListen keeps the health and metrics endpoints up in polling mode.
	PollingListen bool `mapstructure:"polling_listen" yaml:"polling_listen"`
}

// ApprovalConfig controls automatic approval of join requests.
type ApprovalConfig struct {
	Delay        time.Duration `mapstructure:"delay"         yaml:"delay"         validate:"min=0"`
	NotifyAdmins bool          `mapstructure:"notify_admins" yaml:"notify_admins"`
}

// MessagesConfig holds user-facing texts.
type MessagesConfig struct {
	Welcome        string `mapstructure:"welcome"         yaml:"welcome"         validate:"required"`
	StatsForbidden string `mapstructure:"stats_forbidden" yaml:"stats_forbidden" validate:"required"`
	Start          string `mapstructure:"start"           yaml:"start"           validate:"required"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" yaml:"tasks" validate:"dive"`
}

// TaskConfig describes one periodic task. Interval wins over Schedule when both are set.
type TaskConfig struct {
	Enabled  bool          `mapstructure:"enabled"  yaml:"enabled"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"min=0"`
	Schedule string        `mapstructure:"schedule" yaml:"schedule"`
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN         string `mapstructure:"dsn"         yaml:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// IsProduction reports whether the bot should receive updates through a webhook.
func (c *Config) IsProduction() bool {
	return c.Telegram.Production || c.Telegram.Render
}

// Mode returns a human readable name of the delivery mode.
func (c *Config) Mode() string {
	if c.IsProduction() {
		return "production"
	}
	return "development"
}

// envBindings lists the well-known variable names accepted besides JOINKEEPER_*.
var envBindings = map[string][]string{
	"telegram.token":          {"TELEGRAM_BOT_TOKEN"},
	"telegram.production":     {"PRODUCTION"},
	"telegram.render":         {"RENDER"},
	"telegram.webhook_url":    {"WEBHOOK_URL"},
	"telegram.webhook_secret": {"WEBHOOK_SECRET"},
	"server.port":             {"PORT"},
	"database.path":           {"DATABASE_PATH"},
	"logger.level":            {"LOG_LEVEL"},
	"logger.json":             {"LOG_JSON"},
	"sentry.dsn":              {"SENTRY_DSN"},
	"sentry.environment":      {"SENTRY_ENVIRONMENT"},
}

// LoadDotEnv loads variables from a .env file without overriding ones already
// present in the environment. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("dotenv file not found, using process environment only", "path", p)
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
		slog.Debug("dotenv file loaded", "path", p)
	}
	return nil
}

// Read builds the configuration from defaults, the optional file at path and
// the environment without validating it.
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("JOINKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			slog.Debug("configuration file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)

	return cfg, nil
}

// Load reads and validates the configuration.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints, the bot token and mode-specific requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := ValidateToken(c.Telegram.Token); err != nil {
		return err
	}
	if c.IsProduction() {
		if c.Telegram.WebhookURL == "" {
			return fmt.Errorf("%w: WEBHOOK_URL is required in production mode", ErrInvalidConfig)
		}
		u, err := url.Parse(c.Telegram.WebhookURL)
		if err != nil || u.Scheme != "https" {
			return fmt.Errorf("%w: WEBHOOK_URL must be an https URL", ErrInvalidConfig)
		}
	}
	for name, task := range c.Scheduler.Tasks {
		if task.Enabled && task.Interval == 0 && task.Schedule == "" {
			return fmt.Errorf("%w: task %q is enabled without interval or schedule", ErrInvalidConfig, name)
		}
	}
	return nil
}

// RedactedToken returns the first ten characters of the token for logging.
func (c *Config) RedactedToken() string {
	return RedactToken(c.Telegram.Token)
}

// RedactToken shortens a token to a loggable prefix.
func RedactToken(token string) string {
	if len(token) <= 10 {
		return "***"
	}
	return token[:10] + "..."
}
