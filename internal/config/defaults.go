package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultLogLevel = "info"

	DefaultPort              = 8080
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second

	DefaultApprovalDelay = 10 * time.Minute
	DefaultDBPath        = "joinkeeper.db"

	DefaultWelcome        = "🎉 Добро пожаловать в нашу группу!"
	DefaultStatsForbidden = "🚫 Статистика доступна только администраторам отслеживаемых чатов."
	DefaultStart          = "👋 Я автоматически одобряю заявки на вступление и присылаю администраторам статистику. Команда /stats покажет текущие цифры."

	// Minimum length of a plausible Bot API token ("<id>:<secret>").
	MinTokenLength = 35
)

// Task names understood by the scheduler.
const (
	TaskHourlyStats    = "hourly_stats"
	TaskDailyStats     = "daily_stats"
	TaskPendingSweep   = "pending_sweep"
	TaskSQLMaintenance = "sql_maintenance"
)

var (
	// ErrInvalidConfig marks configuration that cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrMissingToken is returned when no bot token is configured.
	ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN is not set")
	// ErrInvalidToken is returned when the token does not look like a Bot API token.
	ErrInvalidToken = errors.New("telegram bot token has an invalid format")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.production", false)
	v.SetDefault("telegram.render", false)
	v.SetDefault("telegram.webhook_url", "")
	v.SetDefault("telegram.webhook_secret", "")
	v.SetDefault("telegram.drop_pending_updates", true)

	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.read_header_timeout", DefaultReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("server.polling_listen", false)

	v.SetDefault("approval.delay", DefaultApprovalDelay)
	v.SetDefault("approval.notify_admins", true)

	v.SetDefault("messages.welcome", DefaultWelcome)
	v.SetDefault("messages.stats_forbidden", DefaultStatsForbidden)
	v.SetDefault("messages.start", DefaultStart)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("scheduler.tasks", map[string]any{
		TaskHourlyStats:    map[string]any{"enabled": true, "interval": time.Hour},
		TaskDailyStats:     map[string]any{"enabled": true, "interval": 8 * time.Hour},
		TaskPendingSweep:   map[string]any{"enabled": true, "interval": 15 * time.Minute},
		TaskSQLMaintenance: map[string]any{"enabled": true, "schedule": "0 0 4 * * *"},
	})

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "")
}

// ValidateToken checks that a bot token is set, is not the example
// placeholder and looks like "<bot id>:<secret>".
func ValidateToken(token string) error {
	if token == "" || token == PlaceholderToken {
		return ErrMissingToken
	}
	if !strings.Contains(token, ":") || len(token) < MinTokenLength {
		return ErrInvalidToken
	}
	return nil
}
