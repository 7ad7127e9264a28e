package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/joinkeeper/internal/config"
)

const validToken = "123456789:AAFakeTokenForTestsOnly_abcdefghijk"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"TELEGRAM_BOT_TOKEN", "PRODUCTION", "RENDER", "WEBHOOK_URL", "WEBHOOK_SECRET",
		"PORT", "DATABASE_PATH", "LOG_LEVEL", "LOG_JSON", "SENTRY_DSN", "SENTRY_ENVIRONMENT",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: config.ErrMissingToken},
		{name: "placeholder", token: config.PlaceholderToken, want: config.ErrMissingToken},
		{name: "no colon", token: "123456789AAFakeTokenForTestsOnly_abcdefghijk", want: config.ErrInvalidToken},
		{name: "too short", token: "123:ABC", want: config.ErrInvalidToken},
		{name: "valid", token: validToken, want: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := config.ValidateToken(tt.token)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", validToken)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, validToken, cfg.Telegram.Token)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, config.DefaultApprovalDelay, cfg.Approval.Delay)
	assert.True(t, cfg.Approval.NotifyAdmins)
	assert.Equal(t, config.DefaultWelcome, cfg.Messages.Welcome)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "development", cfg.Mode())

	require.Contains(t, cfg.Scheduler.Tasks, config.TaskHourlyStats)
	assert.Equal(t, time.Hour, cfg.Scheduler.Tasks[config.TaskHourlyStats].Interval)
	assert.Equal(t, 8*time.Hour, cfg.Scheduler.Tasks[config.TaskDailyStats].Interval)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Tasks[config.TaskPendingSweep].Interval)
	assert.Equal(t, "0 0 4 * * *", cfg.Scheduler.Tasks[config.TaskSQLMaintenance].Schedule)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", validToken)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
approval:
  delay: 90s
  notify_admins: false
messages:
  welcome: "Hello there"
database:
  path: /tmp/custom.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Approval.Delay)
	assert.False(t, cfg.Approval.NotifyAdmins)
	assert.Equal(t, "Hello there", cfg.Messages.Welcome)
	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
}

func TestLoad_MissingToken(t *testing.T) {
	clearEnv(t)

	_, err := config.Load("")
	assert.ErrorIs(t, err, config.ErrMissingToken)
}

func TestLoad_ProductionRequiresWebhookURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", validToken)
	t.Setenv("RENDER", "true")

	_, err := config.Load("")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	t.Setenv("WEBHOOK_URL", "https://example.onrender.com/webhook")
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "production", cfg.Mode())
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEBHOOK_SECRET", "from-process")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TELEGRAM_BOT_TOKEN=\"from-file\"\nWEBHOOK_SECRET=from-file\n"), 0o600))

	require.NoError(t, config.LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("TELEGRAM_BOT_TOKEN"))
	assert.Equal(t, "from-process", os.Getenv("WEBHOOK_SECRET"))
	os.Unsetenv("TELEGRAM_BOT_TOKEN")

	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestRedactToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "123456789:...", config.RedactToken(validToken))
	assert.Equal(t, "***", config.RedactToken("short"))
}
