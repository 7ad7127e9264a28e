package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/cobra"

	"github.com/edgard/joinkeeper/internal/bot"
	"github.com/edgard/joinkeeper/internal/bot/handlers"
	"github.com/edgard/joinkeeper/internal/bot/tasks"
	"github.com/edgard/joinkeeper/internal/config"
	"github.com/edgard/joinkeeper/internal/database"
	"github.com/edgard/joinkeeper/internal/errtrack"
	"github.com/edgard/joinkeeper/internal/logger"
	"github.com/edgard/joinkeeper/internal/membership"
	"github.com/edgard/joinkeeper/internal/metrics"
	"github.com/edgard/joinkeeper/internal/stats"
	"github.com/edgard/joinkeeper/internal/telegram"
)

var (
	errMissingToken = errors.New("❌ TELEGRAM_BOT_TOKEN не найден! Установите переменную окружения TELEGRAM_BOT_TOKEN или добавьте её в файл .env")
	errInvalidToken = errors.New("❌ Токен бота имеет неправильный формат! Проверьте значение TELEGRAM_BOT_TOKEN")
)

func newRunCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(o.configPath)
			if err != nil {
				return err
			}
			return o.runBot(cmd.Context(), cfg)
		},
	}
}

// loadRunConfig loads and validates the configuration, turning token
// problems into the messages operators expect to see.
func loadRunConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, config.ErrMissingToken):
		return nil, errMissingToken
	case errors.Is(err, config.ErrInvalidToken):
		return nil, errInvalidToken
	default:
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
}

// runBot initializes all application components and blocks until ctx is
// cancelled or the bot fails.
func runBot(ctx context.Context, cfg *config.Config) error {
	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)
	log.Info("Starting joinkeeper", "version", Version, "mode", cfg.Mode(), "token", cfg.RedactedToken())

	sentryEnv := cfg.Sentry.Environment
	if sentryEnv == "" {
		sentryEnv = cfg.Mode()
	}
	if err := errtrack.Init(cfg.Sentry.DSN, sentryEnv, Version, log); err != nil {
		log.Warn("Continuing without error tracking", "error", err)
	}
	defer errtrack.Flush()

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	m := metrics.New()

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			log.DebugContext(ctx, "Update without handler", "update_id", update.ID)
		}),
		tgbot.WithErrorsHandler(func(err error) {
			log.Error("Telegram client error", "error", err)
		}),
	}
	if cfg.Telegram.WebhookSecret != "" {
		botOpts = append(botOpts, tgbot.WithWebhookSecretToken(cfg.Telegram.WebhookSecret))
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		return err
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, nil)
	if err != nil {
		return err
	}

	reporter := stats.NewReporter(log, store, tg, m, me.ID, time.Now)
	svc := membership.NewService(membership.Deps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		API:       tg,
		Scheduler: sched,
		Metrics:   m,
		BotID:     me.ID,
		Now:       time.Now,
	})

	sched.SetTasks(tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:   log,
		Store:    store,
		Reporter: reporter,
		Approver: svc,
		Config:   cfg,
		Now:      time.Now,
	}))

	hDeps := handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Membership: svc,
		Stats:      reporter,
	}
	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllHandlers(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return err
	}
	if err := telegram.SetCommands(ctx, tg, handlers.Commands()); err != nil {
		log.Warn("Failed to publish bot commands", "error", err)
	}

	restored, err := svc.RestorePending(ctx)
	if err != nil {
		log.Error("Failed to restore pending join requests", "error", err)
		return err
	}
	log.Info("Pending join requests restored", "count", restored)

	app := bot.NewBot(log, cfg, store, m, tg, sched)

	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		errtrack.CaptureError(runErr, map[string]string{"component": "bot"})
		return errReported
	}

	log.Info("Bot stopped gracefully.")
	return nil
}
