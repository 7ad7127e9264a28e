// Package bot implements the bot lifecycle: update delivery by polling or
// webhook, the HTTP endpoints and the scheduler.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/joinkeeper/internal/config"
	"github.com/edgard/joinkeeper/internal/database"
	"github.com/edgard/joinkeeper/internal/metrics"
	"github.com/edgard/joinkeeper/internal/telegram"
)

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	store     database.Store
	metrics   *metrics.Metrics
	tgBot     *tgbot.Bot
	scheduler *Scheduler
}

// NewBot creates a new instance of the bot with all required dependencies.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	m *metrics.Metrics,
	tgBot *tgbot.Bot,
	scheduler *Scheduler,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		store:     store,
		metrics:   m,
		tgBot:     tgBot,
		scheduler: scheduler,
	}
}

// Run prepares update delivery and then runs the listener, the HTTP server
// and the scheduler until ctx is cancelled or one of them fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...", "mode", b.cfg.Mode())

	webhookMode := b.cfg.IsProduction()
	if webhookMode {
		if err := telegram.SetWebhook(ctx, b.tgBot, b.cfg.Telegram.WebhookURL,
			b.cfg.Telegram.WebhookSecret, b.cfg.Telegram.DropPendingUpdates); err != nil {
			return err
		}
		b.logger.Info("Webhook registered", "url", b.cfg.Telegram.WebhookURL)
	} else {
		// A registered webhook makes getUpdates fail with a conflict.
		if err := telegram.DeleteWebhook(ctx, b.tgBot, b.cfg.Telegram.DropPendingUpdates); err != nil {
			return err
		}
		b.logger.Info("Webhook removed, using long polling")
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...", "webhook", webhookMode)

		if webhookMode {
			b.tgBot.StartWebhook(gCtx)
		} else {
			b.tgBot.Start(gCtx)
		}
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	if webhookMode || b.cfg.Server.PollingListen {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", b.cfg.Server.Port),
			Handler:           b.newMux(webhookMode),
			ReadHeaderTimeout: b.cfg.Server.ReadHeaderTimeout,
		}
		g.Go(func() error {
			return b.serveHTTP(gCtx, srv)
		})
	}

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

func (b *Bot) newMux(webhookMode bool) http.Handler {
	opts := MuxOptions{
		Logger:  b.logger,
		Mode:    b.cfg.Mode(),
		Health:  b.store.Ping,
		Metrics: b.metrics.Handler(),
	}
	if webhookMode {
		opts.WebhookPath = telegram.WebhookPath(b.cfg.Telegram.WebhookURL)
		opts.Webhook = b.tgBot.WebhookHandler()
	}
	return NewMux(opts)
}

// serveHTTP runs srv until ctx is cancelled, then shuts it down gracefully.
func (b *Bot) serveHTTP(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		b.logger.Info("Starting HTTP server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	timeout := b.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	b.logger.Info("Stopping HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	b.logger.Info("HTTP server stopped.")
	return nil
}
