// Package errtrack reports errors to Sentry when a DSN is configured.
// Without a DSN every function is a no-op, so callers never need to check.
package errtrack

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// Init configures the Sentry client. An empty dsn disables reporting.
func Init(dsn, environment, release string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "errtrack")

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			// Telegram user data stays out of reports.
			event.User = sentry.User{}
			return event
		},
	})
	if err != nil {
		log.Error("Sentry initialization failed, error tracking disabled", "error", err)
		return err
	}

	if dsn == "" {
		log.Debug("SENTRY_DSN empty, error tracking disabled")
	} else {
		log.Info("Sentry initialized", "environment", environment)
	}
	return nil
}

// Flush waits for buffered events to be delivered.
func Flush() { sentry.Flush(2 * time.Second) }

// CaptureError reports err with the given tags.
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}
