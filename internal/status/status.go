// Package status implements the status report: delivery mode, bot
// reachability, webhook state and an optional probe of the health endpoint.
package status

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/edgard/joinkeeper/internal/config"
	"github.com/edgard/joinkeeper/internal/telegram"
)

// Checker prints the status report.
type Checker struct {
	cfg  *config.Config
	api  telegram.WebhookAPI
	rest *resty.Client
}

// NewChecker creates a Checker. api may be nil when no token is configured.
func NewChecker(cfg *config.Config, api telegram.WebhookAPI, timeout time.Duration) *Checker {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second)
	}
	return &Checker{cfg: cfg, api: api, rest: r}
}

// Run writes the report to w and reports whether the bot is reachable.
// With probe set, the health endpoint behind the webhook URL is queried too.
func (c *Checker) Run(ctx context.Context, w io.Writer, probe bool) bool {
	fmt.Fprintln(w, "🤖 Проверка статуса Telegram бота")
	fmt.Fprintln(w)

	production := c.cfg.IsProduction()
	if production {
		fmt.Fprintln(w, "📋 Режим работы: Production")
	} else {
		fmt.Fprintln(w, "📋 Режим работы: Development")
	}
	if production && c.cfg.Telegram.WebhookURL != "" {
		fmt.Fprintf(w, "🔗 Webhook URL: %s\n", c.cfg.Telegram.WebhookURL)
	}
	fmt.Fprintln(w)

	if !c.checkBot(ctx, w) {
		return false
	}
	fmt.Fprintln(w)
	c.checkWebhook(ctx, w)

	if probe {
		c.probe(ctx, w)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "💡 Рекомендации:")
	if production {
		fmt.Fprintln(w, "   - Для production используйте webhook")
		fmt.Fprintln(w, "   - Убедитесь, что бот не запущен локально")
	} else {
		fmt.Fprintln(w, "   - Для разработки используйте polling")
		fmt.Fprintln(w, "   - Убедитесь, что webhook не установлен")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "📊 Доступные команды для админов:")
	fmt.Fprintln(w, "   /stats - получить статистику по всем каналам")
	return true
}

func (c *Checker) checkBot(ctx context.Context, w io.Writer) bool {
	token := c.cfg.Telegram.Token
	if token == "" || token == config.PlaceholderToken || c.api == nil {
		fmt.Fprintln(w, "❌ TELEGRAM_BOT_TOKEN не установлен или использует значение по умолчанию")
		return false
	}

	me, err := c.api.GetMe(ctx)
	if err != nil {
		fmt.Fprintf(w, "❌ Ошибка бота: %v\n", err)
		return false
	}
	fmt.Fprintf(w, "✅ Бот активен: @%s (%s)\n", me.Username, me.FirstName)
	return true
}

func (c *Checker) checkWebhook(ctx context.Context, w io.Writer) {
	info, err := c.api.GetWebhookInfo(ctx)
	if err != nil {
		fmt.Fprintf(w, "❌ Ошибка при проверке webhook: %v\n", err)
		return
	}
	if info.URL == "" {
		fmt.Fprintln(w, "📱 Webhook не установлен (используется polling)")
		return
	}

	fmt.Fprintf(w, "🔗 Webhook активен: %s\n", info.URL)
	if info.HasCustomCertificate {
		fmt.Fprintln(w, "🔐 Используется пользовательский сертификат")
	}
	if info.PendingUpdateCount > 0 {
		fmt.Fprintf(w, "⏳ Ожидающих обновлений: %d\n", info.PendingUpdateCount)
	}
	if info.LastErrorMessage != "" {
		fmt.Fprintf(w, "⚠️ Последняя ошибка: %s\n", info.LastErrorMessage)
	}
}

func (c *Checker) probe(ctx context.Context, w io.Writer) {
	target, err := HealthURL(c.cfg.Telegram.WebhookURL)
	if err != nil {
		fmt.Fprintf(w, "❌ Проверка /healthz невозможна: %v\n", err)
		return
	}

	code, err := c.ProbeHealth(ctx, target)
	if err != nil {
		fmt.Fprintf(w, "❌ %s недоступен: %v\n", target, err)
		return
	}
	if code != 200 {
		fmt.Fprintf(w, "❌ %s ответил %d\n", target, code)
		return
	}
	fmt.Fprintf(w, "🩺 %s отвечает\n", target)
}

// ProbeHealth GETs target and returns the HTTP status code.
func (c *Checker) ProbeHealth(ctx context.Context, target string) (int, error) {
	resp, err := c.rest.R().SetContext(ctx).Get(target)
	if err != nil {
		return 0, fmt.Errorf("health probe failed: %w", err)
	}
	return resp.StatusCode(), nil
}

// HealthURL derives the health endpoint from the public webhook address.
func HealthURL(webhookURL string) (string, error) {
	if webhookURL == "" {
		return "", fmt.Errorf("WEBHOOK_URL is not set")
	}
	u, err := url.Parse(webhookURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid webhook URL %q", webhookURL)
	}
	return u.Scheme + "://" + u.Host + "/healthz", nil
}
