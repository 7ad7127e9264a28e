package telegram

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// WebhookAPI is the subset of the Bot API used to manage update delivery.
type WebhookAPI interface {
	GetMe(ctx context.Context) (*models.User, error)
	SetWebhook(ctx context.Context, params *bot.SetWebhookParams) (bool, error)
	DeleteWebhook(ctx context.Context, params *bot.DeleteWebhookParams) (bool, error)
	GetWebhookInfo(ctx context.Context) (*models.WebhookInfo, error)
}

var _ WebhookAPI = (*bot.Bot)(nil)

// SetWebhook registers webhookURL for the update kinds in AllowedUpdates.
func SetWebhook(ctx context.Context, api WebhookAPI, webhookURL, secret string, dropPending bool) error {
	if _, err := ValidateWebhookURL(webhookURL); err != nil {
		return err
	}
	ok, err := api.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:                webhookURL,
		AllowedUpdates:     AllowedUpdates,
		DropPendingUpdates: dropPending,
		SecretToken:        secret,
	})
	if err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	if !ok {
		return fmt.Errorf("failed to set webhook: telegram returned false")
	}
	return nil
}

// DeleteWebhook removes the registered webhook so that polling can be used.
func DeleteWebhook(ctx context.Context, api WebhookAPI, dropPending bool) error {
	ok, err := api.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: dropPending})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	if !ok {
		return fmt.Errorf("failed to delete webhook: telegram returned false")
	}
	return nil
}

// ValidateWebhookURL checks that a webhook address is an absolute https URL.
func ValidateWebhookURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("webhook URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL %q: %w", raw, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid webhook URL %q: must be an absolute https URL", raw)
	}
	return u, nil
}

// WebhookPath returns the HTTP path the webhook handler is mounted on.
func WebhookPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
