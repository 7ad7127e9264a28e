package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgard/joinkeeper/internal/config"
	"github.com/edgard/joinkeeper/internal/telegram"
)

var (
	errWebhookToken = errors.New("❌ TELEGRAM_BOT_TOKEN не найден в переменных окружения")
	errWebhookURL   = errors.New("❌ Укажите URL для webhook")
)

func newWebhookCmd(o *options) *cobra.Command {
	var setDrop, deleteDrop bool

	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Inspect or change the registered webhook",
	}

	info := &cobra.Command{
		Use:   "info",
		Short: "Show the current webhook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := webhookClient(o)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "🔍 Получение информации о webhook...")

			wh, err := api.GetWebhookInfo(cmd.Context())
			if err != nil {
				return fmt.Errorf("❌ Ошибка получения информации о webhook: %w", err)
			}
			if wh.URL == "" {
				fmt.Fprintln(out, "📱 Webhook не установлен (используется polling)")
			} else {
				fmt.Fprintf(out, "🔗 URL: %s\n", wh.URL)
			}
			fmt.Fprintf(out, "⏳ Ожидающих обновлений: %d\n", wh.PendingUpdateCount)
			if wh.HasCustomCertificate {
				fmt.Fprintln(out, "🔐 Используется пользовательский сертификат")
			}
			if wh.LastErrorMessage != "" {
				fmt.Fprintf(out, "⚠️ Последняя ошибка: %s\n", wh.LastErrorMessage)
			}
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set [url]",
		Short: "Register a webhook URL (defaults to WEBHOOK_URL)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := webhookConfig(o)
			if err != nil {
				return err
			}
			target := cfg.Telegram.WebhookURL
			if len(args) == 1 {
				target = args[0]
			}
			if target == "" {
				return errWebhookURL
			}
			api, err := o.newAPI(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🔗 Установка webhook: %s\n", target)
			if err := telegram.SetWebhook(cmd.Context(), api, target, cfg.Telegram.WebhookSecret, setDrop); err != nil {
				return fmt.Errorf("❌ %w", err)
			}
			fmt.Fprintln(out, "✅ Webhook установлен")
			return nil
		},
	}
	set.Flags().BoolVar(&setDrop, "drop-pending", false, "Drop updates queued while no webhook was set")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook so the bot can poll",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := webhookClient(o)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "🗑️ Удаление webhook...")
			if err := telegram.DeleteWebhook(cmd.Context(), api, deleteDrop); err != nil {
				return fmt.Errorf("❌ %w", err)
			}
			fmt.Fprintln(out, "✅ Webhook удален")
			return nil
		},
	}
	del.Flags().BoolVar(&deleteDrop, "drop-pending", false, "Drop updates queued for the bot")

	cmd.AddCommand(info, set, del)
	return cmd
}

// webhookConfig reads the configuration and requires a token to be present.
// The token format is left for Telegram to judge.
func webhookConfig(o *options) (*config.Config, error) {
	cfg, err := config.Read(o.configPath)
	if err != nil {
		return nil, err
	}
	if errors.Is(config.ValidateToken(cfg.Telegram.Token), config.ErrMissingToken) {
		return nil, errWebhookToken
	}
	return cfg, nil
}

func webhookClient(o *options) (telegram.WebhookAPI, error) {
	cfg, err := webhookConfig(o)
	if err != nil {
		return nil, err
	}
	return o.newAPI(cfg)
}
