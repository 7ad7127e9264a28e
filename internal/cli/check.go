package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgard/joinkeeper/internal/config"
	"github.com/edgard/joinkeeper/internal/status"
	"github.com/edgard/joinkeeper/internal/telegram"
)

const checkTimeout = 10 * time.Second

func newCheckCmd(o *options) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the bot token, webhook and deployment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(o.configPath)
			if err != nil {
				return err
			}

			var api telegram.WebhookAPI
			if !errors.Is(config.ValidateToken(cfg.Telegram.Token), config.ErrMissingToken) {
				if api, err = o.newAPI(cfg); err != nil {
					return err
				}
			}

			if !status.NewChecker(cfg, api, checkTimeout).Run(cmd.Context(), cmd.OutOrStdout(), probe) {
				return errReported
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Also request /healthz on the webhook host")
	return cmd
}
