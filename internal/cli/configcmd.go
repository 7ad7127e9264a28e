package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/edgard/joinkeeper/internal/config"
)

func newConfigCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(o.configPath)
			if err != nil {
				return err
			}

			masked := *cfg
			masked.Telegram.Token = config.RedactToken(cfg.Telegram.Token)
			if masked.Telegram.WebhookSecret != "" {
				masked.Telegram.WebhookSecret = "***"
			}
			if masked.Sentry.DSN != "" {
				masked.Sentry.DSN = "***"
			}

			out, err := yaml.Marshal(&masked)
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
