// Package cli wires the joinkeeper binary: the bot itself (run), the webhook
// utility, the status checker and a configuration dump, all as cobra commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/edgard/joinkeeper/internal/config"
	"github.com/edgard/joinkeeper/internal/telegram"
)

// Version is set at build time with -ldflags "-X".
var Version = "dev"

const (
	ExitSuccess = 0
	ExitError   = 1
)

// errReported marks failures whose details were already printed.
var errReported = errors.New("failure already reported")

// options carries the flags shared by all commands and the seams used in tests.
type options struct {
	configPath string
	newAPI     func(cfg *config.Config) (telegram.WebhookAPI, error)
	runBot     func(ctx context.Context, cfg *config.Config) error
}

func defaultOptions() *options {
	return &options{
		newAPI: newWebhookAPI,
		runBot: runBot,
	}
}

// newWebhookAPI creates a client for one-off Bot API calls.
func newWebhookAPI(cfg *config.Config) (telegram.WebhookAPI, error) {
	return telegram.NewTelegramBot(cfg.Telegram.Token, slog.Default(), tgbot.WithSkipGetMe())
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultOptions())
}

func newRootCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "joinkeeper",
		Short: "Telegram bot that auto-approves chat join requests",
		Long: `joinkeeper approves join requests after a delay, notifies chat admins,
welcomes approved members and sends periodic statistics to admins.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv()
		},
	}

	cmd.PersistentFlags().StringVar(&o.configPath, "config", "config.yaml", "Path to configuration file")

	cmd.AddCommand(
		newRunCmd(o),
		newWebhookCmd(o),
		newCheckCmd(o),
		newConfigCmd(o),
	)

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	return execute(ctx, NewRootCmd(), os.Stderr)
}

func execute(ctx context.Context, cmd *cobra.Command, stderr io.Writer) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(stderr, err)
		}
		return ExitError
	}
	return ExitSuccess
}
