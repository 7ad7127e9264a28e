// Command launcher starts joinkeeper only when TELEGRAM_BOT_TOKEN is set.
// It takes no arguments and exits with the bot's exit code.
package main

import (
	"context"
	"os"

	"github.com/edgard/joinkeeper/internal/gate"
)

func main() {
	os.Exit(gate.New().Main(context.Background()))
}
