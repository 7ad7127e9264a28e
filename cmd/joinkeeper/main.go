// Package main contains the entrypoint for the joinkeeper bot and its utilities.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgard/joinkeeper/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := cli.Execute(ctx)
	stop()
	os.Exit(exitCode)
}
