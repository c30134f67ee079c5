// File: main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/stickerverse/figmaconvert/cmd"
	"github.com/stickerverse/figmaconvert/internal/observability"
)

// main wires up signal handling and delegates to the root command.
func main() {
	// Listen for interrupt signals (SIGINT, SIGTERM) for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)

	// Flush buffered log entries before exiting; os.Exit skips defers.
	observability.Sync()

	if err != nil {
		// cmd.Execute logs the failure; only the exit code is decided here.
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
