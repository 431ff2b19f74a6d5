// Command positionbook is the entry point for the position tracker. It runs
// the API server and archiver ("serve") or one-shot commands against the
// configured stores.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/positionbook/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
