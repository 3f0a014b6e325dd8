package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"lottery-reconciliation-service/cmd/reconciler/cmd"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// Set version information
	cmd.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()

	os.Exit(cmd.NewCLIErrorHandler().HandleError(err))
}
