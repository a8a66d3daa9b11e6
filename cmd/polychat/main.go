// Package main is the entry point for the polychat binary.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/leofalp/polychat/internal/cli"
	"github.com/leofalp/polychat/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		logging.Logger().Error("fatal error", "err", err)
		stop()
		os.Exit(1)
	}
}
