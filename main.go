package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/devqik/solarboat/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := cli.NewApp(os.Stdout, os.Stderr)

	if err := app.RunContext(ctx, os.Args); err != nil {
		os.Exit(1)
	}
}
