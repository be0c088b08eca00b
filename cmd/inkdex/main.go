// Package main is the entry point for the inkdex CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/inkstone-labs/inkdex/cmd/inkdex/cmd"
	"github.com/inkstone-labs/inkdex/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "inkdex:", errors.UserMessage(err))
		os.Exit(1)
	}
}
