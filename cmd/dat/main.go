// Command dat creates, lists, extracts and verifies dat archives.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/charmbracelet/fang"

	"github.com/meigma/dat/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := fang.Execute(ctx, cli.NewRootCmd())
	stop()
	if err != nil {
		os.Exit(1)
	}
}
