package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/fatih/color"

	rootcmd "github.com/go-ports/homie/cmd/hkctl/root"
)

func main() {
	if err := run(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	return rootcmd.New().ExecuteContext(ctx)
}
