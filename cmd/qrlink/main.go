package main

import (
	"context"
	"os"
	"os/signal"

	"qrlink/cmd/qrlink/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := commands.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
