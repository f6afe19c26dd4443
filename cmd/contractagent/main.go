package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/hupe1980/agentloop/cmd/contractagent/cmds"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmds.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
