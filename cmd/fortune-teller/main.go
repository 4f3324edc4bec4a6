package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/0nhc/llm-fortune-teller/internal/cmd"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return cmd.ExitCode(cmd.ExecuteContext(ctx))
}
