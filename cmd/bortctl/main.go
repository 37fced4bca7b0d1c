package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bortsbooks/internal/config"
	"bortsbooks/internal/logger"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, logger.WithLevel(cfg.Server.LogLevel), logger.WithOutput("stderr"))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Config: cfg, Logger: log})
	if err := runner.Command().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "bortctl: %v\n", err)
		os.Exit(1)
	}
}
