package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bortsbooks/internal/config"
	"bortsbooks/internal/database"
	"bortsbooks/internal/logger"
	"bortsbooks/internal/scheduler"
	"bortsbooks/internal/server"
	"bortsbooks/internal/storage"

	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, backfill *scheduler.Backfill, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	// imports in flight get the same grace period as any other request
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if backfill != nil {
		backfill.Stop(ctx)
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, logger.WithLevel(cfg.Server.LogLevel))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting catalog API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
	)

	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}

	health := dbService.Health(context.Background())
	log.Info("Database health check", zap.Any("health", health))

	if err := database.RunMigrations(context.Background(), dbService.DB(), "migrations", log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully")

	redisClient := server.NewRedisClient(cfg.Redis)
	if err := server.PingRedis(context.Background(), redisClient); err != nil {
		log.Warn("Redis unavailable, login rate limiting disabled until it recovers", zap.Error(err))
	}

	store, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize image store", zap.Error(err))
	}

	services := server.NewServices(cfg, dbService.DB(), store, log)
	srv := server.NewServer(cfg, log, dbService, redisClient, services)

	var backfill *scheduler.Backfill
	if cfg.Backfill.Schedule != "" {
		backfill, err = scheduler.NewBackfill(cfg.Backfill.Schedule, services.Backfill, cfg.Server.ImportRequestTimeout, log)
		if err != nil {
			log.Fatal("Failed to schedule image backfill", zap.Error(err))
		}
		backfill.Start()
	}

	done := make(chan bool, 1)
	go gracefulShutdown(srv, backfill, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
