package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/creditx/hold-service/internal/api_gateway"
	"github.com/creditx/hold-service/internal/api_gateway/service"
	"github.com/creditx/hold-service/internal/config"
	"github.com/creditx/hold-service/internal/data/postgres"
	"github.com/creditx/hold-service/internal/domain/hold"
	"github.com/creditx/hold-service/internal/logger"
	"github.com/creditx/hold-service/internal/platform/clock"
	"github.com/creditx/hold-service/internal/platform/persistence"
	"github.com/creditx/hold-service/internal/platform/tracing"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	shutdownTracing, err := tracing.Setup(appCtx, cfg.Tracing, cfg.Application.Name, version)
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Migrations run before the pool is opened
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	holdRepo := postgres.NewHoldRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	holdService := service.NewHoldService(
		log.With("component", "hold_service"),
		postgresDB,
		holdRepo,
		outboxRepo,
		hold.NewCeilingChecker(cfg.Hold.FraudCeiling),
		clock.NewSystem(),
		service.HoldServiceConfig{
			ExpiryHorizon:   cfg.Hold.ExpiryHorizon,
			DefaultCurrency: cfg.Hold.DefaultCurrency,
		},
	)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, holdService)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Drain in-flight requests before the pool goes away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
