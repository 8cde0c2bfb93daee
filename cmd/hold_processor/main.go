package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/creditx/hold-service/internal/config"
	"github.com/creditx/hold-service/internal/data/mongo"
	"github.com/creditx/hold-service/internal/data/postgres"
	"github.com/creditx/hold-service/internal/domain/outbox"
	"github.com/creditx/hold-service/internal/hold_processor/components"
	"github.com/creditx/hold-service/internal/hold_processor/expiry"
	"github.com/creditx/hold-service/internal/hold_processor/outbox_poller"
	"github.com/creditx/hold-service/internal/hold_processor/service"
	"github.com/creditx/hold-service/internal/logger"
	"github.com/creditx/hold-service/internal/platform/clock"
	"github.com/creditx/hold-service/internal/platform/messaging/consumers"
	"github.com/creditx/hold-service/internal/platform/messaging/producers"
	"github.com/creditx/hold-service/internal/platform/metrics"
	"github.com/creditx/hold-service/internal/platform/persistence"
	"github.com/creditx/hold-service/internal/platform/tracing"
)

var version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig("hold_processor")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.Application.Name, version)
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// The audit archive is optional; a nil interface disables it in the poller
	var mongoDB *persistence.MongoDB
	var archiver outbox.Archiver
	if cfg.MongoDB.ArchiveEnabled {
		mongoDB, err = persistence.NewMongoDB(ctx, log, &cfg.MongoDB)
		if err != nil {
			log.Error("Failed to initialize MongoDB", "error", err)
			os.Exit(1)
		}
		archiveRepo := mongo.NewArchiveRepository(log, mongoDB.Database())
		if err := archiveRepo.EnsureIndexes(ctx); err != nil {
			log.Error("Failed to prepare outbox archive", "error", err)
			os.Exit(1)
		}
		archiver = archiveRepo
	}

	holdRepo := postgres.NewHoldRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	processedRepo := postgres.NewProcessedEventRepository(log, postgresDB)

	kafkaConsumer := consumers.NewKafkaConsumer(ctx, log, &cfg.Kafka)

	dlqProducer, err := producers.NewDLQProducer(ctx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ producer", "error", err)
		os.Exit(1)
	}

	holdEventProducer, err := producers.NewHoldEventProducer(ctx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize hold event producer", "error", err)
		os.Exit(1)
	}

	clk := clock.NewSystem()

	processor := components.CreateEventProcessor(postgresDB, holdRepo, processedRepo, clk, log, cfg)
	handler := components.CreateTransactionEventHandler(processor, dlqProducer, log, cfg)

	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, holdEventProducer, archiver, clk, log.With("component", "outbox_poller"))
	scanner := expiry.NewScanner(log.With("component", "expiry_scanner"), postgresDB, holdRepo, outboxRepo, clk, cfg.Expiry.CheckInterval)

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		log.Info("Starting transaction event consumer", "topics", kafkaConsumer.Topics())
		// blocks until ctx is canceled and the in-flight message is done
		if err := kafkaConsumer.Subscribe(ctx, handler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	go func() {
		defer wg.Done()
		poller.Start(ctx)
	}()

	go func() {
		defer wg.Done()
		scanner.Start(ctx)
	}()

	go func() {
		log.Info("Starting metrics server", "port", cfg.Metrics.Port)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Component error occurred", "error", err)
	}

	log.Info("Starting graceful shutdown...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Background workers stopped")
	case <-shutdownCtx.Done():
		log.Warn("Timed out waiting for background workers", "timeout", cfg.Server.ShutdownTimeout.String())
	}

	// Subscribe has returned, but a task abandoned by a canceled caller may still
	// hold a database connection
	if pool, ok := processor.(*service.WorkerPoolEventProcessor); ok {
		remaining := time.Until(deadlineOf(shutdownCtx))
		if err := pool.ShutdownTimeout(remaining); err != nil {
			log.Warn("Worker pool still busy at shutdown", "error", err)
		}
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down metrics server", "error", err)
	}
	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if err := dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ producer", "error", err)
	}
	if err := holdEventProducer.Close(); err != nil {
		log.Error("Error closing hold event producer", "error", err)
	}

	postgresDB.Close()

	if mongoDB != nil {
		if err := mongoDB.Close(shutdownCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	log.Info("Hold processor shutdown complete")
}

func deadlineOf(ctx context.Context) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}
	return time.Now()
}
