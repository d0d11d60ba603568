package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/payroll-settlement-service/internal/config"
	"github.com/payroll-settlement-service/internal/data/mongo"
	"github.com/payroll-settlement-service/internal/data/postgres"
	"github.com/payroll-settlement-service/internal/domain/bank"
	"github.com/payroll-settlement-service/internal/logger"
	"github.com/payroll-settlement-service/internal/platform/messaging/producers"
	"github.com/payroll-settlement-service/internal/platform/persistence"
	"github.com/payroll-settlement-service/internal/settlement_api"
	"github.com/payroll-settlement-service/internal/settlement_api/dispatch_poller"
	"github.com/payroll-settlement-service/internal/settlement_api/service"
	"github.com/payroll-settlement-service/internal/validation"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("settlement_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Settlement API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for the dispatch topic
	dispatchProducer, err := producers.NewFileDispatchProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize dispatch Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	paymentRepo := postgres.NewPaymentRepository(log, postgresDB)
	batchRepo := postgres.NewBatchRepository(log, postgresDB)
	dispatchRepo := postgres.NewDispatchRepository(log, postgresDB)
	timelineRepo := mongo.NewTimelineRepository(log, mongoDB.Database())

	// Initialize the bank registry and validators
	registry := bank.NewDefaultRegistry()
	ibanValidator := validation.NewIBANValidator(registry)
	eligibilityValidator := validation.NewEligibilityValidator(ibanValidator, registry, paymentRepo)

	// Initialize services
	paymentService := service.NewPaymentService(log, paymentRepo, timelineRepo, ibanValidator, cfg.Settlement.Actor)
	batchService, err := service.NewBatchService(
		log,
		&cfg.Settlement,
		postgresDB,
		paymentRepo,
		batchRepo,
		dispatchRepo,
		timelineRepo,
		eligibilityValidator,
		registry,
	)
	if err != nil {
		log.Error("Failed to initialize batch service", "error", err)
		os.Exit(1)
	}

	// Initialize dispatch outbox poller
	filePublisher := dispatch_poller.NewFilePublisher(
		dispatchRepo,
		batchRepo,
		dispatchProducer,
		log,
	)
	poller := dispatch_poller.NewPoller(
		&cfg.Dispatch,
		dispatchRepo,
		filePublisher,
		log,
	)

	// Initialize REST server
	server := settlement_api.NewServer(log, cfg, paymentService, batchService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Create wait group for the poller goroutine
	var wg sync.WaitGroup

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start dispatch poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Dispatch Poller",
			"interval", cfg.Dispatch.PollingInterval.String(),
			"batch_size", cfg.Dispatch.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Set up signal handling
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

	// Cancel the application context to stop the poller
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Wait for the poller to drain
	wg.Wait()

	if err = dispatchProducer.Close(); err != nil {
		log.Error("Error closing dispatch Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
