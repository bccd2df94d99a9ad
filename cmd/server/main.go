package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Markwood23/plaen-sub000/internal/config"
	"github.com/Markwood23/plaen-sub000/internal/domain/connectivity"
	domainTelemetry "github.com/Markwood23/plaen-sub000/internal/domain/telemetry"
	connectivityProbe "github.com/Markwood23/plaen-sub000/internal/infrastructure/connectivity"
	"github.com/Markwood23/plaen-sub000/internal/infrastructure/database"
	"github.com/Markwood23/plaen-sub000/internal/infrastructure/gateway"
	httpServer "github.com/Markwood23/plaen-sub000/internal/infrastructure/http"
	"github.com/Markwood23/plaen-sub000/internal/infrastructure/telemetry"
	"github.com/Markwood23/plaen-sub000/internal/logger"
	"github.com/Markwood23/plaen-sub000/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger := logger.NewZapLogger(logger.Config{
		Level:       "info",
		Format:      "json",
		Development: cfg.Service.Environment == "development",
	})
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	repos := database.NewRepositories(db, zapLogger)

	// Wire the checkout flow collaborators
	paymentGateway := gateway.NewSelector(cfg, zapLogger)

	var netChecker connectivity.Checker = connectivity.AlwaysOnline{}
	if cfg.Service.Connectivity.ProbeURL != "" {
		netChecker = connectivityProbe.NewProbe(
			cfg.Service.Connectivity.ProbeURL,
			cfg.Service.Connectivity.CacheTTL,
			zapLogger,
		)
	}

	var tracker domainTelemetry.Tracker = domainTelemetry.Noop{}
	var telemetryClient *telemetry.Client
	if cfg.Service.Telemetry.Endpoint != "" {
		telemetryClient = telemetry.NewClient(
			cfg.Service.Telemetry.Endpoint,
			cfg.Service.Telemetry.WriteKey,
			zapLogger,
		)
		tracker = telemetryClient
	}

	manager := usecase.NewSessionManager(
		paymentGateway,
		netChecker,
		tracker,
		repos.Receipt,
		zapLogger,
		usecase.FlowConfig{
			PollInterval:    cfg.Service.Checkout.PollInterval,
			MaxPollAttempts: cfg.Service.Checkout.MaxPollAttempts,
		},
	)

	// Start HTTP server
	srv := httpServer.NewServer(cfg, zapLogger, manager, repos)
	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Info("HTTP server stopped", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down...")

	// Tear down live sessions first so no poll fires against a dying service
	manager.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if telemetryClient != nil {
		telemetryClient.Close()
	}

	zapLogger.Info("Shutdown complete")
}
