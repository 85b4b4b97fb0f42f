// Package main provides the main entry point for the counter service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirphl/counter-clean-arch/app/container"
	"github.com/amirphl/counter-clean-arch/app/logging"
	"github.com/amirphl/counter-clean-arch/app/router"
	"github.com/amirphl/counter-clean-arch/config"
	"go.uber.org/zap"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	container *container.Container
	logger    *zap.Logger
	stopFuncs []func()
}

func main() {
	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting counter service",
		zap.String("version", cfg.Deployment.Version),
		zap.String("environment", cfg.Deployment.Environment),
		zap.String("commit", cfg.Deployment.CommitHash))

	// Initialize application
	app, err := initializeApplication(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		serverErr <- app.router.Start(address)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case sig := <-sigChan:
		logger.Info("Shutting down gracefully...", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server stopped unexpectedly", zap.Error(err))
		}
	}

	app.shutdown()
	logger.Info("Server stopped")
}

// initializeApplication initializes the main application components
func initializeApplication(ctx context.Context, cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	c, err := container.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var stopFuncs []func()
	stopFuncs = append(stopFuncs, c.StartCacheHealthMonitor(ctx))

	appRouter := router.NewFiberRouter(cfg, c.CounterHandler, c.HealthCheck, logger)

	return &Application{
		router:    appRouter,
		config:    cfg,
		container: c,
		logger:    logger,
		stopFuncs: stopFuncs,
	}, nil
}

func (a *Application) shutdown() {
	// Stop background workers
	for _, fn := range a.stopFuncs {
		fn()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.router.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := a.container.Close(); err != nil {
		a.logger.Error("Error closing connections", zap.Error(err))
	}
}
