package main

import (
	"os"
	"os/signal"
	"syscall"

	"huddle/internal/adapters/config"
	"huddle/internal/adapters/errors/noop"
	"huddle/internal/adapters/errors/sentry"
	"huddle/internal/bootstrap"
	"huddle/pkg/errors"
	"huddle/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := initLogger(cfg); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Build the dependency container (fail-fast on any init error)
	container := bootstrap.NewContainer(cfg, errorTracker)
	container.MustInit()

	log.Info("System initialized successfully")

	// Start bot polling, background refresh and the HTTP server
	if err := container.Start(); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	// Wait for shutdown signal
	waitForShutdown(container, log)
}

// loadConfig loads application configuration from environment
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// initLogger initializes structured logging
func initLogger(cfg *config.Config) error {
	return logger.Init(cfg.App.LogLevel, cfg.App.Env)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// waitForShutdown blocks until a shutdown signal arrives or a fatal
// component failure cancels the application context, then performs
// graceful shutdown
func waitForShutdown(container *bootstrap.Container, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infow("Shutdown signal received", "signal", sig.String())
	case <-container.Context.Done():
		log.Info("Shutting down after fatal component failure")
	}

	container.Shutdown()
}
