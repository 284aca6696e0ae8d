package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subscription_server/config"
	"subscription_server/internal/bootstrap"
	"subscription_server/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 30 * time.Second // Maximum time to wait for graceful shutdown
)

func main() {
	// Load .env file if exists (for local development)
	envErr := godotenv.Load()

	mode := flag.String("mode", "all", "Run mode: api, worker, all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	logLevel := logger.ParseLevel(cfg.LogLevel)
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "subscription-" + *mode,
	})
	if envErr != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	var runAPI, runWorker bool
	switch *mode {
	case "api":
		runAPI = true
	case "worker":
		runWorker = true
	case "all":
		runAPI, runWorker = true, true
	default:
		logger.Fatal("Unknown mode: %s", *mode)
	}

	deps, cleanup, err := bootstrap.NewDependencies(cfg, runAPI)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies: %v", err)
	}
	defer cleanup()

	var worker *bootstrap.Worker
	if runWorker {
		worker = bootstrap.NewWorker(cfg, deps)
		logger.Info("Starting worker...")
		if err := worker.Start(); err != nil {
			logger.Fatal("Failed to start worker: %v", err)
		}
	}

	var api *bootstrap.API
	if runAPI {
		api = bootstrap.NewAPI(cfg, deps)
		go func() {
			addr := ":" + cfg.Port
			logger.Info("Starting API server on %s", addr)
			if err := api.Start(addr); err != nil {
				logger.Fatal("Failed to start server: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down (timeout: %v)...", shutdownTimeout)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if api != nil {
			if err := api.Shutdown(shutdownTimeout); err != nil {
				logger.Error("Error shutting down API: %v", err)
			}
		}
		if worker != nil {
			worker.Stop()
			m := worker.GetMetrics()
			logger.Info("Worker stopped (processed=%d, failed=%d, retried=%d)", m.JobsProcessed, m.JobsFailed, m.JobsRetried)
		}
	}()

	select {
	case <-done:
		logger.Info("Shut down gracefully")
	case <-time.After(shutdownTimeout):
		logger.Warn("Shutdown timed out, forcing exit")
		cleanup()
		os.Exit(1)
	}
}
