package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"pricewatch-utils/internal/api/routes"
	"pricewatch-utils/internal/background"
	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/insights"
	"pricewatch-utils/internal/llm"
	"pricewatch-utils/internal/logging"
	"pricewatch-utils/internal/notify"
	"pricewatch-utils/internal/scheduler"
	"pricewatch-utils/internal/scraper/workers"
	"pricewatch-utils/internal/tracker"
	"pricewatch-utils/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize the logging system
	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := utils.GetLogger()
	logger.Info("Starting PriceWatch Scraper")

	// Optional Redis client, shared by the LLM extraction cache and the
	// tracker store. Unreachable Redis degrades both to memory.
	var redisClient *utils.RedisClient
	if cfg.Redis.Enabled {
		redisClient = utils.NewRedisClient(cfg)
		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Redis.Timeout)
		err := redisClient.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.WithError(err).Warn("Redis unreachable, continuing without it")
			redisClient.Close()
			redisClient = nil
		}
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize LLM manager
	llmManager := llm.NewManager(cfg, redisClient)
	if err := llmManager.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start LLM manager")
	}

	// Initialize background task manager
	logger.Info("Initializing background task manager")
	taskManager := background.NewTaskManager(cfg)
	ctx := context.Background()
	if err := taskManager.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start task manager")
	}

	// Initialize worker pool
	poolManager := workers.NewPoolManager(cfg, llmManager)
	if err := poolManager.Initialize(); err != nil {
		logger.WithError(err).Fatal("Failed to start worker pool")
	}
	defer poolManager.Shutdown()

	// Choose the tracker store
	var store tracker.Store
	if cfg.Tracker.Store == "redis" && redisClient != nil {
		logger.Info("Tracker store backed by Redis")
		store = tracker.NewRedisStore(redisClient)
	} else {
		store = tracker.NewMemoryStore()
	}

	// Wire the price tracker on top of the worker pool
	generator := insights.NewGenerator(llmManager)
	notifier := notify.NewEmailNotifier(cfg)
	trackerSvc := tracker.NewService(cfg, store, poolManager, generator, notifier)

	// Periodic price checks
	priceScheduler := scheduler.New(cfg, trackerSvc)
	if err := priceScheduler.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start price check scheduler")
	}

	// Initialize Echo
	e := echo.New()

	// Setup routes
	routes.SetupRoutes(e, cfg, poolManager, llmManager, taskManager, trackerSvc)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Stop the scheduler first so no new batch checks start
		logger.Info("Stopping price check scheduler...")
		priceScheduler.Stop()

		logger.Info("Stopping background task manager...")
		if err := taskManager.Stop(shutdownCtx); err != nil {
			logger.WithError(err).Error("Error stopping task manager")
		}

		logger.Info("Stopping worker pool...")
		if err := poolManager.Shutdown(); err != nil {
			logger.WithError(err).Error("Error stopping worker pool")
		}

		logger.Info("Stopping LLM manager...")
		if err := llmManager.Stop(); err != nil {
			logger.WithError(err).Error("Error stopping LLM manager")
		}

		logger.Info("Stopping HTTP server...")
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Error shutting down server")
		}

		logger.Info("Server shutdown complete")
	}()

	// Start server
	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.WithField("address", address).Info("Server starting")

	if err := e.Start(address); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
