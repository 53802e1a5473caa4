package routes

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"pricewatch-utils/internal/api/handlers"
	"pricewatch-utils/internal/api/middleware"
	"pricewatch-utils/internal/background"
	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/llm"
	"pricewatch-utils/internal/logging"
	"pricewatch-utils/internal/metrics"
	"pricewatch-utils/internal/scraper/workers"
	"pricewatch-utils/internal/tracker"
)

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, poolManager *workers.PoolManager, llmManager *llm.Manager, taskManager background.TaskManager, trackerSvc *tracker.Service) {
	// Global middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	e.Use(middleware.RateLimit(cfg.Server.RateLimit))
	// Selective timeout: short for most endpoints, 2 minutes for routes that
	// scrape inline
	e.Use(middleware.SelectiveTimeoutConfig(cfg.Server.ReadTimeout, 2*time.Minute))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(poolManager, taskManager, llmManager))
		health.GET("/live", handlers.LivenessHandler)
		health.GET("/workers", handlers.WorkerHealthHandler(poolManager))

		// Logging system monitoring
		health.GET("/logging", func(c echo.Context) error {
			logger := logging.GetGlobalLogger()
			logger.Info("Logging health check requested", map[string]interface{}{
				"request_id": c.Response().Header().Get("X-Request-ID"),
				"test_log":   "This log should appear in Betterstack if configured correctly",
			})

			return c.JSON(http.StatusOK, map[string]interface{}{
				"status":   "ok",
				"message":  "Logging test completed - check your Betterstack dashboard",
				"adapters": "Logging system is active",
			})
		})
	}

	// Status route
	e.GET("/status", handlers.StatusHandler(poolManager, taskManager, llmManager))

	// Prometheus metrics
	if cfg.Metrics.Enabled {
		metrics.Register()
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		v1.POST("/scrape", handlers.ScrapeHandler(cfg, poolManager))
		v1.POST("/scrape/async", handlers.ScrapeAsyncHandler(cfg, poolManager, taskManager))
		v1.GET("/tasks", handlers.TaskListHandler(taskManager))
		v1.GET("/tasks/:process_id", handlers.TaskStatusHandler(taskManager))

		// Product tracking routes
		products := v1.Group("/products")
		{
			products.POST("", handlers.TrackProductHandler(cfg, trackerSvc))
			products.GET("", handlers.ListProductsHandler(trackerSvc))
			products.GET("/:id/history", handlers.ProductHistoryHandler(trackerSvc))
			products.POST("/check", handlers.CheckProductsHandler(trackerSvc))
		}

		// Worker monitoring routes
		workerRoutes := v1.Group("/workers")
		{
			workerRoutes.GET("/stats", handlers.WorkerStatsHandler(poolManager))
			workerRoutes.GET("/status", handlers.DetailedWorkerStatusHandler(poolManager))
			workerRoutes.GET("/domains/:domain", handlers.DomainStatsHandler(poolManager))
		}
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"service": "PriceWatch Scraper",
			"version": "1.0.0",
			"status":  "running",
		})
	})
}
