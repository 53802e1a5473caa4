package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"pricewatch-utils/internal/background"
	"pricewatch-utils/internal/llm"
	"pricewatch-utils/internal/logging"
	"pricewatch-utils/internal/scraper/workers"
	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

var startTime = time.Now()

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	requestID := utils.GenerateRequestID()
	logger := logging.GetGlobalLogger()

	logger.Debug("Health check requested", map[string]interface{}{"request_id": requestID})

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   "1.0.0", // TODO: Get from build info
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	}

	return c.JSON(http.StatusOK, response)
}

// ReadinessHandler reports whether the service can accept scraping work.
// The worker pool and task manager gate readiness. The LLM provider is
// reported but does not gate: extraction falls back to non-AI engines.
func ReadinessHandler(poolManager *workers.PoolManager, taskManager background.TaskManager, llmManager *llm.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		logger.Debug("Readiness check requested", map[string]interface{}{"request_id": requestID})

		checks := map[string]string{
			"api": "ok",
		}
		ready := true

		if poolManager != nil && poolManager.IsHealthy() {
			checks["workers"] = "ok"
		} else {
			checks["workers"] = "unavailable"
			ready = false
		}

		if taskManager != nil && taskManager.IsHealthy() {
			checks["background_tasks"] = "ok"
		} else {
			checks["background_tasks"] = "unavailable"
			ready = false
		}

		if llmManager != nil && llmManager.IsHealthy() {
			checks["llm"] = "ok"
		} else {
			checks["llm"] = "unavailable"
		}

		status := "ready"
		httpStatus := http.StatusOK
		if !ready {
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}

		return c.JSON(httpStatus, models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Uptime:    time.Since(startTime),
			Checks:    checks,
		})
	}
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(c echo.Context) error {
	requestID := utils.GenerateRequestID()
	logger := logging.GetGlobalLogger()

	logger.Debug("Liveness check requested", map[string]interface{}{"request_id": requestID})

	response := models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(startTime),
	}

	return c.JSON(http.StatusOK, response)
}

// StatusHandler provides detailed service status
func StatusHandler(poolManager *workers.PoolManager, taskManager background.TaskManager, llmManager *llm.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := utils.GenerateRequestID()
		logger := logging.GetGlobalLogger()

		logger.Debug("Status check requested", map[string]interface{}{"request_id": requestID})

		checks := map[string]string{
			"api": "operational",
		}

		if poolManager != nil && poolManager.IsHealthy() {
			checks["workers"] = "operational"
		} else {
			checks["workers"] = "degraded"
		}

		if taskManager != nil && taskManager.IsHealthy() {
			checks["background_tasks"] = "operational"
		} else {
			checks["background_tasks"] = "degraded"
		}

		if llmManager != nil && llmManager.IsHealthy() {
			checks["llm"] = llmManager.GetProviderName()
		} else {
			checks["llm"] = "unavailable"
		}

		response := models.HealthResponse{
			Status:    "operational",
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Uptime:    time.Since(startTime),
			Checks:    checks,
		}

		return c.JSON(http.StatusOK, response)
	}
}
