package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"pricewatch-utils/internal/api/middleware"
	"pricewatch-utils/internal/api/validation"
	"pricewatch-utils/internal/background"
	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/scraper/workers"
	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// requestID returns the ID attached by the validation middleware, minting
// one for requests that bypassed it (direct handler tests).
func requestID(c echo.Context) string {
	if id := middleware.RequestIDFromContext(c); id != "" {
		return id
	}
	return utils.GenerateRequestID()
}

// mergedOptions folds the request-level site hint into the options block so
// downstream code only reads one place.
func mergedOptions(req *models.ScrapeRequest) *models.ScrapeOptions {
	if req.SiteHint == "" {
		return req.Options
	}
	if req.Options == nil {
		return &models.ScrapeOptions{SiteHint: req.SiteHint}
	}
	if req.Options.SiteHint == "" {
		req.Options.SiteHint = req.SiteHint
	}
	return req.Options
}

// engineFromOptions reports the engine a request will run on.
func engineFromOptions(options *models.ScrapeOptions) string {
	if options != nil && options.Engine != "" {
		return options.Engine
	}
	return "hybrid"
}

// scrapeFailureStatus maps a scraping failure to the HTTP status and error
// code reported to the caller.
func scrapeFailureStatus(err error) (int, string) {
	var ce *utils.CustomError
	if errors.As(err, &ce) {
		switch {
		case utils.IsFetchBlocked(err):
			return http.StatusBadGateway, "fetch_blocked"
		case ce.Code == http.StatusTooManyRequests:
			return http.StatusTooManyRequests, "rate_limited"
		case ce.Code == http.StatusBadRequest:
			return http.StatusBadRequest, "invalid_request"
		case ce.Code == http.StatusRequestTimeout:
			return http.StatusGatewayTimeout, "scrape_timeout"
		}
	}
	return http.StatusInternalServerError, "scraping_failed"
}

// ScrapeHandler handles synchronous product scraping requests using the
// worker pool
func ScrapeHandler(cfg *config.Config, poolManager *workers.PoolManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		startTime := time.Now()
		reqID := requestID(c)
		logger := utils.LogWithRequestID(reqID)

		logger.Info("Scrape request received")

		var req models.ScrapeRequest
		if err := c.Bind(&req); err != nil {
			logger.WithError(err).Error("Failed to bind request")
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request format",
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		if err := validate.Struct(&req); err != nil {
			logger.WithError(err).Error("Request validation failed")
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   err.Error(),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		if err := validation.ValidateProductURL(req.URL, cfg.Server.AllowPrivateHosts); err != nil {
			logger.WithError(err).Warn("Rejected scrape URL")
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_url",
				Message:   err.Error(),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		logger.WithField("url", req.URL).Info("Processing scrape request")

		options := mergedOptions(&req)
		ctx := c.Request().Context()
		result, err := poolManager.SubmitJob(ctx, req.URL, options)
		if err != nil {
			status, code := scrapeFailureStatus(err)
			logger.WithError(err).Error("Failed to submit job to worker pool")
			return c.JSON(status, models.ErrorResponse{
				Error:     code,
				Message:   fmt.Sprintf("Failed to submit scraping job: %v", err),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		if result.Error != nil {
			status, code := scrapeFailureStatus(result.Error)
			logger.WithError(result.Error).Error("Scraping job failed")
			return c.JSON(status, models.ErrorResponse{
				Error:     code,
				Message:   fmt.Sprintf("Failed to scrape product page: %v", result.Error),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		product := result.Product
		engine := engineFromOptions(options)

		response := models.ScrapeResponse{
			Success:        true,
			Product:        product,
			ProcessingTime: time.Since(startTime),
			Engine:         engine,
			RequestID:      reqID,
		}

		logger.WithFields(map[string]interface{}{
			"processing_time": time.Since(startTime),
			"product_name":    product.Name,
			"price":           product.PriceValue(),
			"source_method":   product.SourceMethod,
			"engine":          engine,
		}).Info("Scrape request completed successfully")

		return c.JSON(http.StatusOK, response)
	}
}

// ScrapeAsyncHandler accepts a scrape request for background processing and
// returns a process ID the caller can poll
func ScrapeAsyncHandler(cfg *config.Config, poolManager *workers.PoolManager, taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := requestID(c)
		logger := utils.LogWithRequestID(reqID)

		var req models.ScrapeRequest
		if err := c.Bind(&req); err != nil {
			logger.WithError(err).Error("Failed to bind async scrape request")
			return c.JSON(http.StatusBadRequest, models.CreateAsyncErrorResponse(
				"invalid_request",
				"Invalid request format",
			))
		}

		if err := validate.Struct(&req); err != nil {
			logger.WithError(err).Error("Async scrape request validation failed")
			return c.JSON(http.StatusBadRequest, models.CreateAsyncErrorResponse(
				"validation_failed",
				err.Error(),
			))
		}

		if err := validation.ValidateProductURL(req.URL, cfg.Server.AllowPrivateHosts); err != nil {
			logger.WithError(err).Warn("Rejected async scrape URL")
			return c.JSON(http.StatusBadRequest, models.CreateAsyncErrorResponse(
				"invalid_url",
				err.Error(),
			))
		}

		req.Options = mergedOptions(&req)
		processID := utils.GenerateScrapeProcessID()

		logger.WithFields(map[string]interface{}{
			"process_id": processID,
			"url":        req.URL,
		}).Info("Submitting scrape task for background processing")

		if err := taskManager.SubmitScrapeTask(c.Request().Context(), processID, req, poolManager); err != nil {
			logger.WithError(err).Error("Failed to submit background scrape task")
			status := http.StatusInternalServerError
			if err.Error() == "task queue is full" {
				status = http.StatusServiceUnavailable
			}
			return c.JSON(status, models.CreateAsyncErrorResponse(
				"task_submission_failed",
				fmt.Sprintf("Failed to submit scraping task: %v", err),
				processID,
			))
		}

		return c.JSON(http.StatusAccepted, models.CreateAsyncScrapeResponse(processID))
	}
}

// TaskStatusHandler reports the status and result of a background task
func TaskStatusHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := requestID(c)
		logger := utils.LogWithRequestID(reqID)

		processID := c.Param("process_id")
		if processID == "" {
			return c.JSON(http.StatusBadRequest, models.CreateAsyncErrorResponse(
				"missing_process_id",
				"Process ID parameter is required",
			))
		}

		result, err := taskManager.GetTaskResult(c.Request().Context(), processID)
		if err != nil {
			if errors.Is(err, background.ErrTaskNotFound) {
				return c.JSON(http.StatusNotFound, models.CreateAsyncErrorResponse(
					"task_not_found",
					fmt.Sprintf("No task found for process ID %s", processID),
					processID,
				))
			}
			logger.WithError(err).Error("Failed to look up task result")
			return c.JSON(http.StatusInternalServerError, models.CreateAsyncErrorResponse(
				"task_lookup_failed",
				"Failed to look up task result",
				processID,
			))
		}

		return c.JSON(http.StatusOK, taskResponse(result))
	}
}

// TaskListHandler lists the tasks the manager currently retains, in
// unspecified order. Monitoring surface, not part of the scrape flow.
func TaskListHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := requestID(c)
		logger := utils.LogWithRequestID(reqID)

		results, err := taskManager.ListTasks(c.Request().Context())
		if err != nil {
			logger.WithError(err).Error("Failed to list background tasks")
			return c.JSON(http.StatusInternalServerError, models.CreateAsyncErrorResponse(
				"task_list_failed",
				"Failed to list background tasks",
			))
		}

		tasks := make([]models.AsyncTaskStatusResponse, 0, len(results))
		for _, result := range results {
			tasks = append(tasks, taskResponse(result))
		}

		return c.JSON(http.StatusOK, models.AsyncTaskListResponse{
			Success: true,
			Tasks:   tasks,
			Count:   len(tasks),
		})
	}
}

// taskResponse converts a stored task result to its wire form. Scrape
// completion data is re-housed in the public model so the response shape
// does not depend on internal task types.
func taskResponse(result *background.TaskResult) models.AsyncTaskStatusResponse {
	response := models.AsyncTaskStatusResponse{
		ProcessID:      result.ProcessID,
		Status:         models.AsyncStatus(result.Status),
		Data:           result.Data,
		Error:          result.Error,
		CreatedAt:      result.CreatedAt,
		CompletedAt:    result.CompletedAt,
		ProcessingTime: result.ProcessingTime,
		Metadata:       result.Metadata,
	}
	if data, ok := result.Data.(*background.ScrapeTaskData); ok {
		response.Data = &models.AsyncScrapeCompletionData{
			Product: data.Product,
			Engine:  data.Engine,
			UsedAI:  data.UsedAI,
		}
	}
	return response
}
