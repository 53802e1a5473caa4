package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"pricewatch-utils/internal/api/validation"
	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/tracker"
	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// TrackProductHandler ingests a product URL into the tracker. The page is
// scraped immediately; a page without a product name is rejected.
func TrackProductHandler(cfg *config.Config, svc *tracker.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := requestID(c)
		logger := utils.LogWithRequestID(reqID)

		logger.Info("Track product request received")

		var req models.TrackRequest
		if err := c.Bind(&req); err != nil {
			logger.WithError(err).Error("Failed to bind track request")
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request format",
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		if err := validate.Struct(&req); err != nil {
			logger.WithError(err).Error("Track request validation failed")
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   err.Error(),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		if err := validation.ValidateProductURL(req.URL, cfg.Server.AllowPrivateHosts); err != nil {
			logger.WithError(err).Warn("Rejected track URL")
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_url",
				Message:   err.Error(),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		product, baseline, err := svc.Track(c.Request().Context(), req.URL, req.Email)
		if err != nil {
			status, code := scrapeFailureStatus(err)
			logger.WithError(err).Error("Failed to track product")
			return c.JSON(status, models.ErrorResponse{
				Error:     code,
				Message:   err.Error(),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		logger.WithFields(map[string]interface{}{
			"product_id":   product.ID,
			"product_name": product.Name,
			"watchers":     len(product.Watchers),
		}).Info("Product tracked successfully")

		return c.JSON(http.StatusOK, models.TrackResponse{
			Success:   true,
			Product:   product,
			Baseline:  baseline,
			RequestID: reqID,
			Timestamp: time.Now(),
		})
	}
}

// ListProductsHandler returns every tracked product
func ListProductsHandler(svc *tracker.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := requestID(c)
		logger := utils.LogWithRequestID(reqID)

		products, err := svc.ListProducts(c.Request().Context())
		if err != nil {
			logger.WithError(err).Error("Failed to list tracked products")
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:     "list_failed",
				Message:   "Failed to list tracked products",
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"success":    true,
			"products":   products,
			"count":      len(products),
			"request_id": reqID,
			"timestamp":  time.Now(),
		})
	}
}

// ProductHistoryHandler returns a tracked product with its price history
func ProductHistoryHandler(svc *tracker.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := requestID(c)
		logger := utils.LogWithRequestID(reqID)

		id := c.Param("id")
		if id == "" {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "missing_product_id",
				Message:   "Product ID parameter is required",
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		product, history, err := svc.GetHistory(c.Request().Context(), id)
		if err != nil {
			if errors.Is(err, tracker.ErrNotFound) {
				return c.JSON(http.StatusNotFound, models.ErrorResponse{
					Error:     "product_not_found",
					Message:   "No tracked product with that ID",
					RequestID: reqID,
					Timestamp: time.Now(),
				})
			}
			logger.WithError(err).Error("Failed to load product history")
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:     "history_failed",
				Message:   "Failed to load product history",
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		return c.JSON(http.StatusOK, models.HistoryResponse{
			Success:   true,
			Product:   product,
			History:   history,
			RequestID: reqID,
			Timestamp: time.Now(),
		})
	}
}

// CheckProductsHandler triggers an immediate re-check of every tracked
// product and reports the per-product outcomes
func CheckProductsHandler(svc *tracker.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := requestID(c)
		logger := utils.LogWithRequestID(reqID)

		logger.Info("Manual price check triggered")

		results, err := svc.CheckAll(c.Request().Context())
		if err != nil {
			logger.WithError(err).Error("Price check failed")
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:     "check_failed",
				Message:   "Failed to run price check",
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		changed := 0
		failed := 0
		for _, r := range results {
			switch r.Outcome {
			case tracker.OutcomeChanged:
				changed++
			case tracker.OutcomeFailed:
				failed++
			}
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"success":    true,
			"results":    results,
			"checked":    len(results),
			"changed":    changed,
			"failed":     failed,
			"request_id": reqID,
			"timestamp":  time.Now(),
		})
	}
}
