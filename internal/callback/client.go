package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// retryDelay is the base for the linear backoff between webhook attempts.
const retryDelay = 500 * time.Millisecond

// Payload is the JSON body POSTed to the configured callback URL when an
// async task finishes.
type Payload struct {
	ProcessID      string                 `json:"process_id"`
	Status         string                 `json:"status"`
	Operation      string                 `json:"operation"`
	Product        *models.ScrapedProduct `json:"product,omitempty"`
	Error          string                 `json:"error,omitempty"`
	ProcessingTime string                 `json:"processing_time"`
	Timestamp      time.Time              `json:"timestamp"`
}

// Client delivers task completion webhooks. Delivery is best-effort: the
// caller logs failures and never propagates them into task state.
type Client struct {
	config     *config.Config
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a webhook client from the callback configuration.
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.Callback.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     utils.GetLogger(),
	}
}

// Enabled reports whether completion webhooks are configured.
func (c *Client) Enabled() bool {
	return c.config.Callback.Enabled && c.config.Callback.URL != ""
}

// Send POSTs the payload to the callback URL, retrying transient failures
// with linear backoff. Returns the last error after retries are exhausted.
func (c *Client) Send(ctx context.Context, payload *Payload) error {
	if !c.Enabled() {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal callback payload: %w", err)
	}

	maxRetries := c.config.Callback.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.post(ctx, body)
		if lastErr == nil {
			c.logger.WithFields(logrus.Fields{
				"process_id": payload.ProcessID,
				"status":     payload.Status,
				"url":        c.config.Callback.URL,
				"attempt":    attempt + 1,
			}).Info("Callback delivered")
			return nil
		}

		c.logger.WithFields(logrus.Fields{
			"process_id": payload.ProcessID,
			"attempt":    attempt + 1,
			"error":      lastErr.Error(),
		}).Warn("Callback delivery attempt failed")
	}

	return fmt.Errorf("callback delivery failed after %d attempts: %w", maxRetries+1, lastErr)
}

// post performs a single delivery attempt. The request is rebuilt each call
// because a consumed body cannot be resent.
func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Callback.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
