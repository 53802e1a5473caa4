package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/metrics"
	"pricewatch-utils/pkg/utils"
)

// maxBodySize caps how much of a response body is read. Product pages are
// large but bounded; anything past this is not going to hold a price.
const maxBodySize = 10 << 20 // 10MB

// Result is the outcome of a successful page fetch
type Result struct {
	HTML       string
	StatusCode int
	FinalURL   string
	Attempts   int
}

// Fetcher retrieves product pages over plain HTTP with a rotating browser
// identity. Every attempt presents a fresh user agent, waits a randomized
// delay first, and the fetched body is scanned for block fingerprints before
// being handed to extraction.
type Fetcher struct {
	config   *config.Config
	client   *http.Client
	rotator  *agentRotator
	detector *BlockDetector
	logger   *logrus.Logger
}

// NewFetcher creates a new fetcher from configuration
func NewFetcher(cfg *config.Config) *Fetcher {
	client := &http.Client{
		Timeout: cfg.Scraper.RequestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
		},
	}

	return &Fetcher{
		config:   cfg,
		client:   client,
		rotator:  newAgentRotator(cfg.Scraper.UserAgents),
		detector: NewBlockDetector(),
		logger:   utils.GetLogger(),
	}
}

// Fetch retrieves the HTML for a product URL. It retries transient failures
// up to the configured bound with a growing randomized wait, rotating the
// browser identity each attempt. A detected block page is returned
// immediately as a blocked error without burning further attempts on the
// same wall.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	targetURL, err := utils.NormalizeProductURL(rawURL)
	if err != nil {
		return nil, utils.NewBadRequestError(fmt.Sprintf("invalid URL: %v", err))
	}
	isAmazon := utils.IsAmazonURL(rawURL)

	maxAttempts := f.config.Scraper.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Pre-request jitter keeps the request pattern irregular
		if err := sleepContext(ctx, f.jitter(isAmazon)); err != nil {
			return nil, utils.NewTimeoutError("fetch cancelled: " + err.Error())
		}

		result, blocked, err := f.attempt(ctx, targetURL, isAmazon)
		if blocked != nil {
			f.logger.WithFields(logrus.Fields{
				"url":        rawURL,
				"attempt":    attempt,
				"block_type": blocked.Type,
				"score":      blocked.Score,
			}).Warn("Fetch blocked by anti-bot page")
			return nil, utils.NewFetchBlockedError(blocked.Reason)
		}
		if err == nil {
			result.Attempts = attempt
			f.logger.WithFields(logrus.Fields{
				"url":     rawURL,
				"attempt": attempt,
				"status":  result.StatusCode,
				"bytes":   len(result.HTML),
			}).Debug("Fetched product page")
			return result, nil
		}

		lastErr = err
		if attempt < maxAttempts {
			metrics.FetchRetriesTotal.Inc()
			wait := f.retryWait()
			f.logger.WithFields(logrus.Fields{
				"url":     rawURL,
				"attempt": attempt,
				"wait":    wait.String(),
				"error":   err.Error(),
			}).Debug("Fetch attempt failed, retrying")
			if err := sleepContext(ctx, wait); err != nil {
				return nil, utils.NewTimeoutError("fetch cancelled: " + err.Error())
			}
		}
	}

	return nil, utils.NewFetchFailedError(fmt.Sprintf("all %d attempts failed: %v", maxAttempts, lastErr))
}

// attempt performs a single request. The returned BlockCheck is non-nil when
// the page was recognized as a block wall.
func (f *Fetcher) attempt(ctx context.Context, targetURL string, isAmazon bool) (*Result, *BlockCheck, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request: %w", err)
	}

	for key, value := range browserHeaders(f.rotator.next()) {
		req.Header.Set(key, value)
	}

	if isAmazon {
		for _, cookie := range amazonCookies() {
			req.AddCookie(cookie)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	html := string(body)

	// Blocking statuses and fingerprinted bodies are a wall, not a failure;
	// retrying immediately with another agent just feeds the blocker.
	if check := f.detector.Check(html, resp.StatusCode); check.Blocked {
		return nil, &check, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	finalURL := targetURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Result{
		HTML:       html,
		StatusCode: resp.StatusCode,
		FinalURL:   finalURL,
	}, nil, nil
}

// jitter returns the randomized pre-request delay for the target class
func (f *Fetcher) jitter(isAmazon bool) time.Duration {
	delays := f.config.Scraper.Delays
	if isAmazon {
		return randomDuration(delays.AmazonMin, delays.AmazonMax)
	}
	return randomDuration(delays.GenericMin, delays.GenericMax)
}

// retryWait returns the randomized wait before the next attempt
func (f *Fetcher) retryWait() time.Duration {
	delays := f.config.Scraper.Delays
	return randomDuration(delays.RetryMin, delays.RetryMax)
}

// randomDuration picks a duration uniformly from [min, max]
func randomDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// amazonCookies returns the session cookies Amazon expects from a US browser
// session. i18n-prefs pins prices to USD so they parse consistently.
func amazonCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: "session-id", Value: randomDigitGroup()},
		{Name: "session-id-time", Value: "2082787201l"},
		{Name: "i18n-prefs", Value: "USD"},
		{Name: "ubid-acbus", Value: randomDigitGroup()},
	}
}

// randomDigitGroup produces a value in Amazon's NNN-NNNNNNN-NNNNNNN format
func randomDigitGroup() string {
	digits := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = byte('0' + rand.Intn(10))
		}
		return string(b)
	}
	return digits(3) + "-" + digits(7) + "-" + digits(7)
}

// sleepContext sleeps for d or until the context is cancelled
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
