package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/llm/processors"
	"pricewatch-utils/internal/metrics"
	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// Retry policy for transient model API failures. The stub result is the
// terminal fallback; extraction never surfaces a provider error to callers.
const (
	maxExtractAttempts = 3
	initialRetryDelay  = time.Second
)

// Manager manages LLM providers and their lifecycle
type Manager struct {
	config     *config.Config
	factory    *LLMFactory
	redis      *utils.RedisClient
	provider   LLMProvider
	cleaner    *processors.HTMLCleaner
	cache      *extractionCache
	logger     *logrus.Logger
	retryDelay time.Duration
	mu         sync.RWMutex
	healthy    bool
}

// NewManager creates a new LLM manager instance. The Redis client is
// optional; pass nil to keep the extraction cache process-local.
func NewManager(cfg *config.Config, redis *utils.RedisClient) *Manager {
	return &Manager{
		config:     cfg,
		factory:    NewLLMFactory(cfg),
		redis:      redis,
		cleaner:    processors.NewHTMLCleaner(),
		logger:     utils.GetLogger(),
		retryDelay: initialRetryDelay,
	}
}

// Start initializes the LLM manager and creates the provider
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.WithField("provider", m.config.LLM.Provider).Info("Starting LLM manager")

	provider, err := m.factory.CreateProvider()
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}

	m.provider = provider
	m.cache = newExtractionCache(m.config.LLM.CacheTTL, m.redis)

	ctx, cancel := context.WithTimeout(context.Background(), m.config.LLM.Timeout)
	defer cancel()

	if err := m.provider.IsHealthy(ctx); err != nil {
		m.logger.WithError(err).Warn("LLM provider health check failed - AI extraction will be disabled")
		m.healthy = false
		// Server still starts; scraping degrades to heuristics only
	} else {
		m.healthy = true
		m.logger.WithField("provider", m.provider.GetProviderName()).Info("LLM manager started successfully")
	}

	return nil
}

// Stop shuts down the LLM manager
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Stopping LLM manager")
	if m.cache != nil {
		m.cache.close()
	}
	m.provider = nil
	m.healthy = false
	return nil
}

// ExtractProduct extracts product data from page HTML using the configured
// provider. The page is cleaned once, checked against the extraction cache,
// and only sent to the model on a miss. Provider errors are retried with
// doubling backoff and finally degrade to the fallback stub, never an error.
// The only hard error is an unavailable provider.
func (m *Manager) ExtractProduct(ctx context.Context, html, url string, priceHint *float64) (*models.ScrapedProduct, error) {
	m.mu.RLock()
	provider := m.provider
	healthy := m.healthy
	cache := m.cache
	m.mu.RUnlock()

	if provider == nil || !healthy {
		return nil, utils.NewLLMUnavailableError("check API key configuration (set LLM_API_KEY environment variable)")
	}

	cleaned := m.cleaner.CleanProductHTML(html)
	key := extractionCacheKey(url, cleaned)
	if product, ok := cache.get(ctx, key); ok {
		m.logger.WithFields(logrus.Fields{
			"url":      url,
			"provider": provider.GetProviderName(),
		}).Debug("AI extraction cache hit")
		metrics.RecordAIExtraction("cache_hit")
		return product, nil
	}

	var product *models.ScrapedProduct
	var err error
	delay := m.retryDelay
	for attempt := 1; attempt <= maxExtractAttempts; attempt++ {
		product, err = provider.ExtractProduct(ctx, cleaned, url, priceHint)
		if err == nil {
			break
		}
		if attempt == maxExtractAttempts {
			break
		}
		m.logger.WithError(err).WithFields(logrus.Fields{
			"url":     url,
			"attempt": attempt,
		}).Warn("AI extraction attempt failed, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			metrics.RecordAIExtraction("fallback")
			return fallbackProduct(url, priceHint), nil
		}
		delay *= 2
	}
	if err != nil {
		m.logger.WithError(err).WithField("url", url).Error("AI extraction failed after retries, returning fallback stub")
		metrics.RecordAIExtraction("fallback")
		return fallbackProduct(url, priceHint), nil
	}

	metrics.RecordAIExtraction("success")
	cache.put(ctx, key, product)
	return product, nil
}

// GenerateText runs a free-form prompt against the configured provider.
func (m *Manager) GenerateText(ctx context.Context, prompt string) (string, error) {
	m.mu.RLock()
	provider := m.provider
	healthy := m.healthy
	m.mu.RUnlock()

	if provider == nil || !healthy {
		return "", utils.NewLLMUnavailableError("check API key configuration")
	}

	return provider.GenerateText(ctx, prompt)
}

// IsHealthy checks if the LLM manager and provider are healthy
func (m *Manager) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy && m.provider != nil
}

// GetProviderName returns the name of the current LLM provider
func (m *Manager) GetProviderName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.provider != nil {
		return m.provider.GetProviderName()
	}
	return "none"
}

// CacheSize reports how many extraction results the memory tier holds.
func (m *Manager) CacheSize() int {
	m.mu.RLock()
	cache := m.cache
	m.mu.RUnlock()

	if cache == nil {
		return 0
	}
	return cache.size()
}

// CheckHealth performs a health check on the LLM provider
func (m *Manager) CheckHealth(ctx context.Context) error {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	if provider == nil {
		return fmt.Errorf("LLM provider not available")
	}

	err := provider.IsHealthy(ctx)

	m.mu.Lock()
	m.healthy = (err == nil)
	m.mu.Unlock()

	return err
}

// fallbackProduct is the fail-soft stub: extraction trouble degrades to a
// placeholder so a direct-extracted price is never lost. No price hint means
// no price at all; a zero would be indistinguishable from a real amount.
func fallbackProduct(url string, priceHint *float64) *models.ScrapedProduct {
	product := &models.ScrapedProduct{
		Name:         "Product",
		Currency:     "USD",
		Available:    true,
		Site:         utils.ExtractDomain(url),
		SourceMethod: models.SourceMethodAI,
		PriceSource:  models.PriceSourceFallback,
		Confidence:   models.ConfidenceStub,
		ScrapedAt:    time.Now().UTC(),
	}
	if priceHint != nil {
		product.SetPrice(*priceHint)
	}
	return product
}
