package hybrid

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/llm"
	"pricewatch-utils/internal/scraper/engines/static"
	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// HybridScraper implements the full extraction ladder: one fetch, then
// heuristic extraction and the AI fallback ordered by domain familiarity.
// Known storefronts are extracted heuristically first; unknown domains go
// through the model first because their markup has no locator table.
type HybridScraper struct {
	config        *config.Config
	llmManager    *llm.Manager
	staticScraper *static.StaticScraper
	retailDomains *utils.RetailDomainManager
	logger        *logrus.Logger
}

// NewHybridScraper creates a new hybrid scraper instance
func NewHybridScraper(cfg *config.Config, llmManager *llm.Manager) *HybridScraper {
	logger := utils.GetLogger()

	staticScraper := static.NewStaticScraper(cfg)
	retailDomains := utils.NewRetailDomainManager()
	logger.WithField("known_retail_domains", retailDomains.GetDomainsCount()).Info("Hybrid scraper initialized with heuristic (primary) and AI (fallback)")

	return &HybridScraper{
		config:        cfg,
		llmManager:    llmManager,
		staticScraper: staticScraper,
		retailDomains: retailDomains,
		logger:        logger,
	}
}

// ScrapeProduct scrapes a product page using the hybrid approach. The page is
// fetched exactly once; fetch blocks and failures are the only hard errors.
// Everything downstream degrades to a partial result.
func (h *HybridScraper) ScrapeProduct(ctx context.Context, url string, options *models.ScrapeOptions) (*models.ScrapedProduct, error) {
	h.logger.WithField("url", url).Info("Starting hybrid product scrape")

	page, err := h.staticScraper.FetchPage(ctx, url)
	if err != nil {
		// Don't wrap CustomError types so they can be properly handled upstream
		if _, ok := err.(*utils.CustomError); ok {
			return nil, err
		}
		return nil, fmt.Errorf("page fetch failed: %w", err)
	}

	trace := &models.ExtractionTrace{URL: url}
	heuristic := h.staticScraper.ExtractPage(page.HTML, page.FinalURL, options.EffectiveSiteHint(), trace)

	if heuristic.SourceMethod == models.SourceMethodStructured {
		h.learnDomain(page.FinalURL)
		h.logResult(url, heuristic, trace, "structured")
		return heuristic, nil
	}

	aiAllowed := h.aiAllowed(options)
	known := h.retailDomains.IsKnownRetailDomain(page.FinalURL)

	if known || !aiAllowed {
		if h.heuristicAccepted(heuristic) {
			h.learnDomain(page.FinalURL)
			h.logResult(url, heuristic, trace, "heuristic_primary")
			return heuristic, nil
		}
		if !aiAllowed {
			h.logResult(url, heuristic, trace, "heuristic_final")
			return heuristic, nil
		}

		ai := h.extractAI(ctx, page.HTML, page.FinalURL, heuristic.Price, trace)
		if ai == nil {
			h.logResult(url, heuristic, trace, "heuristic_final")
			return heuristic, nil
		}
		final := mergeProducts(ai, heuristic)
		h.logResult(url, final, trace, "ai_fallback")
		return final, nil
	}

	// Unknown domain: model first, heuristic result as the safety net.
	ai := h.extractAI(ctx, page.HTML, page.FinalURL, heuristic.Price, trace)
	if ai != nil && h.aiAccepted(ai) {
		final := mergeProducts(ai, heuristic)
		h.logResult(url, final, trace, "ai_primary")
		return final, nil
	}

	final := mergeProducts(heuristic, ai)
	if h.heuristicAccepted(heuristic) {
		h.learnDomain(page.FinalURL)
	}
	h.logResult(url, final, trace, "heuristic_fallback")
	return final, nil
}

// heuristicAccepted reports whether a heuristic result is strong enough to
// skip the model: a price must be present and the resolution rung that
// produced it must clear the configured confidence floor.
func (h *HybridScraper) heuristicAccepted(product *models.ScrapedProduct) bool {
	return product.HasPrice() && product.Name != "" && product.Confidence >= h.config.LLM.MinConfidence
}

// aiAccepted reports whether a model result stands on its own
func (h *HybridScraper) aiAccepted(product *models.ScrapedProduct) bool {
	return product.HasPrice() && product.Confidence > h.config.LLM.MinConfidence
}

// learnDomain records a storefront whose markup produced an accepted result,
// so later scrapes of the same site run heuristics before the model.
func (h *HybridScraper) learnDomain(url string) {
	if h.retailDomains.IsKnownRetailDomain(url) {
		return
	}
	if err := h.retailDomains.AddRetailDomain(url); err != nil {
		h.logger.WithError(err).WithField("url", url).Warn("Failed to record retail domain")
	}
}

// aiAllowed reports whether this request may call the model at all
func (h *HybridScraper) aiAllowed(options *models.ScrapeOptions) bool {
	if h.llmManager == nil {
		return false
	}
	if options != nil && (options.DisableAI || options.LLMProvider == "disabled") {
		return false
	}
	return true
}

// extractAI runs the model extraction and records the attempt. Returns nil
// when the model is unavailable or errored; the caller falls back to the
// heuristic result.
func (h *HybridScraper) extractAI(ctx context.Context, html, url string, priceHint *float64, trace *models.ExtractionTrace) *models.ScrapedProduct {
	start := time.Now()
	product, err := h.llmManager.ExtractProduct(ctx, html, url, priceHint)
	if err != nil {
		outcome := models.StrategyOutcomeError
		if utils.IsLLMUnavailable(err) {
			outcome = models.StrategyOutcomeSkipped
		}
		trace.Record("ai", outcome, err.Error(), time.Since(start))
		h.logger.WithFields(logrus.Fields{
			"url":   url,
			"error": err.Error(),
		}).Warn("AI extraction unavailable, keeping heuristic result")
		return nil
	}

	trace.Record("ai", models.StrategyOutcomeHit,
		fmt.Sprintf("confidence %.2f", product.Confidence), time.Since(start))
	return product
}

// mergeProducts fills gaps in the accepted result from the other path
// without overriding anything it already found. When the secondary supplies
// the price, its confidence carries over if higher.
func mergeProducts(primary, secondary *models.ScrapedProduct) *models.ScrapedProduct {
	if primary == nil {
		return secondary
	}
	if secondary == nil {
		return primary
	}

	if primary.Name == "" {
		primary.Name = secondary.Name
	}
	if !primary.HasPrice() && secondary.HasPrice() {
		primary.SetPrice(secondary.PriceValue())
		primary.PriceSource = secondary.PriceSource
		if secondary.Confidence > primary.Confidence {
			primary.Confidence = secondary.Confidence
		}
	}
	if primary.ImageURL == "" {
		primary.ImageURL = secondary.ImageURL
	}
	if primary.Description == "" {
		primary.Description = secondary.Description
	}
	if primary.Brand == "" {
		primary.Brand = secondary.Brand
	}
	if primary.Color == "" {
		primary.Color = secondary.Color
	}
	if primary.Size == "" {
		primary.Size = secondary.Size
	}
	return primary
}

func (h *HybridScraper) logResult(url string, product *models.ScrapedProduct, trace *models.ExtractionTrace, path string) {
	h.logger.WithFields(logrus.Fields{
		"url":           url,
		"product_name":  product.Name,
		"price":         product.PriceValue(),
		"confidence":    product.Confidence,
		"source_method": product.SourceMethod,
		"path":          path,
		"steps":         trace.Fields()["steps"],
	}).Info("Hybrid product scrape completed")
}

// Cleanup releases any resources used by the underlying engines
func (h *HybridScraper) Cleanup() {
	h.staticScraper.Cleanup()
}

// IsHealthy checks the engines behind the ladder. A missing or unhealthy
// model keeps the scraper usable; heuristic extraction alone still serves
// known storefronts.
func (h *HybridScraper) IsHealthy() bool {
	aiHealthy := h.llmManager != nil && h.llmManager.IsHealthy()

	h.logger.WithFields(logrus.Fields{
		"ai_healthy":           aiHealthy,
		"known_retail_domains": h.retailDomains.GetDomainsCount(),
	}).Debug("Hybrid scraper health check")

	return h.staticScraper.IsHealthy()
}

// GetRetailDomains returns information about known retail domains for
// monitoring endpoints
func (h *HybridScraper) GetRetailDomains() map[string]interface{} {
	return map[string]interface{}{
		"count":   h.retailDomains.GetDomainsCount(),
		"domains": h.retailDomains.GetKnownDomains(),
	}
}
