package static

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/scraper/extract"
	"pricewatch-utils/internal/scraper/fetch"
	"pricewatch-utils/internal/scraper/resolve"
	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// StaticScraper extracts products from plain fetched HTML without model
// assistance: structured data first, then the heuristic locator tables and
// the price resolution cascade.
type StaticScraper struct {
	config  *config.Config
	fetcher *fetch.Fetcher
	logger  *logrus.Logger
}

// NewStaticScraper creates a new static scraper instance
func NewStaticScraper(cfg *config.Config) *StaticScraper {
	return &StaticScraper{
		config:  cfg,
		fetcher: fetch.NewFetcher(cfg),
		logger:  utils.GetLogger(),
	}
}

// FetchPage retrieves the raw HTML for a product URL. Exposed so composing
// engines can fetch once and extract several ways.
func (s *StaticScraper) FetchPage(ctx context.Context, url string) (*fetch.Result, error) {
	return s.fetcher.Fetch(ctx, url)
}

// ScrapeProduct fetches a product page and runs the extraction ladder over
// it. Partial results are returned as-is; only fetch problems are errors.
func (s *StaticScraper) ScrapeProduct(ctx context.Context, rawURL string, options *models.ScrapeOptions) (*models.ScrapedProduct, error) {
	page, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	trace := &models.ExtractionTrace{URL: rawURL}
	product := s.ExtractPage(page.HTML, page.FinalURL, options.EffectiveSiteHint(), trace)

	s.logger.WithFields(logrus.Fields{
		"url":           rawURL,
		"product_name":  product.Name,
		"price":         product.PriceValue(),
		"confidence":    product.Confidence,
		"source_method": product.SourceMethod,
		"steps":         trace.Fields()["steps"],
	}).Info("Static extraction completed")

	return product, nil
}

// ExtractPage runs structured-data and heuristic extraction over already
// fetched HTML. It always returns a product; when nothing was found the
// fields stay zero and no price is attached. A complete structured node
// short-circuits the heuristic pass entirely.
func (s *StaticScraper) ExtractPage(html, pageURL string, hint models.SiteHint, trace *models.ExtractionTrace) *models.ScrapedProduct {
	if trace == nil {
		trace = &models.ExtractionTrace{URL: pageURL}
	}

	product := &models.ScrapedProduct{
		Currency:     "USD",
		Available:    true,
		Site:         utils.ExtractDomain(pageURL),
		SourceMethod: models.SourceMethodHeuristic,
		ScrapedAt:    time.Now().UTC(),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		trace.Record("parse", models.StrategyOutcomeError, err.Error(), 0)
		return product
	}

	start := time.Now()
	structured := extract.ExtractStructured(doc)
	switch {
	case structured != nil && structured.Complete():
		trace.Record("structured", models.StrategyOutcomeHit, "complete product node", time.Since(start))
		applyStructuredFields(product, structured)
		product.SetPrice(*structured.Price)
		product.SourceMethod = models.SourceMethodStructured
		product.PriceSource = models.PriceSourceDirect
		product.Confidence = models.ConfidenceStructured
		return product
	case structured != nil:
		trace.Record("structured", models.StrategyOutcomeHit, "partial product node", time.Since(start))
		applyStructuredFields(product, structured)
	default:
		trace.Record("structured", models.StrategyOutcomeMiss, "", time.Since(start))
	}

	parsedURL, _ := url.Parse(pageURL)
	start = time.Now()
	heuristic := extract.ExtractHeuristic(doc, html, parsedURL, amazonTable(hint, pageURL))

	if product.Name == "" {
		product.Name = heuristic.Name
	}
	if product.ImageURL == "" {
		product.ImageURL = heuristic.ImageURL
	}

	input := resolve.Input{
		Candidates: heuristic.Candidates,
		Meta:       extract.MetaPrice(doc),
		Freeform:   extract.FreeformPrice(html),
	}
	if structured != nil {
		input.StructuredPrice = structured.Price
	}

	if resolution := resolve.Price(input); resolution != nil {
		product.SetPrice(resolution.Price)
		product.PriceSource = models.PriceSourceDirect
		product.Confidence = resolve.Confidence(resolution.Source)
		trace.Record("heuristic", models.StrategyOutcomeHit,
			fmt.Sprintf("%.2f via %s from %d candidates", resolution.Price, resolution.Source, len(heuristic.Candidates)),
			time.Since(start))
	} else if product.Name != "" {
		trace.Record("heuristic", models.StrategyOutcomeHit, "name only, no price", time.Since(start))
	} else {
		trace.Record("heuristic", models.StrategyOutcomeMiss, "", time.Since(start))
	}

	return product
}

// Cleanup releases any resources used by the scraper
func (s *StaticScraper) Cleanup() {}

// IsHealthy returns true if the scraper is ready to process requests
func (s *StaticScraper) IsHealthy() bool {
	return s.fetcher != nil
}

// applyStructuredFields copies the non-price fields of a structured node
// onto the product. Price flows through the resolver so locator candidates
// can outrank it.
func applyStructuredFields(product *models.ScrapedProduct, structured *extract.Structured) {
	if structured.Name != "" {
		product.Name = structured.Name
	}
	if structured.Currency != "" {
		product.Currency = structured.Currency
	}
	if structured.ImageURL != "" {
		product.ImageURL = structured.ImageURL
	}
	if structured.Description != "" {
		product.Description = structured.Description
	}
	if structured.Brand != "" {
		product.Brand = structured.Brand
	}
	if structured.Available != nil {
		product.Available = *structured.Available
	}
}

// amazonTable decides whether the Amazon locator table applies. An explicit
// hint overrides URL sniffing.
func amazonTable(hint models.SiteHint, pageURL string) bool {
	switch hint {
	case models.SiteHintAmazon:
		return true
	case models.SiteHintGeneric:
		return false
	default:
		return utils.IsAmazonURL(pageURL)
	}
}
