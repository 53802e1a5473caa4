package scraper

import (
	"fmt"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/llm"
	"pricewatch-utils/internal/scraper/engines/hybrid"
	"pricewatch-utils/internal/scraper/engines/static"
)

// DefaultScraperFactory implements ScraperFactory
type DefaultScraperFactory struct {
	config     *config.Config
	llmManager *llm.Manager
}

// NewScraperFactory creates a new scraper factory
func NewScraperFactory(cfg *config.Config, llmManager *llm.Manager) ScraperFactory {
	return &DefaultScraperFactory{
		config:     cfg,
		llmManager: llmManager,
	}
}

// CreateScraper creates a new scraper instance for the given engine
func (f *DefaultScraperFactory) CreateScraper(engine string) (Scraper, error) {
	switch engine {
	case "static":
		return static.NewStaticScraper(f.config), nil
	case "hybrid", "auto", "":
		return hybrid.NewHybridScraper(f.config, f.llmManager), nil
	default:
		return nil, fmt.Errorf("unsupported scraping engine: %s", engine)
	}
}

// GetSupportedEngines returns a list of supported engine types
func (f *DefaultScraperFactory) GetSupportedEngines() []string {
	return []string{"static", "hybrid", "auto"}
}
