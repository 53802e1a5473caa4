package llm

import (
	"context"

	"pricewatch-utils/pkg/models"
)

// LLMProvider defines the interface for LLM providers
type LLMProvider interface {
	// ExtractProduct turns cleaned page content into structured product data.
	// priceHint carries a price already confirmed by direct extraction; it
	// outranks whatever price the model reports.
	ExtractProduct(ctx context.Context, content, url string, priceHint *float64) (*models.ScrapedProduct, error)

	// GenerateText runs a free-form prompt, used for price-change insights
	GenerateText(ctx context.Context, prompt string) (string, error)

	// IsHealthy checks if the LLM provider is healthy and available
	IsHealthy(ctx context.Context) error

	// GetProviderName returns the name of the LLM provider
	GetProviderName() string
}
