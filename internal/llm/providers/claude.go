package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/llm/processors"
	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// ClaudeProvider implements the LLM provider interface using Anthropic's Claude
type ClaudeProvider struct {
	client      anthropic.Client
	config      *config.Config
	htmlCleaner *processors.HTMLCleaner
	logger      *logrus.Logger
}

// NewClaudeProvider creates a new Claude provider instance
func NewClaudeProvider(cfg *config.Config) *ClaudeProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.LLM.APIKey),
	)

	return &ClaudeProvider{
		client:      client,
		config:      cfg,
		htmlCleaner: processors.NewHTMLCleaner(),
		logger:      utils.GetLogger(),
	}
}

// ExtractProduct extracts structured product data from cleaned page content
// using Claude
func (cp *ClaudeProvider) ExtractProduct(ctx context.Context, content, url string, priceHint *float64) (*models.ScrapedProduct, error) {
	startTime := time.Now()

	cp.logger.WithFields(logrus.Fields{
		"url":            url,
		"content_length": len(content),
		"provider":       "claude",
	}).Info("Starting product extraction with Claude")

	amazon := utils.IsAmazonURL(url)
	content = cp.htmlCleaner.Truncate(content, contentLimitFor(amazon))
	prompt := buildProductPrompt(content, url, amazon, priceHint)

	response, err := cp.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(cp.config.LLM.Model),
		MaxTokens:   int64(cp.config.LLM.MaxTokens),
		Temperature: anthropic.Float(float64(cp.config.LLM.Temperature)),
		System: []anthropic.TextBlockParam{
			{Text: extractionSystemPrompt},
		},
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: prompt},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to call Claude API: %w", err)
	}

	responseText, err := claudeResponseText(response)
	if err != nil {
		return nil, err
	}
	cp.logger.WithField("response_text", responseText).Debug("Claude response received")

	product, err := parseProductResponse(responseText, content, url, priceHint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Claude response: %w", err)
	}

	cp.logger.WithFields(logrus.Fields{
		"url":             url,
		"product_name":    product.Name,
		"price":           product.PriceValue(),
		"price_source":    product.PriceSource,
		"processing_time": time.Since(startTime),
		"provider":        "claude",
	}).Info("Product extraction completed successfully")

	return product, nil
}

// GenerateText runs a free-form prompt against Claude and returns the raw
// text reply.
func (cp *ClaudeProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	response, err := cp.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(cp.config.LLM.Model),
		MaxTokens: int64(cp.config.LLM.MaxTokens),
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: prompt},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call Claude API: %w", err)
	}

	return claudeResponseText(response)
}

// claudeResponseText pulls the first text block out of a Claude message.
func claudeResponseText(response *anthropic.Message) (string, error) {
	if len(response.Content) == 0 {
		return "", fmt.Errorf("empty response from Claude")
	}

	var responseText string
	for _, content := range response.Content {
		textContent := content.AsText()
		responseText = textContent.Text
		break
	}
	if responseText == "" {
		return "", fmt.Errorf("no text content in Claude response")
	}
	return responseText, nil
}

// IsHealthy checks if the Claude provider is healthy and available
func (cp *ClaudeProvider) IsHealthy(ctx context.Context) error {
	// Check if API key is configured
	if cp.config.LLM.APIKey == "" {
		return fmt.Errorf("Claude API key not configured - set LLM_API_KEY environment variable")
	}

	// Create a simple test request to check if the API is accessible
	_, err := cp.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(cp.config.LLM.Model),
		MaxTokens: 16,
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: "Hello"},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})

	if err != nil {
		return fmt.Errorf("Claude API health check failed: %w", err)
	}

	return nil
}

// GetProviderName returns the name of the LLM provider
func (cp *ClaudeProvider) GetProviderName() string {
	return "claude"
}
