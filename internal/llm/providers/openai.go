package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/llm/processors"
	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// OpenAIProvider implements the LLM provider interface using OpenAI chat
// completions
type OpenAIProvider struct {
	client      *openai.Client
	config      *config.Config
	htmlCleaner *processors.HTMLCleaner
	logger      *logrus.Logger
}

// NewOpenAIProvider creates a new OpenAI provider instance
func NewOpenAIProvider(cfg *config.Config) *OpenAIProvider {
	return &OpenAIProvider{
		client:      openai.NewClient(cfg.LLM.OpenAIAPIKey),
		config:      cfg,
		htmlCleaner: processors.NewHTMLCleaner(),
		logger:      utils.GetLogger(),
	}
}

// model picks the configured model when it is an OpenAI one, falling back to
// GPT-4o. The shared model setting may hold a Claude model name when OpenAI
// is only the alternate provider.
func (op *OpenAIProvider) model() string {
	if strings.HasPrefix(op.config.LLM.Model, "gpt") {
		return op.config.LLM.Model
	}
	return openai.GPT4o
}

// ExtractProduct extracts structured product data from cleaned page content
// using an OpenAI chat completion in JSON mode
func (op *OpenAIProvider) ExtractProduct(ctx context.Context, content, url string, priceHint *float64) (*models.ScrapedProduct, error) {
	startTime := time.Now()

	op.logger.WithFields(logrus.Fields{
		"url":            url,
		"content_length": len(content),
		"provider":       "openai",
	}).Info("Starting product extraction with OpenAI")

	amazon := utils.IsAmazonURL(url)
	content = op.htmlCleaner.Truncate(content, contentLimitFor(amazon))
	prompt := buildProductPrompt(content, url, amazon, priceHint)

	resp, err := op.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: op.model(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(op.config.LLM.Temperature),
		MaxTokens:   op.config.LLM.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	responseText := resp.Choices[0].Message.Content
	op.logger.WithField("response_text", responseText).Debug("OpenAI response received")

	product, err := parseProductResponse(responseText, content, url, priceHint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI response: %w", err)
	}

	op.logger.WithFields(logrus.Fields{
		"url":             url,
		"product_name":    product.Name,
		"price":           product.PriceValue(),
		"price_source":    product.PriceSource,
		"processing_time": time.Since(startTime),
		"provider":        "openai",
	}).Info("Product extraction completed successfully")

	return product, nil
}

// GenerateText runs a free-form prompt against OpenAI and returns the raw
// text reply.
func (op *OpenAIProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := op.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: op.model(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: op.config.LLM.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// IsHealthy checks if the OpenAI provider is healthy and available
func (op *OpenAIProvider) IsHealthy(ctx context.Context) error {
	if op.config.LLM.OpenAIAPIKey == "" {
		return fmt.Errorf("OpenAI API key not configured - set OPENAI_API_KEY environment variable")
	}

	if _, err := op.client.ListModels(ctx); err != nil {
		return fmt.Errorf("OpenAI API health check failed: %w", err)
	}
	return nil
}

// GetProviderName returns the name of the LLM provider
func (op *OpenAIProvider) GetProviderName() string {
	return "openai"
}
