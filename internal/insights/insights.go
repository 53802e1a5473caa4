package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// NotAvailable is the placeholder stored when no insight could be produced.
const NotAvailable = "Not available"

// Thresholds for the worth-it verdict relative to the historical average.
const (
	goodDealRatio = 0.9
	overpayRatio  = 1.1
)

// TextGenerator produces freeform text from a prompt. The LLM manager
// satisfies it; tests swap in a canned implementation.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Generator turns a price change into a short buying insight and a review
// summary. Failures degrade to placeholders so a history write is never
// blocked on the model.
type Generator struct {
	llm    TextGenerator
	logger *logrus.Logger
}

// NewGenerator creates an insight generator. A nil TextGenerator disables
// model calls and every summary returns placeholders.
func NewGenerator(llm TextGenerator) *Generator {
	return &Generator{
		llm:    llm,
		logger: utils.GetLogger(),
	}
}

// Summarize asks the model for a price-change insight and a review summary.
func (g *Generator) Summarize(ctx context.Context, name string, oldPrice, newPrice float64, description string) (string, string) {
	if g.llm == nil {
		return NotAvailable, NotAvailable
	}

	prompt := buildInsightPrompt(name, oldPrice, newPrice, description)

	text, err := g.llm.GenerateText(ctx, prompt)
	if err != nil {
		g.logger.WithFields(logrus.Fields{
			"product": name,
			"error":   err.Error(),
		}).Warn("Insight generation failed, using placeholders")
		return NotAvailable, NotAvailable
	}

	return parseInsightResponse(text)
}

func buildInsightPrompt(name string, oldPrice, newPrice float64, description string) string {
	var b strings.Builder

	direction := "dropped"
	if newPrice > oldPrice {
		direction = "increased"
	}

	fmt.Fprintf(&b, "The price of %q %s from $%.2f to $%.2f.\n", name, direction, oldPrice, newPrice)
	if description != "" {
		fmt.Fprintf(&b, "Product description: %s\n", truncate(description, 500))
	}
	b.WriteString(`
Respond with exactly two lines:
AI Insight: <one sentence on whether this price change makes the product worth buying now>
Review Analysis: <one sentence summarizing what buyers typically say about this kind of product>

Do not add any other text.`)

	return b.String()
}

// parseInsightResponse picks the two labeled lines out of the model output.
// Missing labels yield placeholders rather than errors.
func parseInsightResponse(text string) (string, string) {
	insight := NotAvailable
	review := NotAvailable

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)

		switch {
		case strings.HasPrefix(lower, "ai insight:"):
			if v := strings.TrimSpace(line[len("ai insight:"):]); v != "" {
				insight = v
			}
		case strings.HasPrefix(lower, "review analysis:"):
			if v := strings.TrimSpace(line[len("review analysis:"):]); v != "" {
				review = v
			}
		}
	}

	return insight, review
}

// WorthIt gives a deterministic verdict by comparing the current price to the
// average of the recorded history. Used as the fallback insight when the
// model is unavailable.
func WorthIt(history []models.PriceEntry, current float64) string {
	if len(history) == 0 {
		return "No price history yet to compare against."
	}

	var sum float64
	for _, entry := range history {
		sum += entry.Price
	}
	avg := sum / float64(len(history))

	switch {
	case current < avg*goodDealRatio:
		return fmt.Sprintf("Good deal: $%.2f is below the recent average of $%.2f.", current, avg)
	case current > avg*overpayRatio:
		return fmt.Sprintf("Consider waiting: $%.2f is above the recent average of $%.2f.", current, avg)
	default:
		return fmt.Sprintf("Typical price: $%.2f is close to the recent average of $%.2f.", current, avg)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
