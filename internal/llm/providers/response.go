package providers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// Prompt content budgets per site class, in characters of cleaned HTML.
const (
	amazonContentLimit  = 10000
	genericContentLimit = 8000
)

// productPayload mirrors the JSON schema the prompt demands. Price stays
// raw: models return bare numbers, quoted numbers, and currency-laden
// strings interchangeably.
type productPayload struct {
	Name        string          `json:"name"`
	Price       json.RawMessage `json:"price"`
	Currency    string          `json:"currency"`
	ImageURL    string          `json:"image_url"`
	Description string          `json:"description"`
	Brand       string          `json:"brand"`
	Available   *bool           `json:"available"`
	Color       string          `json:"color"`
	Size        string          `json:"size"`
}

const extractionSystemPrompt = "You extract product data from retail pages. Always return the CURRENT/DISCOUNTED price, not the list price. Price must be a bare number (0 if not found)."

const amazonPromptRules = `
CRITICAL FOR AMAZON:
- The product name is in <span id="productTitle"> or <meta property="og:title">; extract the exact text without HTML tags
- Look for patterns like -30% $69.95 meaning the current price is $69.95
- Ignore "List Price" and "Was" amounts, those are old prices
`

// buildProductPrompt renders the extraction prompt. The hint line pins a
// price that direct extraction already confirmed; the Amazon rules block
// covers that site's current-versus-list price traps.
func buildProductPrompt(content, url string, amazon bool, priceHint *float64) string {
	hintContext := ""
	if priceHint != nil {
		hintContext = fmt.Sprintf("\nIMPORTANT: Direct current-price extraction found $%.2f. Use this exact price.", *priceHint)
	}
	siteRules := ""
	if amazon {
		siteRules = amazonPromptRules
	}

	return fmt.Sprintf(`Extract product information from this product page.

URL: %s
%s
Return ONLY valid JSON with exactly these fields:
{
  "name": "Exact visible product name/title",
  "price": 69.95,
  "currency": "USD",
  "image_url": "Main product image URL",
  "description": "Product description or key features",
  "brand": "Brand name if available",
  "available": true,
  "color": "Product color if mentioned",
  "size": "Product size/dimensions if mentioned"
}

IMPORTANT RULES:
1. Return ONLY valid JSON, no additional text or explanation
2. "price" MUST be a bare number and MUST be the CURRENT/DISCOUNTED price, not the list price
3. If multiple prices appear, choose the lower current price
4. If a field is not found use "" for strings, 0 for price, true for available
%s
PAGE CONTENT:
%s`, url, hintContext, siteRules, content)
}

// contentLimitFor returns the prompt budget for a page URL.
func contentLimitFor(amazon bool) int {
	if amazon {
		return amazonContentLimit
	}
	return genericContentLimit
}

// stripCodeFences removes markdown code blocks a model may wrap around JSON.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}
	return text
}

// parseProductResponse turns raw model output into a ScrapedProduct. The
// price slot is repaired rather than validated; a direct-extraction hint
// overrides whatever the model said; a degenerate name is re-read from the
// page markup.
func parseProductResponse(responseText, content, url string, priceHint *float64) (*models.ScrapedProduct, error) {
	responseText = stripCodeFences(responseText)
	if responseText == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	var payload productPayload
	if err := json.Unmarshal([]byte(responseText), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w, response: %s", err, responseText)
	}

	price := repairPrice(payload.Price)
	priceSource := models.PriceSourceAI
	if priceHint != nil && *priceHint != price {
		price = *priceHint
		priceSource = models.PriceSourceDirect
	}

	product := &models.ScrapedProduct{
		Name:         rescueProductName(content, payload.Name),
		Currency:     utils.GetStringOrDefault(strings.TrimSpace(payload.Currency), "USD"),
		ImageURL:     strings.TrimSpace(payload.ImageURL),
		Description:  strings.TrimSpace(payload.Description),
		Brand:        strings.TrimSpace(payload.Brand),
		Color:        strings.TrimSpace(payload.Color),
		Size:         strings.TrimSpace(payload.Size),
		Available:    payload.Available == nil || *payload.Available,
		Site:         utils.ExtractDomain(url),
		SourceMethod: models.SourceMethodAI,
		PriceSource:  priceSource,
		ScrapedAt:    time.Now().UTC(),
	}
	if models.IsPlausiblePrice(price) {
		product.SetPrice(price)
	}
	product.Confidence = responseConfidence(product)

	return product, nil
}

// repairPrice accepts whatever landed in the price slot. Strings are
// stripped down to digits and dots; anything still unparseable becomes 0
// rather than an error.
func repairPrice(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if asNumber > 0 {
			return asNumber
		}
		return 0
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return 0
	}
	cleaned := utils.CleanNumericString(asString)
	if cleaned == "" {
		return 0
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return price
}

var (
	productTitleSpanRegex = regexp.MustCompile(`(?is)<span[^>]*id=["']productTitle["'][^>]*>(.*?)</span>`)
	ogTitleRegex          = regexp.MustCompile(`(?i)<meta\s+property=["']og:title["']\s+content=["']([^"']*)["']`)
	titleTagRegex         = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	tagRegex              = regexp.MustCompile(`<[^>]+>`)
)

// rescueProductName distrusts model names that are empty or echo the schema
// placeholders and re-reads the page's own title markup instead. A name
// that stays empty after every fallback becomes "Unknown Product".
func rescueProductName(content, name string) string {
	name = strings.TrimSpace(name)
	if !degenerateName(name) {
		return name
	}

	if m := productTitleSpanRegex.FindStringSubmatch(content); m != nil {
		if rescued := collapseSpaces(tagRegex.ReplaceAllString(m[1], " ")); rescued != "" {
			return rescued
		}
	}
	if m := ogTitleRegex.FindStringSubmatch(content); m != nil {
		if rescued := strings.TrimSpace(m[1]); rescued != "" {
			return rescued
		}
	}
	if m := titleTagRegex.FindStringSubmatch(content); m != nil {
		rescued := collapseSpaces(m[1])
		rescued = strings.TrimPrefix(rescued, "Amazon.com:")
		rescued = strings.TrimSpace(rescued)
		if rescued != "" {
			return rescued
		}
	}

	if name == "" {
		return "Unknown Product"
	}
	return name
}

// degenerateName flags model output that echoes the schema placeholders.
// The contains check casts a wide net: a real name that happens to contain
// "product" just triggers a rescue pass that re-finds it in the page's own
// title markup.
func degenerateName(name string) bool {
	if name == "" {
		return true
	}
	lowered := strings.ToLower(name)
	return strings.Contains(lowered, "product") || strings.Contains(lowered, "title")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func responseConfidence(p *models.ScrapedProduct) float64 {
	named := p.Name != "" && p.Name != "Unknown Product"
	switch {
	case named && p.HasPrice():
		return models.ConfidenceAIComplete
	case p.HasPrice():
		return models.ConfidenceAIPriceOnly
	case named:
		return models.ConfidenceAINameOnly
	default:
		return models.ConfidenceStub
	}
}
