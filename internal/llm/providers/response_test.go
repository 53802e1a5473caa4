package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch-utils/pkg/models"
)

func TestParseProductResponseCompletePayload(t *testing.T) {
	response := `{
		"name": "Kindle Paperwhite",
		"price": 139.99,
		"currency": "USD",
		"image_url": "https://m.media-amazon.com/images/I/x.jpg",
		"description": "Waterproof e-reader",
		"brand": "Amazon",
		"available": true,
		"color": "Black",
		"size": "16 GB"
	}`

	product, err := parseProductResponse(response, "", "https://www.amazon.com/dp/B0ABC12345", nil)
	require.NoError(t, err)
	assert.Equal(t, "Kindle Paperwhite", product.Name)
	require.True(t, product.HasPrice())
	assert.Equal(t, 139.99, product.PriceValue())
	assert.Equal(t, "USD", product.Currency)
	assert.Equal(t, "Amazon", product.Brand)
	assert.Equal(t, "Black", product.Color)
	assert.Equal(t, "16 GB", product.Size)
	assert.True(t, product.Available)
	assert.Equal(t, "amazon.com", product.Site)
	assert.Equal(t, models.SourceMethodAI, product.SourceMethod)
	assert.Equal(t, models.PriceSourceAI, product.PriceSource)
	assert.Equal(t, models.ConfidenceAIComplete, product.Confidence)
}

func TestParseProductResponseCodeFences(t *testing.T) {
	response := "```json\n{\"name\": \"Fenced Widget\", \"price\": 10.50}\n```"

	product, err := parseProductResponse(response, "", "https://store.example.com/p/1", nil)
	require.NoError(t, err)
	assert.Equal(t, "Fenced Widget", product.Name)
	assert.Equal(t, 10.50, product.PriceValue())
}

func TestParseProductResponsePriceRepair(t *testing.T) {
	tests := []struct {
		name      string
		price     string
		wantPrice float64
		wantSet   bool
	}{
		{"bare number", `69.95`, 69.95, true},
		{"quoted number", `"69.95"`, 69.95, true},
		{"currency string", `"$1,299.99"`, 1299.99, true},
		{"garbage string", `"contact us"`, 0, false},
		{"null", `null`, 0, false},
		{"negative", `-5`, 0, false},
		{"zero", `0`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := `{"name": "Widget X", "price": ` + tt.price + `}`
			product, err := parseProductResponse(response, "", "https://store.example.com/p/1", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSet, product.HasPrice())
			if tt.wantSet {
				assert.InDelta(t, tt.wantPrice, product.PriceValue(), 0.001)
			}
		})
	}
}

func TestParseProductResponsePriceHintWins(t *testing.T) {
	hint := 69.95
	response := `{"name": "Widget X", "price": 99.95}`

	product, err := parseProductResponse(response, "", "https://store.example.com/p/1", &hint)
	require.NoError(t, err)
	assert.Equal(t, 69.95, product.PriceValue())
	assert.Equal(t, models.PriceSourceDirect, product.PriceSource)
}

func TestParseProductResponsePriceHintAgreement(t *testing.T) {
	hint := 99.95
	response := `{"name": "Widget X", "price": 99.95}`

	product, err := parseProductResponse(response, "", "https://store.example.com/p/1", &hint)
	require.NoError(t, err)
	assert.Equal(t, 99.95, product.PriceValue())
	assert.Equal(t, models.PriceSourceAI, product.PriceSource)
}

func TestParseProductResponseNameRescue(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		content  string
		wantName string
	}{
		{
			name:     "placeholder name rescued from productTitle span",
			payload:  `{"name": "Product Title", "price": 10}`,
			content:  `<span id="productTitle"> Sony WH-1000XM5 Headphones </span>`,
			wantName: "Sony WH-1000XM5 Headphones",
		},
		{
			name:     "empty name rescued from og:title",
			payload:  `{"name": "", "price": 10}`,
			content:  `<meta property="og:title" content="Dyson V15 Detect">`,
			wantName: "Dyson V15 Detect",
		},
		{
			name:     "title tag rescue strips site prefix",
			payload:  `{"name": "product", "price": 10}`,
			content:  `<title>Amazon.com: Echo Dot (5th Gen)</title>`,
			wantName: "Echo Dot (5th Gen)",
		},
		{
			name:     "no rescue source keeps weak name",
			payload:  `{"name": "Some Product", "price": 10}`,
			content:  `<div>nothing here</div>`,
			wantName: "Some Product",
		},
		{
			name:     "nothing at all becomes unknown",
			payload:  `{"name": "", "price": 10}`,
			content:  `<div>nothing here</div>`,
			wantName: "Unknown Product",
		},
		{
			name:     "good name untouched",
			payload:  `{"name": "Nintendo Switch OLED", "price": 10}`,
			content:  `<title>Something Else</title>`,
			wantName: "Nintendo Switch OLED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product, err := parseProductResponse(tt.payload, tt.content, "https://store.example.com/p/1", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, product.Name)
		})
	}
}

func TestParseProductResponseAvailabilityDefault(t *testing.T) {
	product, err := parseProductResponse(`{"name": "Widget X", "price": 5}`, "", "https://store.example.com/p/1", nil)
	require.NoError(t, err)
	assert.True(t, product.Available)

	product, err = parseProductResponse(`{"name": "Widget X", "price": 5, "available": false}`, "", "https://store.example.com/p/1", nil)
	require.NoError(t, err)
	assert.False(t, product.Available)
}

func TestParseProductResponseInvalidJSON(t *testing.T) {
	_, err := parseProductResponse(`nonsense {{`, "", "https://store.example.com/p/1", nil)
	assert.Error(t, err)
}

func TestParseProductResponseConfidenceLadder(t *testing.T) {
	product, err := parseProductResponse(`{"name": "", "price": 25.00}`, "", "https://store.example.com/p/1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ConfidenceAIPriceOnly, product.Confidence)

	product, err = parseProductResponse(`{"name": "Widget X", "price": 0}`, "", "https://store.example.com/p/1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ConfidenceAINameOnly, product.Confidence)
}

func TestBuildProductPromptHint(t *testing.T) {
	hint := 42.50
	prompt := buildProductPrompt("content", "https://store.example.com/p/1", false, &hint)
	assert.Contains(t, prompt, "$42.50")
	assert.NotContains(t, prompt, "CRITICAL FOR AMAZON")

	prompt = buildProductPrompt("content", "https://www.amazon.com/dp/B0ABC12345", true, nil)
	assert.Contains(t, prompt, "CRITICAL FOR AMAZON")
}
