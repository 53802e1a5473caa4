package extract

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

// runHeuristic mirrors how engines call the extractor: the Amazon table is
// selected from the page URL.
func runHeuristic(t *testing.T, html, pageURL string) *HeuristicResult {
	t.Helper()
	return ExtractHeuristic(mustDoc(t, html), html, mustURL(t, pageURL), utils.IsAmazonURL(pageURL))
}

func TestExtractHeuristicName(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		pageURL string
		want    string
	}{
		{
			name:    "product title class",
			html:    `<html><body><h1 class="product-title">Air Zoom Pegasus 41</h1></body></html>`,
			pageURL: "https://www.nike.com/t/air-zoom",
			want:    "Air Zoom Pegasus 41",
		},
		{
			name:    "denylisted h1 is skipped for next match",
			html:    `<html><body><h1>Menu</h1><h1>Trail Running Pack</h1></body></html>`,
			pageURL: "https://store.example.com/p/1",
			want:    "Trail Running Pack",
		},
		{
			name:    "whitespace collapsed",
			html:    "<html><body><h1 class=\"product-name\">  Echo\n\t Dot   (5th Gen)  </h1></body></html>",
			pageURL: "https://store.example.com/p/2",
			want:    "Echo Dot (5th Gen)",
		},
		{
			name:    "too short falls through to page title",
			html:    `<html><head><title>Gel Kayano 31 | Example Store</title></head><body><h1>Ab</h1></body></html>`,
			pageURL: "https://store.example.com/p/3",
			want:    "Gel Kayano 31",
		},
		{
			name:    "amazon product title id",
			html:    `<html><body><span id="productTitle"> Kindle Paperwhite, 16 GB </span></body></html>`,
			pageURL: "https://www.amazon.com/dp/B0ABC12345",
			want:    "Kindle Paperwhite, 16 GB",
		},
		{
			name:    "data test attribute",
			html:    `<html><body><div data-testid="product-title">Standing Desk Mat</div></body></html>`,
			pageURL: "https://store.example.com/p/4",
			want:    "Standing Desk Mat",
		},
		{
			name:    "nothing usable",
			html:    `<html><head><title>404</title></head><body><div>gone</div></body></html>`,
			pageURL: "https://store.example.com/p/5",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := runHeuristic(t, tt.html, tt.pageURL)
			assert.Equal(t, tt.want, result.Name)
		})
	}
}

func TestExtractHeuristicPriceCandidates(t *testing.T) {
	html := `<html><body>
		<h1 class="product-title">Widget</h1>
		<span class="price">$29.99</span>
		<div class="product-price">$29.99</div>
		<span class="price">$199.99</span>
	</body></html>`

	result := runHeuristic(t, html, "https://store.example.com/p/1")

	require.Len(t, result.Candidates, 3)
	// table order puts .product-price ahead of .price
	assert.Equal(t, 29.99, result.Candidates[0].Value)
	assert.Equal(t, ".product-price", result.Candidates[0].Locator)
	assert.Equal(t, 29.99, result.Candidates[1].Value)
	assert.Equal(t, ".price", result.Candidates[1].Locator)
	assert.Equal(t, 199.99, result.Candidates[2].Value)
	for _, c := range result.Candidates {
		assert.Equal(t, models.CandidateKindSelector, c.Kind)
		assert.False(t, c.CurrentPrice)
	}
}

func TestExtractHeuristicCurrentPriceTagging(t *testing.T) {
	html := `<html><body>
		<span class="a-price a-text-price"><span class="a-offscreen">$249.99</span></span>
		<span class="apexPriceToPay"><span class="a-offscreen">$199.99</span></span>
	</body></html>`

	result := runHeuristic(t, html, "https://www.amazon.com/dp/B0ABC12345")

	var current []models.PriceCandidate
	for _, c := range result.Candidates {
		if c.CurrentPrice {
			current = append(current, c)
		}
	}
	require.NotEmpty(t, current)
	assert.Equal(t, 199.99, current[0].Value)
	assert.Equal(t, ".apexPriceToPay .a-offscreen", current[0].Locator)
}

func TestExtractHeuristicWholeFraction(t *testing.T) {
	html := `<html><body>
		<span class="a-price">
			<span class="a-price-whole">69<span class="a-price-decimal">.</span></span><span class="a-price-fraction">95</span>
		</span>
	</body></html>`

	result := runHeuristic(t, html, "https://www.amazon.com/dp/B0ABC12345")

	var composite *models.PriceCandidate
	for i := range result.Candidates {
		if result.Candidates[i].Kind == models.CandidateKindWholeFraction {
			composite = &result.Candidates[i]
			break
		}
	}
	require.NotNil(t, composite)
	assert.Equal(t, 69.95, composite.Value)
}

func TestExtractHeuristicWholeFractionMissingFraction(t *testing.T) {
	html := `<html><body><span class="a-price-whole">1,299</span></body></html>`

	result := runHeuristic(t, html, "https://www.amazon.com/dp/B0ABC12345")

	var composite *models.PriceCandidate
	for i := range result.Candidates {
		if result.Candidates[i].Kind == models.CandidateKindWholeFraction {
			composite = &result.Candidates[i]
			break
		}
	}
	require.NotNil(t, composite)
	assert.Equal(t, 1299.00, composite.Value)
}

func TestExtractHeuristicScriptPattern(t *testing.T) {
	html := `<html><body>
		<script>var state = {"buyingPrice": 24.99, "sku": "X1"};</script>
	</body></html>`

	result := runHeuristic(t, html, "https://www.amazon.com/dp/B0ABC12345")

	require.NotEmpty(t, result.Candidates)
	assert.Equal(t, 24.99, result.Candidates[0].Value)
	assert.Equal(t, models.CandidateKindScriptPattern, result.Candidates[0].Kind)
	assert.True(t, result.Candidates[0].CurrentPrice)
}

func TestExtractHeuristicRangeGate(t *testing.T) {
	html := `<html><body>
		<span class="price">$0.00</span>
		<span class="price">$150000.00</span>
		<span class="price">$49.99</span>
	</body></html>`

	result := runHeuristic(t, html, "https://store.example.com/p/1")

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, 49.99, result.Candidates[0].Value)
}

func TestExtractHeuristicContentAttribute(t *testing.T) {
	html := `<html><body>
		<meta itemprop="price" content="89.00">
	</body></html>`

	result := runHeuristic(t, html, "https://store.example.com/p/1")

	require.NotEmpty(t, result.Candidates)
	assert.Equal(t, 89.00, result.Candidates[0].Value)
	assert.Equal(t, "[itemprop='price']", result.Candidates[0].Locator)
}

func TestExtractHeuristicImage(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		pageURL string
		want    string
	}{
		{
			name:    "amazon landing image prefers hires",
			html:    `<html><body><img id="landingImage" src="https://m.media-amazon.com/images/I/small.jpg" data-old-hires="https://m.media-amazon.com/images/I/large.jpg"></body></html>`,
			pageURL: "https://www.amazon.com/dp/B0ABC12345",
			want:    "https://m.media-amazon.com/images/I/large.jpg",
		},
		{
			name:    "og image meta",
			html:    `<html><head><meta property="og:image" content="https://cdn.example.com/p/1.png"></head><body></body></html>`,
			pageURL: "https://store.example.com/p/1",
			want:    "https://cdn.example.com/p/1.png",
		},
		{
			name:    "protocol relative resolved",
			html:    `<html><head><meta property="og:image" content="//cdn.example.com/p/2.jpg"></head><body></body></html>`,
			pageURL: "https://store.example.com/p/2",
			want:    "https://cdn.example.com/p/2.jpg",
		},
		{
			name:    "root relative resolved against page host",
			html:    `<html><body><div class="product-image"><img src="/images/p3.webp"></div></body></html>`,
			pageURL: "https://store.example.com/p/3",
			want:    "https://store.example.com/images/p3.webp",
		},
		{
			name:    "non image url rejected",
			html:    `<html><head><meta property="og:image" content="https://store.example.com/checkout"></head><body></body></html>`,
			pageURL: "https://store.example.com/p/4",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := runHeuristic(t, tt.html, tt.pageURL)
			assert.Equal(t, tt.want, result.ImageURL)
		})
	}
}

func TestNormalizeImageURLDynamicImageAttr(t *testing.T) {
	html := `<html><body><img class="a-dynamic-image" data-a-dynamic-image='{"https://m.media-amazon.com/images/I/x.jpg":[500,500]}'></body></html>`

	result := runHeuristic(t, html, "https://www.amazon.com/dp/B0ABC12345")
	assert.Equal(t, "https://m.media-amazon.com/images/I/x.jpg", result.ImageURL)
}
