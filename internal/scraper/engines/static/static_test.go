package static

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/pkg/models"
)

func staticConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Scraper.MaxRetries = 2
	cfg.Scraper.RequestTimeout = 5 * time.Second
	return cfg
}

func TestExtractPageCompleteStructuredData(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">
	{"@type": "Product", "name": "Kindle Paperwhite", "image": "https://m.media-amazon.com/images/I/k.jpg",
	 "brand": {"name": "Amazon"},
	 "offers": {"price": "139.99", "priceCurrency": "USD", "availability": "https://schema.org/InStock"}}
	</script>
	</head><body><span class="price">$999.99</span></body></html>`

	s := NewStaticScraper(staticConfig())
	trace := &models.ExtractionTrace{}
	product := s.ExtractPage(html, "https://www.amazon.com/dp/B0ABC12345", models.SiteHintAuto, trace)

	assert.Equal(t, "Kindle Paperwhite", product.Name)
	require.True(t, product.HasPrice())
	assert.Equal(t, 139.99, product.PriceValue())
	assert.Equal(t, models.SourceMethodStructured, product.SourceMethod)
	assert.Equal(t, models.ConfidenceStructured, product.Confidence)
	assert.Equal(t, "Amazon", product.Brand)
	assert.Equal(t, "amazon.com", product.Site)

	// A complete node ends the ladder before the heuristic pass.
	require.Len(t, trace.Attempts, 1)
	assert.Equal(t, "structured", trace.Attempts[0].Strategy)
}

func TestExtractPagePartialStructuredWithHeuristicPrice(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">
	{"@type": "Product", "name": "Trail Running Pack"}
	</script>
	</head><body>
	<span class="current-price">$84.00</span>
	</body></html>`

	s := NewStaticScraper(staticConfig())
	product := s.ExtractPage(html, "https://store.example.com/p/1", models.SiteHintAuto, nil)

	assert.Equal(t, "Trail Running Pack", product.Name)
	require.True(t, product.HasPrice())
	assert.Equal(t, 84.00, product.PriceValue())
	assert.Equal(t, models.SourceMethodHeuristic, product.SourceMethod)
	assert.Equal(t, models.PriceSourceDirect, product.PriceSource)
}

func TestExtractPageCurrentTagBeatsStrikethrough(t *testing.T) {
	html := `<html><body>
	<h1 id="productTitle">Wireless Headphones</h1>
	<span class="a-price a-text-price"><span class="a-offscreen">$249.99</span></span>
	<span class="apexPriceToPay"><span class="a-offscreen">$199.99</span></span>
	</body></html>`

	s := NewStaticScraper(staticConfig())
	product := s.ExtractPage(html, "https://www.amazon.com/dp/B0ABC12345", models.SiteHintAuto, nil)

	require.True(t, product.HasPrice())
	assert.Equal(t, 199.99, product.PriceValue())
	assert.Equal(t, 0.9, product.Confidence)
}

func TestExtractPageNothingFound(t *testing.T) {
	html := `<html><body><div>under construction</div></body></html>`

	s := NewStaticScraper(staticConfig())
	product := s.ExtractPage(html, "https://store.example.com/p/1", models.SiteHintAuto, nil)

	require.NotNil(t, product)
	assert.Empty(t, product.Name)
	assert.False(t, product.HasPrice())
	assert.True(t, product.Available)
	assert.Equal(t, "USD", product.Currency)
	assert.Equal(t, "store.example.com", product.Site)
}

func TestExtractPageSiteHintOverride(t *testing.T) {
	// Only the Amazon table knows span#productTitle; the generic hint must
	// not find it.
	html := `<html><body><span id="productTitle">Kindle Paperwhite</span></body></html>`

	s := NewStaticScraper(staticConfig())

	auto := s.ExtractPage(html, "https://www.amazon.com/dp/B0ABC12345", models.SiteHintAuto, nil)
	assert.Equal(t, "Kindle Paperwhite", auto.Name)

	generic := s.ExtractPage(html, "https://www.amazon.com/dp/B0ABC12345", models.SiteHintGeneric, nil)
	assert.Empty(t, generic.Name)

	// The amazon hint pulls the Amazon table in for a foreign URL.
	forced := s.ExtractPage(html, "https://mirror.example.com/dp/B0ABC12345", models.SiteHintAmazon, nil)
	assert.Equal(t, "Kindle Paperwhite", forced.Name)
}

func TestStaticScrapeProduct(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Widget X | Example Store</title></head><body>
		<h1 class="product-title">Widget X</h1>
		<span class="current-price">$29.99</span>
		</body></html>`))
	}))
	defer server.Close()

	s := NewStaticScraper(staticConfig())
	product, err := s.ScrapeProduct(context.Background(), server.URL+"/p/1", nil)
	require.NoError(t, err)

	assert.Equal(t, "Widget X", product.Name)
	require.True(t, product.HasPrice())
	assert.Equal(t, 29.99, product.PriceValue())
	assert.Equal(t, models.SourceMethodHeuristic, product.SourceMethod)
}

func TestStaticScrapeProductFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := NewStaticScraper(staticConfig())
	_, err := s.ScrapeProduct(context.Background(), server.URL, nil)
	assert.Error(t, err)
}
