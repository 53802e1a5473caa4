package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAmazonURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"www product page", "https://www.amazon.com/dp/B0ABC12345", true},
		{"bare host", "https://amazon.com/dp/B0ABC12345", true},
		{"regional storefront", "https://www.amazon.de/dp/B0ABC12345", true},
		{"other retailer", "https://www.bestbuy.com/site/sku/123", false},
		{"amazon in path only", "https://example.com/amazon/deal", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAmazonURL(tt.url))
		})
	}
}

func TestParseAmazonURLProductForms(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantType AmazonURLType
		wantASIN string
	}{
		{"dp path", "https://www.amazon.com/dp/B0ABC12345", AmazonURLTypeProduct, "B0ABC12345"},
		{"dp path with ref tail", "https://www.amazon.com/Sony-Headphones/dp/B0ABC12345/ref=sr_1_1?keywords=sony", AmazonURLTypeProduct, "B0ABC12345"},
		{"legacy gp product path", "https://amazon.com/gp/product/B0XYZ99999?th=1", AmazonURLTypeGPProduct, "B0XYZ99999"},
		{"asin query parameter", "https://www.amazon.com/deal?asin=b0abc12345", AmazonURLTypeProduct, "B0ABC12345"},
		{"search page", "https://www.amazon.com/s?k=headphones", AmazonURLTypeNonProduct, ""},
		{"storefront root", "https://www.amazon.com/", AmazonURLTypeNonProduct, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseAmazonURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, info.Type)
			assert.Equal(t, tt.wantASIN, info.ASIN)
		})
	}
}

func TestParseAmazonURLCanonicalForm(t *testing.T) {
	info, err := ParseAmazonURL("https://www.amazon.com/Sony-WH-1000XM5/dp/B0ABC12345/ref=sr_1_1?keywords=sony&qid=1700000000")
	require.NoError(t, err)
	assert.Equal(t, "https://www.amazon.com/dp/B0ABC12345", info.CanonicalURL)
}

func TestParseAmazonURLRejectsOtherHosts(t *testing.T) {
	_, err := ParseAmazonURL("https://www.walmart.com/ip/12345")
	assert.Error(t, err)
}

func TestExtractASIN(t *testing.T) {
	asin, err := ExtractASIN("https://www.amazon.com/dp/B0ABC12345")
	require.NoError(t, err)
	assert.Equal(t, "B0ABC12345", asin)

	_, err = ExtractASIN("https://www.amazon.com/s?k=headphones")
	assert.Error(t, err)
}

func TestNormalizeProductURLPinsAmazonLocale(t *testing.T) {
	got, err := NormalizeProductURL("https://www.amazon.com/dp/B0ABC12345")
	require.NoError(t, err)
	assert.Equal(t, "https://www.amazon.com/dp/B0ABC12345?currency=USD&language=en_US", got)
}

func TestNormalizeProductURLKeepsExistingQuery(t *testing.T) {
	got, err := NormalizeProductURL("https://www.amazon.com/dp/B0ABC12345?th=1")
	require.NoError(t, err)
	assert.Contains(t, got, "th=1")
	assert.Contains(t, got, "currency=USD")
	assert.Contains(t, got, "language=en_US")
}

func TestNormalizeProductURLPassesThroughOtherSites(t *testing.T) {
	raw := "https://www.bestbuy.com/site/sku/6505727.p?skuId=6505727"
	got, err := NormalizeProductURL(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestNormalizeProductURLRejectsUnparseable(t *testing.T) {
	_, err := NormalizeProductURL("://missing-scheme")
	assert.Error(t, err)
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"www stripped", "https://www.amazon.com/dp/B0ABC12345", "amazon.com"},
		{"lowercased", "https://WWW.BestBuy.COM/site/x", "bestbuy.com"},
		{"subdomain kept", "https://shop.example.com/p/1", "shop.example.com"},
		{"no host", "not a url", ""},
		{"unparseable", "://bad", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDomain(tt.url))
		})
	}
}
