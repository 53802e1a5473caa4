package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// AmazonURLType represents the type of Amazon URL
type AmazonURLType int

const (
	AmazonURLTypeUnknown    AmazonURLType = iota
	AmazonURLTypeProduct                  // Direct product page: /dp/B0ABC12345
	AmazonURLTypeGPProduct                // Legacy product page: /gp/product/B0ABC12345
	AmazonURLTypeNonProduct               // Non-product URLs: search, storefronts, etc.
)

// AmazonURLInfo contains information about a parsed Amazon URL
type AmazonURLInfo struct {
	Type         AmazonURLType
	ASIN         string
	CanonicalURL string
}

var (
	asinPathRegex = regexp.MustCompile(`/(?:dp|gp/product)/([A-Z0-9]{10})(?:[/?]|$)`)
	asinRegex     = regexp.MustCompile(`^[A-Z0-9]{10}$`)
)

// IsAmazonURL checks if a URL belongs to an Amazon storefront
func IsAmazonURL(urlStr string) bool {
	if urlStr == "" {
		return false
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	hostname := strings.ToLower(parsedURL.Hostname())
	hostname = strings.TrimPrefix(hostname, "www.")
	return hostname == "amazon.com" || strings.HasPrefix(hostname, "amazon.")
}

// ParseAmazonURL analyzes an Amazon URL and returns its type and ASIN if present
func ParseAmazonURL(urlStr string) (*AmazonURLInfo, error) {
	if !IsAmazonURL(urlStr) {
		return nil, fmt.Errorf("not an Amazon URL: %s", urlStr)
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	info := &AmazonURLInfo{
		Type: AmazonURLTypeUnknown,
	}

	// Product pages carry the ASIN in the path: /dp/B0ABC12345 or /gp/product/B0ABC12345
	if matches := asinPathRegex.FindStringSubmatch(parsedURL.Path); len(matches) > 1 {
		info.ASIN = matches[1]
		if strings.Contains(parsedURL.Path, "/gp/product/") {
			info.Type = AmazonURLTypeGPProduct
		} else {
			info.Type = AmazonURLTypeProduct
		}
		info.CanonicalURL = fmt.Sprintf("https://www.amazon.com/dp/%s", info.ASIN)
		return info, nil
	}

	// Some listing URLs carry the ASIN as a query parameter instead
	if asin := parsedURL.Query().Get("asin"); asin != "" && asinRegex.MatchString(strings.ToUpper(asin)) {
		info.Type = AmazonURLTypeProduct
		info.ASIN = strings.ToUpper(asin)
		info.CanonicalURL = fmt.Sprintf("https://www.amazon.com/dp/%s", info.ASIN)
		return info, nil
	}

	info.Type = AmazonURLTypeNonProduct
	return info, nil
}

// ExtractASIN extracts the ASIN from an Amazon product URL
func ExtractASIN(urlStr string) (string, error) {
	info, err := ParseAmazonURL(urlStr)
	if err != nil {
		return "", err
	}

	if info.ASIN == "" {
		return "", fmt.Errorf("no ASIN found in Amazon URL: %s", urlStr)
	}

	return info.ASIN, nil
}

// NormalizeProductURL rewrites a product URL into the form the fetcher should
// request. Amazon URLs get explicit locale parameters so prices come back in
// USD regardless of the egress region; other URLs pass through unchanged.
func NormalizeProductURL(urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	if !IsAmazonURL(urlStr) {
		return urlStr, nil
	}

	query := parsedURL.Query()
	query.Set("language", "en_US")
	query.Set("currency", "USD")
	parsedURL.RawQuery = query.Encode()

	return parsedURL.String(), nil
}

// ExtractDomain returns the registrable hostname of a URL with any www
// prefix removed, lowercased. Returns an empty string for unparseable URLs.
func ExtractDomain(urlStr string) string {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}

	hostname := strings.ToLower(parsedURL.Hostname())
	return strings.TrimPrefix(hostname, "www.")
}
