package extract

import (
	"regexp"

	"pricewatch-utils/pkg/models"
)

// PriceLocator describes one place a price may live in page markup. Locator
// order is priority order: earlier entries are tried (and their candidates
// recorded) first. CurrentPrice marks locators with explicit price-to-pay
// semantics, which the resolver trusts over plain price matches that may be
// strike-through list prices.
type PriceLocator struct {
	Kind         models.CandidateKind
	Selector     string
	FractionSel  string // sibling selector holding the decimal part
	Pattern      *regexp.Regexp
	CurrentPrice bool
}

// amazonPriceLocators covers Amazon's price markup generations: the modern
// apexPriceToPay block, the a-price/a-offscreen pairs, legacy priceblock ids,
// split whole/fraction spans, and the prices embedded in page scripts.
var amazonPriceLocators = []PriceLocator{
	{Kind: models.CandidateKindSelector, Selector: ".apexPriceToPay .a-offscreen", CurrentPrice: true},
	{Kind: models.CandidateKindSelector, Selector: ".a-price[data-a-size='xl'] .a-offscreen", CurrentPrice: true},
	{Kind: models.CandidateKindSelector, Selector: "#priceblock_dealprice", CurrentPrice: true},
	{Kind: models.CandidateKindSelector, Selector: "#priceblock_saleprice", CurrentPrice: true},
	{Kind: models.CandidateKindSelector, Selector: "#priceblock_ourprice"},
	{Kind: models.CandidateKindSelector, Selector: ".a-price .a-offscreen"},
	{Kind: models.CandidateKindWholeFraction, Selector: ".a-price-whole", FractionSel: ".a-price-fraction"},
	{Kind: models.CandidateKindScriptPattern, Pattern: regexp.MustCompile(`"priceAmount":\s*"?(\d+(?:\.\d+)?)"?`), CurrentPrice: true},
	{Kind: models.CandidateKindScriptPattern, Pattern: regexp.MustCompile(`"buyingPrice":\s*"?(\d+(?:\.\d+)?)"?`), CurrentPrice: true},
	{Kind: models.CandidateKindScriptPattern, Pattern: regexp.MustCompile(`"salePrice":\s*"?(\d+(?:\.\d+)?)"?`), CurrentPrice: true},
	{Kind: models.CandidateKindScriptPattern, Pattern: regexp.MustCompile(`"currentPrice":\s*"?(\d+(?:\.\d+)?)"?`), CurrentPrice: true},
}

// genericPriceLocators is the site-agnostic table. Selectors whose class
// names carry current/sale semantics are tagged; bare ".price" style matches
// are not, since stores routinely reuse them for crossed-out list prices.
var genericPriceLocators = []PriceLocator{
	{Kind: models.CandidateKindSelector, Selector: ".current-price", CurrentPrice: true},
	{Kind: models.CandidateKindSelector, Selector: ".selling-price", CurrentPrice: true},
	{Kind: models.CandidateKindSelector, Selector: ".offer-price", CurrentPrice: true},
	{Kind: models.CandidateKindSelector, Selector: ".sale-price", CurrentPrice: true},
	{Kind: models.CandidateKindSelector, Selector: ".price-current", CurrentPrice: true},
	{Kind: models.CandidateKindSelector, Selector: ".price--current", CurrentPrice: true},
	{Kind: models.CandidateKindSelector, Selector: "[class*='price__current']", CurrentPrice: true},
	{Kind: models.CandidateKindSelector, Selector: "[itemprop='price']"},
	{Kind: models.CandidateKindSelector, Selector: ".product-price"},
	{Kind: models.CandidateKindSelector, Selector: ".price"},
	{Kind: models.CandidateKindSelector, Selector: "[data-test*='price']"},
	{Kind: models.CandidateKindSelector, Selector: "[data-testid*='price']"},
	{Kind: models.CandidateKindScriptPattern, Pattern: regexp.MustCompile(`"currentPrice":\s*"?(\d+(?:\.\d+)?)"?`), CurrentPrice: true},
	{Kind: models.CandidateKindScriptPattern, Pattern: regexp.MustCompile(`"salePrice":\s*"?(\d+(?:\.\d+)?)"?`), CurrentPrice: true},
	{Kind: models.CandidateKindScriptPattern, Pattern: regexp.MustCompile(`"priceAmount":\s*"?(\d+(?:\.\d+)?)"?`)},
}

// amazonNameLocators are tried before the generic table on Amazon pages
var amazonNameLocators = []string{
	"#productTitle",
	"span#productTitle",
	"#title",
	"h1.a-size-large",
	"h1.a-size-medium",
	"#btAsinTitle",
}

// genericNameLocators go from site-specific product title markup down to a
// bare h1 fallback
var genericNameLocators = []string{
	"h1#pdp_product_title",
	"h1.headline-2",
	"[data-test='product-title']",
	"[data-testid='product-title']",
	"h1.product-title",
	"h1.pdp-title",
	"h1.product-name",
	"[itemprop='name']",
	".product-detail h1",
	"h1.title",
	"h1.name",
	"h1",
	".product-name",
}

// nameDenylist rejects matches that are navigation chrome rather than a
// product title
var nameDenylist = []string{
	"menu",
	"search",
	"footer",
	"header",
	"navigation",
	"breadcrumb",
	"skip to main content",
	"popular search terms",
}

// Name length gate: anything outside this window is chrome text or a
// concatenation accident, not a title.
const (
	minNameLength = 4
	maxNameLength = 200
)

// ImageLocator describes one place a product image URL may live
type ImageLocator struct {
	Selector string
	Attrs    []string // attributes checked in order; empty means text content
}

var amazonImageLocators = []ImageLocator{
	{Selector: "#landingImage", Attrs: []string{"data-old-hires", "src"}},
	{Selector: "#imgBlkFront", Attrs: []string{"data-old-hires", "src"}},
	{Selector: ".a-dynamic-image", Attrs: []string{"src"}},
	{Selector: "[data-a-dynamic-image]", Attrs: []string{"data-a-dynamic-image"}},
	{Selector: "img[data-a-image-name='landingImage']", Attrs: []string{"src"}},
}

var genericImageLocators = []ImageLocator{
	{Selector: "meta[property='og:image']", Attrs: []string{"content"}},
	{Selector: "[itemprop='image']", Attrs: []string{"content", "src"}},
	{Selector: ".product-image img", Attrs: []string{"src", "data-src", "data-zoom"}},
	{Selector: "img[class*='product']", Attrs: []string{"src", "data-src", "data-zoom"}},
}

// priceLocatorsFor returns the locator table for a domain class. Amazon pages
// get the Amazon table first and fall through to the generic one.
func priceLocatorsFor(amazon bool) []PriceLocator {
	if amazon {
		return append(append([]PriceLocator{}, amazonPriceLocators...), genericPriceLocators...)
	}
	return genericPriceLocators
}

func nameLocatorsFor(amazon bool) []string {
	if amazon {
		return append(append([]string{}, amazonNameLocators...), genericNameLocators...)
	}
	return genericNameLocators
}

func imageLocatorsFor(amazon bool) []ImageLocator {
	if amazon {
		return append(append([]ImageLocator{}, amazonImageLocators...), genericImageLocators...)
	}
	return genericImageLocators
}
