package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// metaPriceSelectors in priority order. The twitter:data1 card slot is a
// free-text field that only sometimes holds a price; parse failures there
// fall through silently.
var metaPriceSelectors = []string{
	"meta[property='og:price:amount']",
	"meta[property='product:price:amount']",
	"meta[itemprop='price']",
	"meta[name='price']",
	"meta[name='twitter:data1']",
}

// MetaPrice reads the page's price meta tags. Returns nil when no tag holds
// a parseable, plausible amount.
func MetaPrice(doc *goquery.Document) *models.PriceCandidate {
	for _, sel := range metaPriceSelectors {
		var found *models.PriceCandidate
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			content, ok := s.Attr("content")
			if !ok {
				return true
			}
			price, err := utils.ParsePriceString(content)
			if err != nil || !models.IsPlausiblePrice(price) {
				return true
			}
			found = &models.PriceCandidate{
				Value:   price,
				Locator: sel,
				Kind:    models.CandidateKindMeta,
			}
			return false
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// MetaTitle returns the og:title content when it passes the name gate.
func MetaTitle(doc *goquery.Document) string {
	if content, ok := doc.Find("meta[property='og:title']").First().Attr("content"); ok {
		if name := collapseWhitespace(content); validName(name) {
			return name
		}
	}
	return ""
}

// PageTitle returns the document title with trailing site-name segments
// stripped. Separators are only split when space-padded so hyphenated
// product names stay intact.
func PageTitle(doc *goquery.Document) string {
	title := collapseWhitespace(doc.Find("title").First().Text())
	if title == "" {
		return ""
	}
	for _, sep := range []string{" | ", " - ", " – "} {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
		}
	}
	title = strings.TrimSpace(title)
	if !validName(title) {
		return ""
	}
	return title
}
