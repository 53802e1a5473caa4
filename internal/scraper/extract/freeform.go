package extract

import (
	"regexp"

	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// freeformPatterns run over the raw page text as the terminal price strategy.
// Strict two-decimal dollar amounts come first; labeled price fields without
// a currency symbol are weaker and tried last.
var freeformPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})*\.\d{2})`),
	regexp.MustCompile(`(?i)price["']?\s*[:=]\s*["']?\$?(\d+(?:\.\d{1,2})?)`),
	regexp.MustCompile(`USD\s*(\d+(?:\.\d{1,2})?)`),
}

// FreeformPrice scans raw HTML for dollar-amount text. It is the last-resort
// locator: the first plausible match of the strongest pattern wins.
func FreeformPrice(html string) *models.PriceCandidate {
	for _, pattern := range freeformPatterns {
		for _, m := range pattern.FindAllStringSubmatch(html, maxMatchesPerPattern) {
			price, err := utils.ParsePriceString(m[1])
			if err != nil || !models.IsPlausiblePrice(price) {
				continue
			}
			return &models.PriceCandidate{
				Value:   price,
				Locator: pattern.String(),
				Kind:    models.CandidateKindFreeform,
			}
		}
	}
	return nil
}
