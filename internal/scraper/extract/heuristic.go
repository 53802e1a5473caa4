package extract

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// Caps on how many matches a single locator may contribute. Listing carousels
// repeat the same selector dozens of times; a handful of matches is enough
// for the resolver's consensus vote without drowning it in noise.
const (
	maxMatchesPerSelector = 3
	maxMatchesPerPattern  = 5
)

// HeuristicResult is the raw yield of one locator-table pass: a first-match
// name, a best-effort image URL, and the full multiset of price candidates
// for the resolver.
type HeuristicResult struct {
	Name       string
	ImageURL   string
	Candidates []models.PriceCandidate
}

// ExtractHeuristic walks the locator tables against a parsed page. The
// amazon flag selects the Amazon-first table; callers derive it from the
// site hint or the page URL. The name takes the first locator match that
// survives the denylist and length gate; prices are collected from every
// locator so the resolver can vote.
func ExtractHeuristic(doc *goquery.Document, html string, pageURL *url.URL, amazon bool) *HeuristicResult {
	return &HeuristicResult{
		Name:       extractName(doc, amazon),
		ImageURL:   extractImage(doc, pageURL, amazon),
		Candidates: collectPriceCandidates(doc, html, amazon),
	}
}

func extractName(doc *goquery.Document, amazon bool) string {
	for _, sel := range nameLocatorsFor(amazon) {
		var name string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if text := collapseWhitespace(s.Text()); validName(text) {
				name = text
				return false
			}
			return true
		})
		if name != "" {
			return name
		}
	}
	return PageTitle(doc)
}

// validName applies the length gate and the navigation-chrome denylist.
func validName(name string) bool {
	if len(name) < minNameLength || len(name) > maxNameLength {
		return false
	}
	lowered := strings.ToLower(name)
	for _, bad := range nameDenylist {
		if lowered == bad {
			return false
		}
	}
	return true
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func collectPriceCandidates(doc *goquery.Document, html string, amazon bool) []models.PriceCandidate {
	var out []models.PriceCandidate
	for _, loc := range priceLocatorsFor(amazon) {
		switch loc.Kind {
		case models.CandidateKindSelector:
			out = append(out, selectorCandidates(doc, loc)...)
		case models.CandidateKindWholeFraction:
			out = append(out, wholeFractionCandidates(doc, loc)...)
		case models.CandidateKindScriptPattern:
			out = append(out, patternCandidates(html, loc)...)
		}
	}
	return out
}

func selectorCandidates(doc *goquery.Document, loc PriceLocator) []models.PriceCandidate {
	var out []models.PriceCandidate
	doc.Find(loc.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			// itemprop and data-attribute carriers keep the number in content=
			text, _ = s.Attr("content")
		}
		price, err := utils.ParsePriceString(text)
		if err == nil && models.IsPlausiblePrice(price) {
			out = append(out, models.PriceCandidate{
				Value:        price,
				Locator:      loc.Selector,
				Kind:         loc.Kind,
				CurrentPrice: loc.CurrentPrice,
			})
		}
		return len(out) < maxMatchesPerSelector
	})
	return out
}

// wholeFractionCandidates reassembles prices split across an integer span
// and a decimal sibling span. The whole part may carry thousands commas and
// a trailing decimal dot from a nested separator element; a missing fraction
// sibling means a round price.
func wholeFractionCandidates(doc *goquery.Document, loc PriceLocator) []models.PriceCandidate {
	var out []models.PriceCandidate
	doc.Find(loc.Selector).EachWithBreak(func(_ int, whole *goquery.Selection) bool {
		wholeText := strings.TrimSpace(whole.Text())
		wholeText = strings.ReplaceAll(wholeText, ",", "")
		wholeText = strings.ReplaceAll(wholeText, ".", "")
		if wholeText == "" {
			return true
		}
		fraction := "00"
		if f := strings.TrimSpace(whole.SiblingsFiltered(loc.FractionSel).First().Text()); f != "" {
			fraction = f
		}
		price, err := strconv.ParseFloat(wholeText+"."+fraction, 64)
		if err == nil && models.IsPlausiblePrice(price) {
			out = append(out, models.PriceCandidate{
				Value:        price,
				Locator:      loc.Selector + "+" + loc.FractionSel,
				Kind:         loc.Kind,
				CurrentPrice: loc.CurrentPrice,
			})
		}
		return len(out) < maxMatchesPerSelector
	})
	return out
}

func patternCandidates(html string, loc PriceLocator) []models.PriceCandidate {
	var out []models.PriceCandidate
	for _, m := range loc.Pattern.FindAllStringSubmatch(html, maxMatchesPerPattern) {
		if len(m) < 2 {
			continue
		}
		price, err := strconv.ParseFloat(m[1], 64)
		if err == nil && models.IsPlausiblePrice(price) {
			out = append(out, models.PriceCandidate{
				Value:        price,
				Locator:      loc.Pattern.String(),
				Kind:         loc.Kind,
				CurrentPrice: loc.CurrentPrice,
			})
		}
	}
	return out
}

func extractImage(doc *goquery.Document, pageURL *url.URL, amazon bool) string {
	for _, loc := range imageLocatorsFor(amazon) {
		var found string
		doc.Find(loc.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			for _, attr := range loc.Attrs {
				raw, ok := s.Attr(attr)
				if !ok {
					continue
				}
				if attr == "data-a-dynamic-image" {
					raw = firstDynamicImageURL(raw)
				}
				if normalized := NormalizeImageURL(raw, pageURL); normalized != "" {
					found = normalized
					return false
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// firstDynamicImageURL unpacks the JSON map Amazon stores in the
// data-a-dynamic-image attribute, keyed by image URL. Keys are sorted so the
// pick is stable across runs.
func firstDynamicImageURL(raw string) string {
	var sizes map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &sizes); err != nil || len(sizes) == 0 {
		return ""
	}
	keys := make([]string, 0, len(sizes))
	for k := range sizes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0]
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif"}

// NormalizeImageURL resolves protocol-relative and root-relative image URLs
// against the page URL and keeps only URLs that plausibly point at an image.
// Returns an empty string when the URL cannot be salvaged.
func NormalizeImageURL(raw string, pageURL *url.URL) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		scheme := "https"
		if pageURL != nil && pageURL.Scheme != "" {
			scheme = pageURL.Scheme
		}
		raw = scheme + ":" + raw
	} else if strings.HasPrefix(raw, "/") {
		if pageURL == nil || pageURL.Host == "" {
			return ""
		}
		raw = pageURL.Scheme + "://" + pageURL.Host + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	if !likelyImageURL(parsed) {
		return ""
	}
	return parsed.String()
}

// likelyImageURL is a best-effort sniff: a recognized extension, or an image
// CDN shape for stores that serve extensionless renditions.
func likelyImageURL(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, "cdn") || strings.Contains(host, "img") {
		return true
	}
	return strings.Contains(path, "/images/") || strings.Contains(path, "/image/")
}
