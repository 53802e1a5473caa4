package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch-utils/pkg/models"
	"pricewatch-utils/pkg/utils"
)

// Structured holds whatever product fields JSON linked data yielded. Name and
// price together make it complete; a lone price is still kept so the resolver
// can use it as a second-tier source.
type Structured struct {
	Name        string
	Price       *float64
	Currency    string
	ImageURL    string
	Description string
	Brand       string
	Available   *bool
}

// Complete reports whether the block carried both a name and a usable price,
// which is the bar for skipping every later extraction strategy.
func (s *Structured) Complete() bool {
	return s != nil && s.Name != "" && s.Price != nil
}

// ldNode is a loosely typed view of one JSON-LD node. Real-world markup
// puts strings, numbers, objects and arrays in these slots interchangeably,
// so everything polymorphic is decoded as interface{} or RawMessage and
// normalized afterwards.
type ldNode struct {
	Type        interface{}     `json:"@type"`
	Graph       json.RawMessage `json:"@graph"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       interface{}     `json:"image"`
	Brand       interface{}     `json:"brand"`
	Offers      json.RawMessage `json:"offers"`
}

type ldOffer struct {
	Price         interface{} `json:"price"`
	PriceCurrency string      `json:"priceCurrency"`
	Availability  string      `json:"availability"`
}

// ExtractStructured scans every ld+json script block for Product nodes.
// Malformed blocks are skipped individually so one broken script does not
// cost the page its structured data. Partial nodes merge, letting a
// name-only node and a price-only node from separate blocks form one
// result. Returns nil when nothing usable was found.
func ExtractStructured(doc *goquery.Document) *Structured {
	var result *Structured
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		for _, node := range decodeNodes([]byte(raw)) {
			parsed := parseProductNode(node)
			if parsed == nil {
				continue
			}
			if result == nil {
				result = parsed
			} else {
				result.merge(parsed)
			}
			if result.Complete() {
				return false
			}
		}
		return true
	})
	return result
}

// merge fills gaps in s from another partial node without overwriting what
// an earlier, higher-priority node already provided.
func (s *Structured) merge(other *Structured) {
	if s.Name == "" {
		s.Name = other.Name
	}
	if s.Price == nil && other.Price != nil {
		s.Price = other.Price
		s.Currency = other.Currency
	}
	if s.ImageURL == "" {
		s.ImageURL = other.ImageURL
	}
	if s.Description == "" {
		s.Description = other.Description
	}
	if s.Brand == "" {
		s.Brand = other.Brand
	}
	if s.Available == nil {
		s.Available = other.Available
	}
}

// decodeNodes turns one script payload into candidate nodes: a bare object,
// a top-level array, or the contents of an @graph collection.
func decodeNodes(raw []byte) []ldNode {
	var single ldNode
	if err := json.Unmarshal(raw, &single); err == nil {
		if len(single.Graph) > 0 {
			var graph []ldNode
			if err := json.Unmarshal(single.Graph, &graph); err == nil {
				return graph
			}
			return nil
		}
		return []ldNode{single}
	}
	var list []ldNode
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return nil
}

// isProductType accepts "Product", subtype names containing it, and @type
// arrays with any such member.
func isProductType(t interface{}) bool {
	switch v := t.(type) {
	case string:
		return strings.Contains(v, "Product")
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.Contains(s, "Product") {
				return true
			}
		}
	}
	return false
}

func parseProductNode(node ldNode) *Structured {
	if !isProductType(node.Type) {
		return nil
	}
	out := &Structured{
		Name:        strings.TrimSpace(node.Name),
		Description: strings.TrimSpace(node.Description),
		Brand:       brandName(node.Brand),
		ImageURL:    imageURL(node.Image),
		Currency:    "USD",
	}
	if offer := firstOffer(node.Offers); offer != nil {
		if price, ok := priceNumber(offer.Price); ok && models.IsPlausiblePrice(price) {
			out.Price = &price
		}
		if offer.PriceCurrency != "" {
			out.Currency = offer.PriceCurrency
		}
		if offer.Availability != "" {
			inStock := strings.Contains(offer.Availability, "InStock")
			out.Available = &inStock
		}
	}
	if out.Name == "" && out.Price == nil {
		return nil
	}
	return out
}

// firstOffer accepts offers as an object or as a list, taking the first entry.
func firstOffer(raw json.RawMessage) *ldOffer {
	if len(raw) == 0 {
		return nil
	}
	var single ldOffer
	if err := json.Unmarshal(raw, &single); err == nil {
		return &single
	}
	var list []ldOffer
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return &list[0]
	}
	return nil
}

// priceNumber normalizes a price slot that may be a JSON number or a string
// like "19.99" or "$19.99".
func priceNumber(v interface{}) (float64, bool) {
	switch p := v.(type) {
	case float64:
		return p, p > 0
	case string:
		parsed, err := utils.ParsePriceString(p)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// brandName accepts a bare string or a Brand object with a name field.
func brandName(v interface{}) string {
	switch b := v.(type) {
	case string:
		return strings.TrimSpace(b)
	case map[string]interface{}:
		if name, ok := b["name"].(string); ok {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

// imageURL accepts a bare URL string, a list of URLs (first wins), or an
// ImageObject with a url field.
func imageURL(v interface{}) string {
	switch img := v.(type) {
	case string:
		return strings.TrimSpace(img)
	case []interface{}:
		for _, item := range img {
			if s, ok := item.(string); ok && s != "" {
				return strings.TrimSpace(s)
			}
			if m, ok := item.(map[string]interface{}); ok {
				if u, ok := m["url"].(string); ok && u != "" {
					return strings.TrimSpace(u)
				}
			}
		}
	case map[string]interface{}:
		if u, ok := img["url"].(string); ok {
			return strings.TrimSpace(u)
		}
	}
	return ""
}

