package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateRequestID generates a unique request ID for tracking
func GenerateRequestID() string {
	return uuid.New().String()
}

// GenerateScrapeProcessID generates a unique process ID for async scrape tasks
func GenerateScrapeProcessID() string {
	return "scrape_" + uuid.New().String()
}

// FormatDuration formats a duration to a human-readable string
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// GetStringOrDefault returns the value if not empty, otherwise returns the default
func GetStringOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

// ParsePriceString normalizes a raw price string ("$1,299.99", "EUR 24,90")
// to a float. Currency symbols and thousands separators are stripped; a
// trailing two-digit comma group is treated as the decimal separator.
func ParsePriceString(raw string) (float64, error) {
	replacer := strings.NewReplacer("$", "", "€", "", "£", "", "₹", "", "USD", "", "EUR", "", " ", "", " ", "")
	cleaned := strings.TrimSpace(replacer.Replace(raw))

	if strings.Contains(cleaned, ",") && !strings.Contains(cleaned, ".") {
		if idx := strings.LastIndex(cleaned, ","); idx == len(cleaned)-3 {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse %q as price: %w", raw, err)
	}
	return price, nil
}

// CleanNumericString strips everything except digits and dots, the repair
// pass applied to model-produced price fields before parsing.
func CleanNumericString(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
