package models

import "time"

// SiteHint narrows the extraction strategy table to a known site family.
type SiteHint string

const (
	SiteHintAuto    SiteHint = "auto"
	SiteHintAmazon  SiteHint = "amazon"
	SiteHintGeneric SiteHint = "generic"
)

// ScrapeRequest represents the request payload for scraping a product page
type ScrapeRequest struct {
	URL      string         `json:"url" validate:"required,url"`
	SiteHint SiteHint       `json:"site_hint,omitempty" validate:"omitempty,oneof=auto amazon generic"`
	Options  *ScrapeOptions `json:"options,omitempty"`
}

// ScrapeOptions provides additional configuration for scraping requests
type ScrapeOptions struct {
	Engine      string        `json:"engine,omitempty"`       // "hybrid", "static", "auto"
	SiteHint    SiteHint      `json:"site_hint,omitempty"`    // locator table override
	Timeout     time.Duration `json:"timeout,omitempty"`      // Request timeout
	LLMProvider string        `json:"llm_provider,omitempty"` // "claude", "openai", "disabled"
	UserAgent   string        `json:"user_agent,omitempty"`   // Custom user agent
	DisableAI   bool          `json:"disable_ai,omitempty"`   // Skip the AI fallback entirely
}

// EffectiveSiteHint returns the hint with the zero value mapped to auto.
func (o *ScrapeOptions) EffectiveSiteHint() SiteHint {
	if o == nil || o.SiteHint == "" {
		return SiteHintAuto
	}
	return o.SiteHint
}

// TrackRequest represents an ingest request: start watching a product URL.
type TrackRequest struct {
	URL   string `json:"url" validate:"required,url"`
	Email string `json:"email" validate:"required,email"`
}
