package models

import (
	"time"
)

// SourceMethod identifies which extraction strategy produced a result
type SourceMethod string

const (
	SourceMethodStructured SourceMethod = "structured"
	SourceMethodHeuristic  SourceMethod = "heuristic"
	SourceMethodAI         SourceMethod = "ai"
)

// PriceSource identifies where the resolved price number came from
type PriceSource string

const (
	PriceSourceDirect   PriceSource = "direct"
	PriceSourceAI       PriceSource = "ai"
	PriceSourceFallback PriceSource = "fallback"
)

// Plausible price range gate. Candidates outside this open interval are
// discarded before they ever reach the resolver.
const (
	MinPlausiblePrice = 0.01
	MaxPlausiblePrice = 100000.0
)

// Confidence ladder assigned by extraction strategies. Structured data is
// near-certain, model output degrades as fields go missing, and the failure
// stub scores too low for any acceptance gate.
const (
	ConfidenceStructured  = 0.95
	ConfidenceAIComplete  = 0.9
	ConfidenceAIPriceOnly = 0.8
	ConfidenceAINameOnly  = 0.5
	ConfidenceStub        = 0.1
)

// IsPlausiblePrice reports whether p falls inside the open plausible range.
func IsPlausiblePrice(p float64) bool {
	return p > MinPlausiblePrice && p < MaxPlausiblePrice
}

// ScrapedProduct is the canonical result of one scrape call. It is ephemeral:
// the tracker layer maps it onto stored records, the core never persists it.
type ScrapedProduct struct {
	Name         string       `json:"name,omitempty"`
	Price        *float64     `json:"price,omitempty"`
	Currency     string       `json:"currency"`
	ImageURL     string       `json:"image_url,omitempty"`
	Color        string       `json:"color,omitempty"`
	Size         string       `json:"size,omitempty"`
	Description  string       `json:"description,omitempty"`
	Brand        string       `json:"brand,omitempty"`
	Available    bool         `json:"available"`
	Site         string       `json:"site"`
	SourceMethod SourceMethod `json:"source_method"`
	PriceSource  PriceSource  `json:"price_source"`
	Confidence   float64      `json:"confidence"`
	ScrapedAt    time.Time    `json:"scraped_at"`
}

// HasPrice reports whether a resolved price is attached.
func (p *ScrapedProduct) HasPrice() bool {
	return p.Price != nil
}

// PriceValue returns the resolved price or 0 when none was found.
func (p *ScrapedProduct) PriceValue() float64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}

// SetPrice attaches a resolved price value.
func (p *ScrapedProduct) SetPrice(v float64) {
	p.Price = &v
}

// CandidateKind classifies the locator that produced a price candidate.
type CandidateKind string

const (
	CandidateKindSelector      CandidateKind = "selector"       // CSS element selector
	CandidateKindScriptPattern CandidateKind = "script_pattern" // key/value regex in inline script text
	CandidateKindWholeFraction CandidateKind = "whole_fraction" // concatenated integer/decimal element pair
	CandidateKindStructured    CandidateKind = "structured"     // JSON linked-data offers
	CandidateKindMeta          CandidateKind = "meta"           // meta tag content
	CandidateKindFreeform      CandidateKind = "freeform"       // dollar-amount regex over body text
)

// PriceCandidate is one numeric value found by one locator during a single
// extraction pass. The resolver consumes the whole multiset and the
// candidates are discarded afterwards.
type PriceCandidate struct {
	Value        float64       `json:"value"`
	Locator      string        `json:"locator"`
	Kind         CandidateKind `json:"kind"`
	CurrentPrice bool          `json:"current_price"` // locator carries current/sale-price semantics
}

// StrategyOutcome records how one extraction strategy ended.
type StrategyOutcome string

const (
	StrategyOutcomeHit     StrategyOutcome = "hit"
	StrategyOutcomeMiss    StrategyOutcome = "miss"
	StrategyOutcomeSkipped StrategyOutcome = "skipped"
	StrategyOutcomeError   StrategyOutcome = "error"
)

// ExtractionAttempt is the per-call diagnostic trail of strategies tried, in
// order, with outcomes. It drives orchestrator fallback decisions and debug
// logging and lives only for the duration of one scrape call.
type ExtractionAttempt struct {
	Strategy  string          `json:"strategy"`
	Outcome   StrategyOutcome `json:"outcome"`
	Detail    string          `json:"detail,omitempty"`
	Duration  time.Duration   `json:"duration"`
	Timestamp time.Time       `json:"timestamp"`
}

// ExtractionTrace accumulates attempts for one scrape call.
type ExtractionTrace struct {
	URL      string              `json:"url"`
	Attempts []ExtractionAttempt `json:"attempts"`
}

// Record appends an attempt to the trace.
func (t *ExtractionTrace) Record(strategy string, outcome StrategyOutcome, detail string, took time.Duration) {
	t.Attempts = append(t.Attempts, ExtractionAttempt{
		Strategy:  strategy,
		Outcome:   outcome,
		Detail:    detail,
		Duration:  took,
		Timestamp: time.Now(),
	})
}

// Fields renders the trace as structured log fields.
func (t *ExtractionTrace) Fields() map[string]interface{} {
	steps := make([]string, 0, len(t.Attempts))
	for _, a := range t.Attempts {
		steps = append(steps, a.Strategy+":"+string(a.Outcome))
	}
	return map[string]interface{}{
		"url":   t.URL,
		"steps": steps,
	}
}

// TrackedProduct is a product under periodic price watch. Persisted through
// the tracker store (key-value semantics).
type TrackedProduct struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Site        string    `json:"site"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Currency    string    `json:"currency"`
	Watchers    []string  `json:"watchers"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasWatcher reports whether the email already watches this product.
func (p *TrackedProduct) HasWatcher(email string) bool {
	for _, w := range p.Watchers {
		if w == email {
			return true
		}
	}
	return false
}

// PriceEntry is one append-only price-history record for a tracked product.
type PriceEntry struct {
	ProductID     string    `json:"product_id"`
	Price         float64   `json:"price"`
	RecordedAt    time.Time `json:"recorded_at"`
	Note          string    `json:"note,omitempty"`
	Insight       string    `json:"insight,omitempty"`
	ReviewSummary string    `json:"review_summary,omitempty"`
}
