package resolve

import (
	"math"
	"sort"

	"pricewatch-utils/pkg/models"
)

// Consensus tuning. Two independent locators agreeing on a value beats any
// single match. The averaging band brackets where most consumer goods sit,
// keeping shipping fees and bundle totals out of the mean.
const (
	consensusMinLocators = 2
	medianMinDistinct    = 3
	bandLow              = 10.0
	bandHigh             = 500.0
)

// Rung labels for diagnostics and the extraction trace.
const (
	SourceCurrentTagged = "current_tagged"
	SourceStructured    = "structured"
	SourceConsensus     = "consensus"
	SourceMedian        = "median"
	SourceBandAverage   = "band_average"
	SourceFirstSeen     = "first_seen"
	SourceMeta          = "meta"
	SourceFreeform      = "freeform"
)

// sourceConfidence scores each rung by how often it picks the real
// price-to-pay in practice. Tagged and structured sources are near
// certain, statistical rungs degrade with how much guessing they do.
var sourceConfidence = map[string]float64{
	SourceCurrentTagged: 0.9,
	SourceStructured:    0.95,
	SourceConsensus:     0.85,
	SourceMedian:        0.7,
	SourceBandAverage:   0.6,
	SourceFirstSeen:     0.5,
	SourceMeta:          0.6,
	SourceFreeform:      0.4,
}

// Confidence maps a resolution source to its score. Unknown sources get
// the first-seen floor.
func Confidence(source string) float64 {
	if c, ok := sourceConfidence[source]; ok {
		return c
	}
	return 0.5
}

// Input carries everything one extraction pass found for the cascade to
// draw from. Candidates keep their collection order, which encodes locator
// priority.
type Input struct {
	Candidates      []models.PriceCandidate
	StructuredPrice *float64
	Meta            *models.PriceCandidate
	Freeform        *models.PriceCandidate
}

// Resolution is the picked value plus the rung that produced it.
type Resolution struct {
	Price  float64
	Source string
}

// Price runs the resolution cascade over one extraction pass. Rungs, in
// order: a current-price-tagged candidate; the structured-data price; a
// consensus vote over generic candidates; the meta-tag price; the freeform
// body match. Every input value has already passed the plausibility gate.
// Returns nil when no rung yields a value.
func Price(in Input) *Resolution {
	if c := firstCurrentTagged(in.Candidates); c != nil {
		return &Resolution{Price: c.Value, Source: SourceCurrentTagged}
	}
	if in.StructuredPrice != nil {
		return &Resolution{Price: *in.StructuredPrice, Source: SourceStructured}
	}
	if r := resolveGeneric(in.Candidates); r != nil {
		return r
	}
	if in.Meta != nil {
		return &Resolution{Price: in.Meta.Value, Source: SourceMeta}
	}
	if in.Freeform != nil {
		return &Resolution{Price: in.Freeform.Value, Source: SourceFreeform}
	}
	return nil
}

// firstCurrentTagged returns the highest-priority candidate whose locator
// carries price-to-pay semantics. Tagged locators win over untagged ones
// even when an untagged strike-through price appears earlier in the
// document.
func firstCurrentTagged(candidates []models.PriceCandidate) *models.PriceCandidate {
	for i := range candidates {
		if candidates[i].CurrentPrice {
			return &candidates[i]
		}
	}
	return nil
}

// resolveGeneric votes over untagged candidates. A value confirmed by two
// distinct locators wins outright. Failing that, three or more distinct
// values fall back to the median, which sheds single-locator outliers like
// warranty add-ons. Then the mean of in-band values, then the first
// candidate found.
func resolveGeneric(candidates []models.PriceCandidate) *Resolution {
	if len(candidates) == 0 {
		return nil
	}

	type tally struct {
		locators map[string]struct{}
		order    int
	}
	counts := make(map[float64]*tally)
	for i, c := range candidates {
		t, ok := counts[c.Value]
		if !ok {
			t = &tally{locators: make(map[string]struct{}), order: i}
			counts[c.Value] = t
		}
		t.locators[c.Locator] = struct{}{}
	}

	best := 0.0
	bestCount := 0
	bestOrder := len(candidates)
	for v, t := range counts {
		n := len(t.locators)
		if n > bestCount || (n == bestCount && t.order < bestOrder) {
			best, bestCount, bestOrder = v, n, t.order
		}
	}
	if bestCount >= consensusMinLocators {
		return &Resolution{Price: best, Source: SourceConsensus}
	}

	if len(counts) >= medianMinDistinct {
		values := make([]float64, 0, len(candidates))
		for _, c := range candidates {
			values = append(values, c.Value)
		}
		sort.Float64s(values)
		return &Resolution{Price: values[len(values)/2], Source: SourceMedian}
	}

	var sum float64
	var n int
	for _, c := range candidates {
		if c.Value >= bandLow && c.Value <= bandHigh {
			sum += c.Value
			n++
		}
	}
	if n > 0 {
		avg := math.Round(sum/float64(n)*100) / 100
		return &Resolution{Price: avg, Source: SourceBandAverage}
	}

	return &Resolution{Price: candidates[0].Value, Source: SourceFirstSeen}
}
