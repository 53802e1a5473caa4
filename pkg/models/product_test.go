package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsPlausiblePrice(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		want  bool
	}{
		{"typical price", 348.00, true},
		{"just above floor", 0.02, true},
		{"just below ceiling", 99999.99, true},
		{"floor excluded", 0.01, false},
		{"ceiling excluded", 100000.0, false},
		{"zero", 0, false},
		{"negative", -19.99, false},
		{"absurdly large", 5000000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPlausiblePrice(tt.price))
		})
	}
}

func TestScrapedProductPriceAccessors(t *testing.T) {
	var p ScrapedProduct
	assert.False(t, p.HasPrice())
	assert.Equal(t, 0.0, p.PriceValue())

	p.SetPrice(69.95)
	assert.True(t, p.HasPrice())
	assert.Equal(t, 69.95, p.PriceValue())
}

func TestTrackedProductHasWatcher(t *testing.T) {
	p := TrackedProduct{Watchers: []string{"one@example.com", "two@example.com"}}
	assert.True(t, p.HasWatcher("two@example.com"))
	assert.False(t, p.HasWatcher("three@example.com"))

	var empty TrackedProduct
	assert.False(t, empty.HasWatcher("one@example.com"))
}

func TestExtractionTraceRecordsSteps(t *testing.T) {
	trace := &ExtractionTrace{URL: "https://store.example.com/p/1"}
	trace.Record("structured", StrategyOutcomeMiss, "no json-ld blocks", 5*time.Millisecond)
	trace.Record("heuristic", StrategyOutcomeHit, "", 12*time.Millisecond)

	assert.Len(t, trace.Attempts, 2)
	assert.Equal(t, "structured", trace.Attempts[0].Strategy)
	assert.Equal(t, StrategyOutcomeHit, trace.Attempts[1].Outcome)

	fields := trace.Fields()
	assert.Equal(t, "https://store.example.com/p/1", fields["url"])
	assert.Equal(t, []string{"structured:miss", "heuristic:hit"}, fields["steps"])
}
