package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch-utils/pkg/models"
)

func TestFreeformPrice(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		want    float64
		wantNil bool
	}{
		{
			name: "dollar amount in body",
			html: `<div class="hero">Limited offer: $42.50 while stocks last</div>`,
			want: 42.50,
		},
		{
			name: "thousands separator",
			html: `<p>Now $1,299.00</p>`,
			want: 1299.00,
		},
		{
			name: "labeled price field",
			html: `<script>window.config = { price: "33" };</script>`,
			want: 33,
		},
		{
			name: "usd prefix",
			html: `<span>USD 54.95</span>`,
			want: 54.95,
		},
		{
			name: "strict pattern wins over labeled",
			html: `<div>price: 10</div><div>$25.99</div>`,
			want: 25.99,
		},
		{
			name:    "implausible amount skipped",
			html:    `<div>$0.00</div>`,
			wantNil: true,
		},
		{
			name:    "no price text",
			html:    `<div>Out of stock</div>`,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := FreeformPrice(tt.html)

			if tt.wantNil {
				assert.Nil(t, candidate)
				return
			}
			require.NotNil(t, candidate)
			assert.Equal(t, tt.want, candidate.Value)
			assert.Equal(t, models.CandidateKindFreeform, candidate.Kind)
		})
	}
}
