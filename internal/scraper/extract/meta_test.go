package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch-utils/pkg/models"
)

func TestMetaPrice(t *testing.T) {
	tests := []struct {
		name        string
		html        string
		wantPrice   float64
		wantLocator string
		wantNil     bool
	}{
		{
			name:        "og price amount",
			html:        `<meta property="og:price:amount" content="49.99">`,
			wantPrice:   49.99,
			wantLocator: "meta[property='og:price:amount']",
		},
		{
			name:        "product price amount",
			html:        `<meta property="product:price:amount" content="120.00">`,
			wantPrice:   120.00,
			wantLocator: "meta[property='product:price:amount']",
		},
		{
			name:        "twitter data1 with symbol",
			html:        `<meta name="twitter:data1" content="$19.99">`,
			wantPrice:   19.99,
			wantLocator: "meta[name='twitter:data1']",
		},
		{
			name:    "twitter data1 non price text",
			html:    `<meta name="twitter:data1" content="In stock">`,
			wantNil: true,
		},
		{
			name:        "og wins over twitter",
			html:        `<meta name="twitter:data1" content="$5.00"><meta property="og:price:amount" content="7.50">`,
			wantPrice:   7.50,
			wantLocator: "meta[property='og:price:amount']",
		},
		{
			name:    "implausible amount skipped",
			html:    `<meta property="og:price:amount" content="0.00">`,
			wantNil: true,
		},
		{
			name:    "no price tags",
			html:    `<meta property="og:title" content="Widget">`,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, "<html><head>"+tt.html+"</head><body></body></html>")
			candidate := MetaPrice(doc)

			if tt.wantNil {
				assert.Nil(t, candidate)
				return
			}
			require.NotNil(t, candidate)
			assert.Equal(t, tt.wantPrice, candidate.Value)
			assert.Equal(t, tt.wantLocator, candidate.Locator)
			assert.Equal(t, models.CandidateKindMeta, candidate.Kind)
		})
	}
}

func TestMetaTitle(t *testing.T) {
	doc := mustDoc(t, `<html><head><meta property="og:title" content="  Trail  Shoe  "></head></html>`)
	assert.Equal(t, "Trail Shoe", MetaTitle(doc))

	doc = mustDoc(t, `<html><head><meta property="og:title" content="Ab"></head></html>`)
	assert.Equal(t, "", MetaTitle(doc))
}

func TestPageTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"pipe separator", "Gel Kayano 31 | Example Store", "Gel Kayano 31"},
		{"spaced dash separator", "Echo Dot - Amazon.com", "Echo Dot"},
		{"hyphenated name survives", "T-Shirt Classic", "T-Shirt Classic"},
		{"too short after split", "Ab | Store", ""},
		{"empty title", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, "<html><head><title>"+tt.title+"</title></head></html>")
			assert.Equal(t, tt.want, PageTitle(doc))
		})
	}
}
