package processors

import (
	"regexp"
	"strings"
)

// HTMLCleaner prepares raw page HTML for a model prompt. Executable and
// presentational blocks go, whitespace collapses. Meta and title tags
// survive so title-rescue regexes can still read them downstream.
type HTMLCleaner struct{}

var (
	commentRegex = regexp.MustCompile(`<!--[\s\S]*?-->`)
	scriptRegex  = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleRegex   = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	spaceRegex   = regexp.MustCompile(`\s+`)
)

// NewHTMLCleaner creates a new HTML cleaner instance
func NewHTMLCleaner() *HTMLCleaner {
	return &HTMLCleaner{}
}

// CleanProductHTML strips comments, scripts and styles and collapses runs of
// whitespace. Purely textual, never fails.
func (hc *HTMLCleaner) CleanProductHTML(html string) string {
	html = commentRegex.ReplaceAllString(html, "")
	html = scriptRegex.ReplaceAllString(html, "")
	html = styleRegex.ReplaceAllString(html, "")
	html = spaceRegex.ReplaceAllString(html, " ")
	return strings.TrimSpace(html)
}

// Truncate bounds cleaned content to a prompt budget.
func (hc *HTMLCleaner) Truncate(content string, limit int) string {
	if len(content) <= limit {
		return content
	}
	return content[:limit] + "..."
}

// EstimateTokens gives a rough token count for budget logging, at about four
// characters per token.
func (hc *HTMLCleaner) EstimateTokens(text string) int {
	return len(text) / 4
}
