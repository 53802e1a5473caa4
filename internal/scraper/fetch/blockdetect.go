package fetch

import (
	"net/http"
	"regexp"
	"strings"
)

// Block classification values
const (
	BlockTypeNone      = "none"
	BlockTypeCaptcha   = "captcha"
	BlockTypeBotWall   = "bot_wall"
	BlockTypeHTTPError = "http_error"
)

// blockScoreThreshold is the weighted score above which a page counts as
// blocked. A single CAPTCHA, bot or wall fingerprint is enough to trip it.
const blockScoreThreshold = 0.3

// BlockCheck is the outcome of scanning a fetched page for block indicators
type BlockCheck struct {
	Blocked bool
	Type    string
	Reason  string
	Score   float64
}

// BlockDetector detects CAPTCHA challenges and bot walls in fetched pages.
// Patterns are scoped tighter than a generic crawler's would be: product
// pages legitimately contain words like "blocked" or "please wait", so only
// fingerprints specific to challenge pages are matched.
type BlockDetector struct {
	captchaPatterns []*regexp.Regexp
	botPatterns     []*regexp.Regexp
	wallPatterns    []*regexp.Regexp
}

// NewBlockDetector creates a new block detector
func NewBlockDetector() *BlockDetector {
	return &BlockDetector{
		captchaPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)captcha`),
			regexp.MustCompile(`(?i)enter the characters you see`),
			regexp.MustCompile(`(?i)type the characters you see`),
			regexp.MustCompile(`(?i)verify you are human`),
			regexp.MustCompile(`(?i)select all images`),
		},
		botPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\brobot\b`),
			regexp.MustCompile(`(?i)bot check`),
			regexp.MustCompile(`(?i)bot detected`),
			regexp.MustCompile(`(?i)automated access`),
			regexp.MustCompile(`(?i)sorry, we just need to make sure`),
		},
		wallPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)access denied`),
			regexp.MustCompile(`(?i)unusual traffic`),
			regexp.MustCompile(`(?i)checking your browser`),
			regexp.MustCompile(`(?i)ddos protection`),
			regexp.MustCompile(`(?i)pardon our interruption`),
		},
	}
}

// Check scans page content and the HTTP status for block indicators and
// returns a weighted verdict
func (bd *BlockDetector) Check(html string, statusCode int) BlockCheck {
	content := strings.ToLower(html)

	score := 0.0
	var reasons []string
	captchaHit := false

	// CAPTCHA fingerprints carry the highest weight
	for _, pattern := range bd.captchaPatterns {
		if pattern.MatchString(content) {
			score += 0.5
			captchaHit = true
			reasons = append(reasons, "captcha: "+pattern.String())
		}
	}

	for _, pattern := range bd.botPatterns {
		if pattern.MatchString(content) {
			score += 0.4
			reasons = append(reasons, "bot: "+pattern.String())
		}
	}

	for _, pattern := range bd.wallPatterns {
		if pattern.MatchString(content) {
			score += 0.4
			reasons = append(reasons, "wall: "+pattern.String())
		}
	}

	statusBlocked := isBlockedStatus(statusCode)
	if statusBlocked {
		score += 0.4
		reasons = append(reasons, "status: "+http.StatusText(statusCode))
	}

	// Challenge pages are typically tiny; a short body alongside any
	// indicator strengthens the verdict
	if len(content) < 1000 && score > 0 {
		score += 0.2
		reasons = append(reasons, "short body with block indicators")
	}

	// Cap the score at 1.0
	if score > 1.0 {
		score = 1.0
	}

	check := BlockCheck{
		Blocked: score > blockScoreThreshold,
		Type:    BlockTypeNone,
		Reason:  strings.Join(reasons, "; "),
		Score:   score,
	}

	if check.Blocked {
		switch {
		case captchaHit:
			check.Type = BlockTypeCaptcha
		case statusBlocked:
			check.Type = BlockTypeHTTPError
		default:
			check.Type = BlockTypeBotWall
		}
	}

	return check
}

// isBlockedStatus reports whether a status code by itself indicates the
// request was refused rather than failed
func isBlockedStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}
