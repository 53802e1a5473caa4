package fetch

import (
	"math/rand"
	"sync"
)

// defaultUserAgents is the rotation pool used when no pool is configured.
// All entries are current desktop browsers; mobile agents get served
// different markup on most storefronts.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// agentRotator hands out user agents from a pool, avoiding immediate repeats
// so consecutive attempts present different identities.
type agentRotator struct {
	agents []string
	last   int
	mu     sync.Mutex
}

// newAgentRotator creates a rotator over the given pool, falling back to the
// built-in pool when the list is empty
func newAgentRotator(agents []string) *agentRotator {
	if len(agents) == 0 {
		agents = defaultUserAgents
	}
	return &agentRotator{
		agents: agents,
		last:   -1,
	}
}

// next returns a randomly chosen user agent different from the previous one
func (r *agentRotator) next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.agents) == 1 {
		return r.agents[0]
	}

	idx := rand.Intn(len(r.agents))
	if idx == r.last {
		idx = (idx + 1) % len(r.agents)
	}
	r.last = idx
	return r.agents[idx]
}

// browserHeaders returns the header set a real browser sends alongside the
// given user agent. Accept-Encoding is left to net/http so the transport
// decompresses gzip transparently.
func browserHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":                userAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Cache-Control":             "max-age=0",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"DNT":                       "1",
	}
}
