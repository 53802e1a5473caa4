package workers

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/pkg/utils"
)

// Tunables for per-domain throttling. The burst absorbs a product page and
// its immediate re-checks; the breaker trips on consecutive failures and
// probes again after the reset window.
const (
	limiterBurst        = 5
	breakerMaxFailures  = 5
	breakerResetTimeout = 30 * time.Second
	cleanupInterval     = 5 * time.Minute
	idleEviction        = 10 * time.Minute
)

// DomainLimiter represents rate limiting state for a specific domain
type DomainLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	requests int64
	failures int64
	mu       sync.RWMutex
}

// CircuitBreaker tracks failures for a domain and stops traffic when the
// domain looks down or hostile
type CircuitBreaker struct {
	failureCount int
	lastFailTime time.Time
	state        CircuitState
	mu           sync.Mutex
}

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// RateLimiter manages rate limiting and circuit breaking per domain
type RateLimiter struct {
	config          *config.Config
	domainLimiters  map[string]*DomainLimiter
	circuitBreakers map[string]*CircuitBreaker
	mu              sync.RWMutex
	logger          *logrus.Logger
	cleanupTicker   *time.Ticker
	stopCleanup     chan bool
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(cfg *config.Config) *RateLimiter {
	rl := &RateLimiter{
		config:          cfg,
		domainLimiters:  make(map[string]*DomainLimiter),
		circuitBreakers: make(map[string]*CircuitBreaker),
		logger:          utils.GetLogger(),
		cleanupTicker:   time.NewTicker(cleanupInterval),
		stopCleanup:     make(chan bool),
	}

	go rl.cleanupRoutine()

	return rl
}

// Allow checks if a request to the given domain is allowed
func (rl *RateLimiter) Allow(domain string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	domain = strings.ToLower(domain)

	if !rl.isCircuitClosed(domain) {
		rl.logger.WithField("domain", domain).Debug("Request rejected by circuit breaker")
		return false
	}

	limiter := rl.getDomainLimiter(domain)

	allowed := limiter.limiter.Allow()
	if allowed {
		limiter.mu.Lock()
		limiter.requests++
		limiter.lastSeen = time.Now()
		limiter.mu.Unlock()
	} else {
		rl.logger.WithField("domain", domain).Debug("Request rejected by rate limiter")
	}

	return allowed
}

// RecordSuccess records a successful request for the domain
func (rl *RateLimiter) RecordSuccess(domain string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	domain = strings.ToLower(domain)

	if cb, exists := rl.circuitBreakers[domain]; exists {
		cb.mu.Lock()
		if cb.state == CircuitHalfOpen {
			cb.state = CircuitClosed
			rl.logger.WithField("domain", domain).Info("Circuit breaker closed after successful probe")
		}
		// Success in any state wipes the failure streak.
		cb.failureCount = 0
		cb.mu.Unlock()
	}
}

// RecordFailure records a failed request for the domain
func (rl *RateLimiter) RecordFailure(domain string, err error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	domain = strings.ToLower(domain)

	if limiter, exists := rl.domainLimiters[domain]; exists {
		limiter.mu.Lock()
		limiter.failures++
		limiter.mu.Unlock()
	}

	cb := rl.getCircuitBreaker(domain)
	cb.mu.Lock()
	cb.failureCount++
	cb.lastFailTime = time.Now()

	switch {
	case cb.state == CircuitHalfOpen:
		cb.state = CircuitOpen
		rl.logger.WithField("domain", domain).Warn("Circuit breaker reopened after failed probe")
	case cb.state == CircuitClosed && cb.failureCount >= breakerMaxFailures:
		cb.state = CircuitOpen
		rl.logger.WithFields(logrus.Fields{
			"domain":   domain,
			"failures": cb.failureCount,
			"error":    err.Error(),
		}).Warn("Circuit breaker opened due to failures")
	}
	cb.mu.Unlock()
}

// getDomainLimiter gets or creates a rate limiter for a domain.
// Caller must hold rl.mu.
func (rl *RateLimiter) getDomainLimiter(domain string) *DomainLimiter {
	if limiter, exists := rl.domainLimiters[domain]; exists {
		return limiter
	}

	// Requests per minute from config, refilled continuously
	rps := rate.Limit(float64(rl.config.Workers.RateLimit) / 60.0)

	limiter := &DomainLimiter{
		limiter:  rate.NewLimiter(rps, limiterBurst),
		lastSeen: time.Now(),
	}
	rl.domainLimiters[domain] = limiter

	rl.logger.WithFields(logrus.Fields{
		"domain": domain,
		"rate":   rps,
		"burst":  limiterBurst,
	}).Info("Created new domain rate limiter")

	return limiter
}

// getCircuitBreaker gets or creates a circuit breaker for a domain.
// Caller must hold rl.mu.
func (rl *RateLimiter) getCircuitBreaker(domain string) *CircuitBreaker {
	if cb, exists := rl.circuitBreakers[domain]; exists {
		return cb
	}

	cb := &CircuitBreaker{state: CircuitClosed}
	rl.circuitBreakers[domain] = cb
	return cb
}

// isCircuitClosed checks if the circuit breaker allows requests, moving an
// expired open breaker to half-open so a single probe can test the domain
func (rl *RateLimiter) isCircuitClosed(domain string) bool {
	cb := rl.getCircuitBreaker(domain)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if time.Since(cb.lastFailTime) > breakerResetTimeout {
			cb.state = CircuitHalfOpen
			rl.logger.WithField("domain", domain).Info("Circuit breaker transitioned to half-open")
			return true
		}
		return false
	default:
		return false
	}
}

// GetDomainStats returns statistics for a specific domain
func (rl *RateLimiter) GetDomainStats(domain string) map[string]interface{} {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.domainStatsLocked(strings.ToLower(domain))
}

// domainStatsLocked collects stats for one domain. Caller must hold rl.mu.
func (rl *RateLimiter) domainStatsLocked(domain string) map[string]interface{} {
	stats := make(map[string]interface{})

	if limiter, exists := rl.domainLimiters[domain]; exists {
		limiter.mu.RLock()
		stats["requests"] = limiter.requests
		stats["failures"] = limiter.failures
		stats["last_seen"] = limiter.lastSeen
		stats["limit"] = limiter.limiter.Limit()
		stats["burst"] = limiter.limiter.Burst()
		limiter.mu.RUnlock()
	}

	if cb, exists := rl.circuitBreakers[domain]; exists {
		cb.mu.Lock()
		stats["circuit_state"] = cb.state.String()
		stats["failure_count"] = cb.failureCount
		stats["last_fail_time"] = cb.lastFailTime
		cb.mu.Unlock()
	}

	return stats
}

// GetAllStats returns statistics for all domains
func (rl *RateLimiter) GetAllStats() map[string]map[string]interface{} {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	allStats := make(map[string]map[string]interface{})

	domains := make(map[string]bool)
	for domain := range rl.domainLimiters {
		domains[domain] = true
	}
	for domain := range rl.circuitBreakers {
		domains[domain] = true
	}

	for domain := range domains {
		allStats[domain] = rl.domainStatsLocked(domain)
	}

	return allStats
}

// cleanupRoutine periodically evicts limiters for domains gone idle
func (rl *RateLimiter) cleanupRoutine() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			rl.cleanupTicker.Stop()
			return
		}
	}
}

// cleanup removes limiters and settled breakers not touched inside the
// eviction window
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-idleEviction)
	removedCount := 0

	for domain, limiter := range rl.domainLimiters {
		limiter.mu.RLock()
		lastSeen := limiter.lastSeen
		limiter.mu.RUnlock()

		if lastSeen.Before(cutoff) {
			delete(rl.domainLimiters, domain)
			removedCount++
		}
	}

	for domain, cb := range rl.circuitBreakers {
		cb.mu.Lock()
		idle := cb.state == CircuitClosed && cb.lastFailTime.Before(cutoff)
		cb.mu.Unlock()

		if idle {
			delete(rl.circuitBreakers, domain)
		}
	}

	if removedCount > 0 {
		rl.logger.WithField("removed_count", removedCount).Info("Cleaned up unused rate limiters")
	}
}

// Stop stops the rate limiter and its cleanup routine
func (rl *RateLimiter) Stop() {
	rl.stopCleanup <- true
}

// String returns string representation of CircuitState
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// extractDomainFromURL extracts the domain from a URL string
func extractDomainFromURL(urlStr string) string {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "unknown"
	}

	domain := parsedURL.Hostname()
	if domain == "" {
		return "unknown"
	}

	return strings.ToLower(domain)
}
