package workers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch-utils/internal/config"
)

func limiterConfig(ratePerMinute int) *config.Config {
	cfg := &config.Config{}
	cfg.Workers.RateLimit = ratePerMinute
	return cfg
}

func TestRateLimiterBurstThenThrottle(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(60))
	defer rl.Stop()

	for i := 0; i < limiterBurst; i++ {
		assert.True(t, rl.Allow("shop.example.com"), "request %d should fit in the burst", i+1)
	}
	assert.False(t, rl.Allow("shop.example.com"), "burst exhausted, refill is 1/s")
}

func TestRateLimiterDomainsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(60))
	defer rl.Stop()

	for i := 0; i < limiterBurst; i++ {
		require.True(t, rl.Allow("a.example.com"))
	}
	assert.False(t, rl.Allow("a.example.com"))
	assert.True(t, rl.Allow("b.example.com"), "another domain keeps its own bucket")
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(6000))
	defer rl.Stop()

	err := errors.New("connection refused")
	for i := 0; i < breakerMaxFailures-1; i++ {
		rl.RecordFailure("down.example.com", err)
		require.True(t, rl.Allow("down.example.com"), "breaker stays closed below the threshold")
	}

	rl.RecordFailure("down.example.com", err)
	assert.False(t, rl.Allow("down.example.com"), "breaker opens at the failure threshold")
}

func TestCircuitBreakerSuccessResetsStreak(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(6000))
	defer rl.Stop()

	err := errors.New("connection refused")
	for i := 0; i < breakerMaxFailures-1; i++ {
		rl.RecordFailure("flaky.example.com", err)
	}
	rl.RecordSuccess("flaky.example.com")

	for i := 0; i < breakerMaxFailures-1; i++ {
		rl.RecordFailure("flaky.example.com", err)
	}
	assert.True(t, rl.Allow("flaky.example.com"), "a success between failures restarts the streak")
}

func TestCircuitBreakerHalfOpenProbe(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(6000))
	defer rl.Stop()

	err := errors.New("connection refused")
	for i := 0; i < breakerMaxFailures; i++ {
		rl.RecordFailure("recovering.example.com", err)
	}
	require.False(t, rl.Allow("recovering.example.com"))

	// Backdate the last failure past the reset window so the breaker
	// offers a probe.
	rl.mu.Lock()
	cb := rl.circuitBreakers["recovering.example.com"]
	cb.mu.Lock()
	cb.lastFailTime = time.Now().Add(-breakerResetTimeout - time.Second)
	cb.mu.Unlock()
	rl.mu.Unlock()

	assert.True(t, rl.Allow("recovering.example.com"), "expired breaker allows a probe")

	rl.RecordSuccess("recovering.example.com")
	assert.True(t, rl.Allow("recovering.example.com"), "successful probe closes the breaker")

	stats := rl.GetDomainStats("recovering.example.com")
	assert.Equal(t, "closed", stats["circuit_state"])
}

func TestCircuitBreakerFailedProbeReopens(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(6000))
	defer rl.Stop()

	err := errors.New("connection refused")
	for i := 0; i < breakerMaxFailures; i++ {
		rl.RecordFailure("stilldown.example.com", err)
	}

	rl.mu.Lock()
	cb := rl.circuitBreakers["stilldown.example.com"]
	cb.mu.Lock()
	cb.lastFailTime = time.Now().Add(-breakerResetTimeout - time.Second)
	cb.mu.Unlock()
	rl.mu.Unlock()

	require.True(t, rl.Allow("stilldown.example.com"))
	rl.RecordFailure("stilldown.example.com", err)

	assert.False(t, rl.Allow("stilldown.example.com"), "failed probe reopens the breaker immediately")
}

func TestRateLimiterCleanupEvictsIdleDomains(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(60))
	defer rl.Stop()

	require.True(t, rl.Allow("stale.example.com"))

	rl.mu.Lock()
	rl.domainLimiters["stale.example.com"].lastSeen = time.Now().Add(-idleEviction - time.Minute)
	rl.mu.Unlock()

	rl.cleanup()

	rl.mu.RLock()
	_, exists := rl.domainLimiters["stale.example.com"]
	rl.mu.RUnlock()
	assert.False(t, exists)
}

func TestGetAllStats(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(60))
	defer rl.Stop()

	require.True(t, rl.Allow("one.example.com"))
	rl.RecordFailure("two.example.com", errors.New("boom"))

	stats := rl.GetAllStats()
	require.Contains(t, stats, "one.example.com")
	require.Contains(t, stats, "two.example.com")
	assert.Equal(t, int64(1), stats["one.example.com"]["requests"])
	assert.Equal(t, 1, stats["two.example.com"]["failure_count"])
}

func TestCircuitStateString(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(99).String())
}

func TestExtractDomainFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"https url", "https://www.Amazon.com/dp/B0TEST", "www.amazon.com"},
		{"with port", "http://shop.example.com:8080/item", "shop.example.com"},
		{"no host", "not a url", "unknown"},
		{"empty", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractDomainFromURL(tt.url))
		})
	}
}
