package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/tracker"
)

type countingChecker struct {
	mu    sync.Mutex
	runs  int
	block chan struct{}
}

func (c *countingChecker) CheckAll(ctx context.Context) ([]*tracker.CheckResult, error) {
	c.mu.Lock()
	c.runs++
	c.mu.Unlock()

	if c.block != nil {
		<-c.block
	}
	return []*tracker.CheckResult{{ProductID: "p1", Outcome: tracker.OutcomeUnchanged}}, nil
}

func (c *countingChecker) runCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

func schedulerConfig(enabled bool, spec string) *config.Config {
	cfg := &config.Config{}
	cfg.Scheduler.Enabled = enabled
	cfg.Scheduler.Cron = spec
	return cfg
}

func TestSchedulerDisabled(t *testing.T) {
	s := New(schedulerConfig(false, ""), &countingChecker{})
	require.NoError(t, s.Start())
	s.Stop()
}

func TestSchedulerDefaultCronIsValid(t *testing.T) {
	s := New(schedulerConfig(true, ""), &countingChecker{})
	require.NoError(t, s.Start())
	s.Stop()
}

func TestSchedulerRejectsBadCron(t *testing.T) {
	s := New(schedulerConfig(true, "not a cron"), &countingChecker{})
	assert.Error(t, s.Start())
}

func TestRunInvokesChecker(t *testing.T) {
	checker := &countingChecker{}
	s := New(schedulerConfig(true, ""), checker)

	s.run()

	assert.Equal(t, 1, checker.runCount())
}

func TestRunSkipsOverlappingTick(t *testing.T) {
	checker := &countingChecker{block: make(chan struct{})}
	s := New(schedulerConfig(true, ""), checker)

	done := make(chan struct{})
	go func() {
		s.run()
		close(done)
	}()

	// Wait until the first run is inside CheckAll, then fire a second tick.
	require.Eventually(t, func() bool { return checker.runCount() == 1 }, time.Second, 5*time.Millisecond)
	s.run()

	assert.Equal(t, 1, checker.runCount(), "overlapping tick must be skipped")

	close(checker.block)
	<-done

	s.run()
	assert.Equal(t, 2, checker.runCount(), "next tick after completion runs again")
}

type panickyChecker struct{}

func (panickyChecker) CheckAll(ctx context.Context) ([]*tracker.CheckResult, error) {
	panic("store corrupted")
}

func TestRunRecoversPanic(t *testing.T) {
	s := New(schedulerConfig(true, ""), panickyChecker{})

	assert.NotPanics(t, func() { s.run() })
	assert.False(t, s.running.Load(), "running flag must clear after a panic")
}
