package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"pricewatch-utils/internal/config"
	"pricewatch-utils/internal/tracker"
	"pricewatch-utils/pkg/utils"
)

// checkAllTimeout bounds one batch run. A run that cannot finish inside it
// is cancelled rather than allowed to pile onto the next tick.
const checkAllTimeout = 10 * time.Minute

// Checker runs a batch price re-check. The tracker service satisfies it.
type Checker interface {
	CheckAll(ctx context.Context) ([]*tracker.CheckResult, error)
}

// Scheduler triggers periodic batch price checks on a cron expression.
type Scheduler struct {
	config  *config.Config
	cron    *cron.Cron
	checker Checker
	logger  *logrus.Logger
	running atomic.Bool
}

// New creates a scheduler for the given checker.
func New(cfg *config.Config, checker Checker) *Scheduler {
	return &Scheduler{
		config:  cfg,
		cron:    cron.New(),
		checker: checker,
		logger:  utils.GetLogger(),
	}
}

// Start registers the cron entry and starts the ticker. Disabled by
// configuration is not an error.
func (s *Scheduler) Start() error {
	if !s.config.Scheduler.Enabled {
		s.logger.Info("Price check scheduler disabled")
		return nil
	}

	spec := s.config.Scheduler.Cron
	if spec == "" {
		spec = "*/15 * * * *"
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("invalid scheduler cron expression %q: %w", spec, err)
	}

	s.cron.Start()
	s.logger.WithField("cron", spec).Info("Price check scheduler started")
	return nil
}

// Stop halts the ticker and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Price check scheduler stopped")
}

// run executes one batch check. A tick that fires while the previous run is
// still in flight is skipped.
func (s *Scheduler) run() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Previous price check still running, skipping this tick")
		return
	}
	defer s.running.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", fmt.Sprintf("%v", r)).Error("Recovered panic in scheduled price check")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), checkAllTimeout)
	defer cancel()

	started := time.Now()
	results, err := s.checker.CheckAll(ctx)
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("Scheduled price check failed")
		return
	}

	changed := 0
	failed := 0
	for _, result := range results {
		switch result.Outcome {
		case tracker.OutcomeChanged:
			changed++
		case tracker.OutcomeFailed:
			failed++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"products": len(results),
		"changed":  changed,
		"failed":   failed,
		"took":     time.Since(started).String(),
	}).Info("Scheduled price check completed")
}
