// Package scheduler wires up the cron job that periodically re-scrapes
// the source site.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/prevostgo/prevostgo/internal/logger"
	"github.com/prevostgo/prevostgo/internal/pipeline"
)

// Scheduler wraps robfig/cron around the single-flight runner. A tick
// that fires while a run is still active is skipped, not queued.
type Scheduler struct {
	cron   *cron.Cron
	runner *pipeline.Runner
	spec   string
}

// New creates a Scheduler firing every interval.
func New(runner *pipeline.Runner, interval time.Duration) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		spec:   fmt.Sprintf("@every %s", interval),
	}
}

// Start registers the job and starts the scheduler. One scrape runs
// immediately so the inventory is populated without waiting for the
// first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("cron add: %w", err)
	}

	s.cron.Start()
	logger.Info("scheduler started", "spec", s.spec)

	go s.run(ctx)
	return nil
}

// Stop shuts the scheduler down without interrupting an active run.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	summary, err := s.runner.Run(ctx, pipeline.Overrides{})
	if errors.Is(err, pipeline.ErrRunInProgress) {
		logger.Warn("scheduled scrape skipped, run already active")
		return
	}
	if err != nil {
		logger.Error("scheduled scrape failed", "error", err)
		return
	}
	logger.Info("scheduled scrape complete",
		"found", summary.ListingsFound,
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"skipped", summary.Skipped)
}
