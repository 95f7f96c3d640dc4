package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/msdca/minecraft-k8s-manager/internal/infra/metrics"
)

// cronNexter computes the next occurrence of a cron schedule.
type cronNexter interface {
	NextAfter(spec string, after time.Time) (time.Time, error)
}

// Sweeper periodically deletes finished volume provisioning jobs that the
// cluster's TTL controller did not collect. It never touches PV/PVC or
// running jobs.
type Sweeper struct {
	logger     *slog.Logger
	repo       Repository
	cron       cronNexter
	schedule   string
	maxAge     time.Duration
	ready      chan struct{}
	doneCh     chan struct{}
	inShutdown atomic.Bool
}

// NewSweeper creates a job sweeper. An empty schedule disables it.
func NewSweeper(
	logger *slog.Logger,
	repo Repository,
	cron cronNexter,
	schedule string,
	maxAge time.Duration,
) *Sweeper {
	return &Sweeper{
		logger:   logger,
		repo:     repo,
		cron:     cron,
		schedule: schedule,
		maxAge:   maxAge,
		ready:    make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Name returns the name of the sweeper component.
func (s *Sweeper) Name() string {
	return "job-sweeper"
}

// Start starts the sweeper loop in a goroutine.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "sweeper is shutting down, skipping start")

		return nil
	}

	if s.schedule == "" {
		s.logger.InfoContext(ctx, "sweeper disabled, no schedule configured")
		close(s.ready)
		close(s.doneCh)

		return nil
	}

	// Validate the schedule before starting the loop.
	if _, err := s.cron.NextAfter(s.schedule, time.Now()); err != nil {
		return fmt.Errorf("parse sweep schedule: %w", err)
	}

	go s.run(ctx)

	return nil
}

// Ready returns a channel that is closed when the sweeper loop is running.
func (s *Sweeper) Ready() <-chan struct{} {
	return s.ready
}

// Shutdown waits for the sweeper loop to exit.
func (s *Sweeper) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		s.logger.ErrorContext(ctx, "sweeper is already shutting down, skipping shutdown")

		return nil
	}

	s.logger.InfoContext(ctx, "shutting down sweeper")

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before sweeper loop exited: %w", ctx.Err())
	case <-s.doneCh:
	}

	s.logger.InfoContext(ctx, "sweeper shut down")

	return nil
}

// SweepCommand runs one sweep iteration and returns the number of jobs
// deleted.
func (s *Sweeper) SweepCommand(ctx context.Context) (int, error) {
	names, err := s.repo.ListFinishedJobsQuery(ctx, ProvisionJobPrefix, s.maxAge)
	if err != nil {
		return 0, fmt.Errorf("list finished jobs: %w", err)
	}

	deleted := 0

	for _, name := range names {
		if err := absorbMissing(s.repo.DeleteJobCommand(ctx, name)); err != nil {
			return deleted, fmt.Errorf("delete job %s: %w", name, err)
		}

		deleted++
	}

	if deleted > 0 {
		metrics.RecordJobsSwept(deleted)
		s.logger.InfoContext(ctx, "swept finished provisioning jobs", "count", deleted)
	}

	return deleted, nil
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneCh)

	logger := s.logger.With("component", "sweeper-run")

	close(s.ready)

	for {
		next, err := s.cron.NextAfter(s.schedule, time.Now())
		if err != nil {
			logger.ErrorContext(ctx, "parse sweep schedule", "reason", err)

			return
		}

		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			if _, err := s.SweepCommand(ctx); err != nil {
				logger.ErrorContext(ctx, "sweep error", "reason", err)
			}
		case <-ctx.Done():
			timer.Stop()
			logger.InfoContext(ctx, "terminating sweeper loop")

			return
		}
	}
}
