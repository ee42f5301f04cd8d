// Package scheduler runs the pending workflow sweep on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dmayes77/clientflow-sub001/pkg/workflow"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweep every minute.
const DefaultSchedule = "@every 1m"

var ErrAlreadyStarted = errors.New("sweeper already started")

// PendingProcessor executes due delayed runs.
type PendingProcessor interface {
	ProcessPendingWorkflows(ctx context.Context) (*workflow.ProcessSummary, error)
}

// ReportFunc receives the runs finished by one sweep.
type ReportFunc func(ctx context.Context, runs []workflow.RunSummary)

type Sweeper struct {
	processor PendingProcessor
	schedule  string
	report    ReportFunc
	logger    *slog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Sweeper)

// WithSchedule sets the cron expression. Descriptors such as "@every 30s" are accepted.
func WithSchedule(schedule string) Option {
	return func(s *Sweeper) {
		if schedule != "" {
			s.schedule = schedule
		}
	}
}

func WithReport(report ReportFunc) Option {
	return func(s *Sweeper) { s.report = report }
}

func NewSweeper(processor PendingProcessor, logger *slog.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		processor: processor,
		schedule:  DefaultSchedule,
		logger:    logger.With("module", "sweeper"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Validate checks the cron expression.
func (s *Sweeper) Validate() error {
	_, err := cron.ParseStandard(s.schedule)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule '%s': %w", s.schedule, err)
	}

	return nil
}

// Start schedules the sweep. Overlapping sweeps are skipped and panics recovered.
func (s *Sweeper) Start(ctx context.Context) error {
	err := s.Validate()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return ErrAlreadyStarted
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug))

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	entryID, err := s.cron.AddFunc(s.schedule, func() { s.Sweep(s.ctx) })
	if err != nil {
		s.cron = nil
		s.cancel()

		return fmt.Errorf("failed to add sweep job: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Sweeper started", "schedule", s.schedule, "entry_id", entryID)

	return nil
}

// Sweep runs one pass over the due pending runs.
func (s *Sweeper) Sweep(ctx context.Context) {
	summary, err := s.processor.ProcessPendingWorkflows(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to process pending workflows", "error", err)
	}

	if summary == nil || len(summary.Runs) == 0 {
		return
	}

	if s.report != nil {
		s.report(ctx, summary.Runs)
	}
}

// Stop cancels the running sweep and waits for it to return.
func (s *Sweeper) Stop(ctx context.Context) {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}

	cancel()

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}

	s.logger.InfoContext(ctx, "Sweeper stopped")
}
