// Package worker consumes raised triggers from the event bus, runs the matching
// workflows and sweeps delayed runs.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmayes77/clientflow-sub001/pkg/eventbus"
	"github.com/dmayes77/clientflow-sub001/pkg/events"
	"github.com/dmayes77/clientflow-sub001/pkg/scheduler"
	"github.com/dmayes77/clientflow-sub001/pkg/workflow"
)

type Worker struct {
	id      string
	engine  *workflow.Engine
	bus     eventbus.EventBus
	sweeper *scheduler.Sweeper
	logger  *slog.Logger
}

// New builds a worker. sweepSchedule may be empty for the default schedule.
func New(id string, engine *workflow.Engine, bus eventbus.EventBus, sweepSchedule string, logger *slog.Logger) *Worker {
	w := &Worker{
		id:     id,
		engine: engine,
		bus:    bus,
		logger: logger.With("module", "worker", "worker_id", id),
	}

	w.sweeper = scheduler.NewSweeper(engine, logger,
		scheduler.WithSchedule(sweepSchedule),
		scheduler.WithReport(w.reportRuns),
	)

	return w
}

// Start subscribes to raised triggers and starts the sweeper. It returns once
// both are running.
func (w *Worker) Start(ctx context.Context) error {
	err := w.bus.Handle(events.TriggerRaisedEvent, w.handleTriggerRaised)
	if err != nil {
		return fmt.Errorf("failed to register trigger handler: %w", err)
	}

	err = w.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	err = w.sweeper.Start(ctx)
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Worker started")

	return nil
}

func (w *Worker) Stop(ctx context.Context) {
	w.sweeper.Stop(ctx)
	w.logger.InfoContext(ctx, "Worker stopped")
}

func (w *Worker) handleTriggerRaised(ctx context.Context, event any) error {
	raised, ok := event.(*events.TriggerRaised)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	logger := w.logger.With("trigger", raised.Trigger, "tenant_id", raised.Context.TenantID, "event_id", raised.ID)

	tc, err := w.engine.Loader().Load(ctx, raised.Context)
	if err != nil {
		return fmt.Errorf("failed to load trigger context: %w", err)
	}

	if tc.Tenant == nil {
		logger.WarnContext(ctx, "Tenant not found, dropping trigger")

		return nil
	}

	summary, err := w.engine.TriggerWorkflows(ctx, raised.Trigger, tc)
	if err != nil {
		return err
	}

	logger.DebugContext(ctx, "Trigger handled", "executed", summary.Executed, "scheduled", summary.Scheduled)

	w.reportRuns(ctx, summary.Runs)

	return nil
}

// reportRuns publishes a finished event for every run that reached a terminal state.
func (w *Worker) reportRuns(ctx context.Context, runs []workflow.RunSummary) {
	for _, rs := range runs {
		if !rs.Status.Terminal() {
			continue
		}

		event := events.WorkflowRunFinished{
			BaseEvent:  events.NewBaseEvent(events.WorkflowRunFinishedEvent, rs.TenantID),
			RunID:      rs.RunID,
			WorkflowID: rs.WorkflowID,
			Trigger:    rs.Trigger,
			Status:     rs.Status,
			Scheduled:  rs.Scheduled,
			Error:      rs.Error,
		}
		event.WorkerID = w.id

		err := w.bus.Publish(ctx, rs.TenantID, event)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to publish run outcome", "run_id", rs.RunID, "error", err)
		}
	}
}
