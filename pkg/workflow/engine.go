// Package workflow matches triggers to tenant workflows and runs their actions,
// immediately or after a delay.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/otelhelper"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrTenantRequired is returned when a trigger is raised without a tenant.
var ErrTenantRequired = errors.New("tenant is required to trigger workflows")

const noWorkflowsMessage = "No workflows to execute"

// ActionExecutor runs one action. A non-nil error fails the whole run.
type ActionExecutor interface {
	Execute(ctx context.Context, action models.Action, tc *models.TriggerContext) (models.ActionResult, error)
}

// RunSummary describes what happened to one matched workflow.
type RunSummary struct {
	WorkflowID   string           `json:"workflowId"`
	WorkflowName string           `json:"workflowName"`
	TenantID     string           `json:"tenantId"`
	Trigger      string           `json:"trigger"`
	RunID        string           `json:"runId,omitempty"`
	Scheduled    bool             `json:"scheduled"`
	ScheduledFor *time.Time       `json:"scheduledFor,omitempty"`
	Status       models.RunStatus `json:"status,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// Summary is returned by TriggerWorkflows for diagnostics.
type Summary struct {
	Trigger   string       `json:"trigger"`
	Executed  int          `json:"executed"`
	Scheduled int          `json:"scheduled"`
	Message   string       `json:"message,omitempty"`
	Runs      []RunSummary `json:"runs"`
}

// ProcessSummary is returned by ProcessPendingWorkflows.
type ProcessSummary struct {
	Due       int          `json:"due"`
	Completed int          `json:"completed"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	Runs      []RunSummary `json:"runs"`
}

type Engine struct {
	matcher  *TriggerMatcher
	runs     persistence.WorkflowRunRepository
	flows    persistence.WorkflowRepository
	loader   *Loader
	executor ActionExecutor
	tracer   trace.Tracer
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Engine)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

func NewEngine(p persistence.Persistence, executor ActionExecutor, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		matcher:  NewTriggerMatcher(p.WorkflowRepository(), logger),
		runs:     p.WorkflowRunRepository(),
		flows:    p.WorkflowRepository(),
		loader:   NewLoader(p),
		executor: executor,
		tracer:   otelhelper.NoopTracer(),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With("module", "workflow_engine"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Loader returns the loader used to rebuild contexts of delayed runs.
func (e *Engine) Loader() *Loader {
	return e.loader
}

// TriggerWorkflows runs or schedules every active workflow of the context tenant
// matching trigger. Failures of single workflows are reported in the summary.
func (e *Engine) TriggerWorkflows(ctx context.Context, trigger string, tc *models.TriggerContext) (*Summary, error) {
	if tc == nil || tc.Tenant == nil {
		return nil, ErrTenantRequired
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.trigger",
		attribute.String(otelhelper.TenantIDKey, tc.Tenant.ID),
		attribute.String(otelhelper.TriggerKey, trigger),
	)
	defer span.End()

	logger := e.logger.With("tenant_id", tc.Tenant.ID, "trigger", trigger)

	workflows, err := e.matcher.Match(ctx, trigger, tc)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	summary := &Summary{Trigger: trigger, Runs: make([]RunSummary, 0, len(workflows))}

	if len(workflows) == 0 {
		summary.Message = noWorkflowsMessage

		return summary, nil
	}

	for _, wf := range workflows {
		var rs RunSummary

		if wf.DelayMinutes > 0 {
			rs = e.schedule(ctx, wf, trigger, tc)
			if rs.Error == "" {
				summary.Scheduled++
			}
		} else {
			rs = e.runNow(ctx, wf, trigger, tc)
			if rs.RunID != "" {
				summary.Executed++
			}
		}

		summary.Runs = append(summary.Runs, rs)
	}

	summary.Message = fmt.Sprintf("Executed %d workflow(s), scheduled %d", summary.Executed, summary.Scheduled)
	span.SetAttributes(attribute.Int("clientflow.workflows.executed", summary.Executed),
		attribute.Int("clientflow.workflows.scheduled", summary.Scheduled))

	logger.InfoContext(ctx, "Workflows triggered", "executed", summary.Executed, "scheduled", summary.Scheduled)

	return summary, nil
}

func (e *Engine) schedule(ctx context.Context, wf *models.Workflow, trigger string, tc *models.TriggerContext) RunSummary {
	scheduledFor := e.now().Add(wf.Delay())

	rs := RunSummary{
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		TenantID:     wf.TenantID,
		Trigger:      trigger,
		Scheduled:    true,
		ScheduledFor: &scheduledFor,
		Status:       models.RunStatusPending,
	}

	run := &models.WorkflowRun{
		WorkflowID: wf.ID,
		TenantID:   wf.TenantID,
		ContactID:  tc.ContactID(),
		Trigger:    trigger,
		Status:     models.RunStatusPending,
		Snapshot:   &models.RunSnapshot{ScheduledFor: scheduledFor, Context: tc.Refs()},
	}

	err := e.runs.Create(ctx, run)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to schedule workflow", "workflow_id", wf.ID, "error", err)
		rs.Error = err.Error()

		return rs
	}

	rs.RunID = run.ID

	e.logger.InfoContext(ctx, "Workflow scheduled",
		"workflow_id", wf.ID, "run_id", run.ID, "scheduled_for", scheduledFor)

	return rs
}

func (e *Engine) runNow(ctx context.Context, wf *models.Workflow, trigger string, tc *models.TriggerContext) RunSummary {
	rs := RunSummary{WorkflowID: wf.ID, WorkflowName: wf.Name, TenantID: wf.TenantID, Trigger: trigger}

	run := &models.WorkflowRun{
		WorkflowID: wf.ID,
		TenantID:   wf.TenantID,
		ContactID:  tc.ContactID(),
		Trigger:    trigger,
		Status:     models.RunStatusRunning,
	}

	err := e.runs.Create(ctx, run)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to create workflow run", "workflow_id", wf.ID, "error", err)
		rs.Error = err.Error()

		return rs
	}

	rs.RunID = run.ID
	e.execute(ctx, wf, run, tc)
	rs.Status = run.Status
	rs.Error = run.Error

	return rs
}

// execute runs the actions of wf in order and finalizes run. Failed results do not
// stop the run; an executor error does, and fails it.
func (e *Engine) execute(ctx context.Context, wf *models.Workflow, run *models.WorkflowRun, tc *models.TriggerContext) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, wf.ID),
		attribute.String(otelhelper.WorkflowNameKey, wf.Name),
		attribute.String(otelhelper.RunIDKey, run.ID),
	)
	defer span.End()

	logger := e.logger.With("workflow_id", wf.ID, "run_id", run.ID, "trigger", run.Trigger)
	logger.InfoContext(ctx, "Executing workflow", "actions", len(wf.Actions))

	// runCtx is per run: slots and entities written by one workflow stay out of the others.
	runCtx := tc.Clone()
	runCtx.Trigger = run.Trigger

	run.Status = models.RunStatusCompleted
	run.Results = make([]models.ActionResult, 0, len(wf.Actions))

	for i, action := range wf.Actions {
		result, err := e.executor.Execute(ctx, action, runCtx)
		if err != nil {
			logger.ErrorContext(ctx, "Workflow run failed", "action_index", i, "action_type", action.Type, "error", err)
			otelhelper.SetError(span, err, attribute.String(otelhelper.ActionTypeKey, string(action.Type)))

			run.Status = models.RunStatusFailed
			run.Error = err.Error()

			break
		}

		run.Results = append(run.Results, result)
	}

	err := e.runs.Finish(context.WithoutCancel(ctx), run)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to record workflow run", "error", err)
		otelhelper.SetError(span, err)

		return
	}

	logger.InfoContext(ctx, "Workflow run finished", "status", run.Status, "results", len(run.Results))
}

// ProcessPendingWorkflows executes every pending run that is due. A run claimed by
// another processor in the meantime is skipped.
func (e *Engine) ProcessPendingWorkflows(ctx context.Context) (*ProcessSummary, error) {
	due, err := e.runs.DuePending(ctx, e.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending runs: %w", err)
	}

	summary := &ProcessSummary{Due: len(due), Runs: make([]RunSummary, 0, len(due))}

	for _, run := range due {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		rs, claimed := e.processRun(ctx, run)
		if !claimed {
			summary.Skipped++

			continue
		}

		switch rs.Status {
		case models.RunStatusCompleted:
			summary.Completed++
		default:
			summary.Failed++
		}

		summary.Runs = append(summary.Runs, rs)
	}

	if summary.Due > 0 {
		e.logger.InfoContext(ctx, "Processed pending workflow runs",
			"due", summary.Due, "completed", summary.Completed, "failed", summary.Failed, "skipped", summary.Skipped)
	}

	return summary, nil
}

func (e *Engine) processRun(ctx context.Context, run *models.WorkflowRun) (RunSummary, bool) {
	logger := e.logger.With("run_id", run.ID, "workflow_id", run.WorkflowID)

	claimed, err := e.runs.Transition(ctx, run.ID, models.RunStatusPending, models.RunStatusRunning)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to claim pending run", "error", err)

		return RunSummary{}, false
	}

	if !claimed {
		logger.DebugContext(ctx, "Pending run already claimed")

		return RunSummary{}, false
	}

	run.Status = models.RunStatusRunning
	rs := RunSummary{WorkflowID: run.WorkflowID, RunID: run.ID, TenantID: run.TenantID, Trigger: run.Trigger, Scheduled: true}

	wf, err := e.flows.GetByID(ctx, run.WorkflowID)
	if err == nil {
		rs.WorkflowName = wf.Name

		var tc *models.TriggerContext

		tc, err = e.loader.Load(ctx, e.refs(run))
		if err == nil {
			e.execute(ctx, wf, run, tc)
			rs.Status = run.Status
			rs.Error = run.Error

			return rs, true
		}
	}

	logger.ErrorContext(ctx, "Failed to prepare pending run", "error", err)

	run.Status = models.RunStatusFailed
	run.Error = err.Error()

	finishErr := e.runs.Finish(context.WithoutCancel(ctx), run)
	if finishErr != nil {
		logger.ErrorContext(ctx, "Failed to record workflow run", "error", finishErr)
	}

	rs.Status = run.Status
	rs.Error = run.Error

	return rs, true
}

func (e *Engine) refs(run *models.WorkflowRun) models.ContextRefs {
	if run.Snapshot != nil {
		return run.Snapshot.Context
	}

	return models.ContextRefs{TenantID: run.TenantID, ContactID: run.ContactID}
}
