package file

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
)

// WorkflowRepository handles workflow storage.
type WorkflowRepository struct {
	store *store
}

func cloneWorkflow(workflow models.Workflow) *models.Workflow {
	workflow.Actions = slices.Clone(workflow.Actions)

	if workflow.TriggerTagID != nil {
		tagID := *workflow.TriggerTagID
		workflow.TriggerTagID = &tagID
	}

	return &workflow
}

func sortWorkflows(workflows []*models.Workflow) {
	sort.Slice(workflows, func(i, j int) bool {
		if !workflows[i].CreatedAt.Equal(workflows[j].CreatedAt) {
			return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
		}

		return workflows[i].ID < workflows[j].ID
	})
}

// Save upserts a workflow.
func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	return r.store.write(func(data *state) error {
		ts := now()

		if workflow.ID == "" {
			id, err := newID()
			if err != nil {
				return err
			}

			workflow.ID = id
		}

		if workflow.CreatedAt.IsZero() {
			workflow.CreatedAt = ts
		}

		workflow.UpdatedAt = ts
		data.Workflows[workflow.ID] = *cloneWorkflow(*workflow)

		return nil
	})
}

// GetByID returns a workflow by its ID.
func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	var found *models.Workflow

	err := r.store.read(func(data *state) error {
		workflow, ok := data.Workflows[id]
		if !ok {
			return persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		found = cloneWorkflow(workflow)

		return nil
	})

	return found, err
}

// Delete removes a workflow and its runs.
func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	return r.store.write(func(data *state) error {
		if _, ok := data.Workflows[id]; !ok {
			return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
		}

		delete(data.Workflows, id)

		for runID, run := range data.Runs {
			if run.WorkflowID == id {
				delete(data.Runs, runID)
			}
		}

		return nil
	})
}

// ListByTenant returns the tenant's workflows, oldest first.
func (r *WorkflowRepository) ListByTenant(_ context.Context, tenantID string) ([]*models.Workflow, error) {
	return r.filter(func(workflow *models.Workflow) bool {
		return workflow.TenantID == tenantID
	})
}

func (r *WorkflowRepository) FindActive(_ context.Context, tenantID, trigger string, tagID *string) ([]*models.Workflow, error) {
	return r.filter(func(workflow *models.Workflow) bool {
		if workflow.TenantID != tenantID || workflow.TriggerType != trigger || !workflow.Active {
			return false
		}

		return tagID == nil || workflow.MatchesTag(*tagID)
	})
}

func (r *WorkflowRepository) BySystemKey(_ context.Context, tenantID, systemKey string) (*models.Workflow, error) {
	workflows, err := r.filter(func(workflow *models.Workflow) bool {
		return workflow.TenantID == tenantID && workflow.SystemKey == systemKey
	})
	if err != nil {
		return nil, err
	}

	if len(workflows) == 0 || systemKey == "" {
		return nil, persistence.NewWorkflowError("BySystemKey", systemKey, persistence.ErrWorkflowNotFound)
	}

	return workflows[0], nil
}

func (r *WorkflowRepository) filter(keep func(*models.Workflow) bool) ([]*models.Workflow, error) {
	var workflows []*models.Workflow

	err := r.store.read(func(data *state) error {
		for _, stored := range data.Workflows {
			workflow := cloneWorkflow(stored)
			if keep(workflow) {
				workflows = append(workflows, workflow)
			}
		}

		return nil
	})

	sortWorkflows(workflows)

	return workflows, err
}

// WorkflowRunRepository is the run ledger.
type WorkflowRunRepository struct {
	store *store
}

func cloneRun(run models.WorkflowRun) *models.WorkflowRun {
	run.Results = slices.Clone(run.Results)

	if run.Snapshot != nil {
		snapshot := *run.Snapshot
		run.Snapshot = &snapshot
	}

	if run.CompletedAt != nil {
		completedAt := *run.CompletedAt
		run.CompletedAt = &completedAt
	}

	return &run
}

// Create inserts a new run.
func (r *WorkflowRunRepository) Create(_ context.Context, run *models.WorkflowRun) error {
	return r.store.write(func(data *state) error {
		ts := now()

		if run.ID == "" {
			id, err := newID()
			if err != nil {
				return err
			}

			run.ID = id
		}

		if _, ok := data.Runs[run.ID]; ok {
			return fmt.Errorf("workflow run %s already exists", run.ID)
		}

		if _, ok := data.Workflows[run.WorkflowID]; !ok {
			return persistence.NewWorkflowError("CreateRun", run.WorkflowID, persistence.ErrWorkflowNotFound)
		}

		if run.CreatedAt.IsZero() {
			run.CreatedAt = ts
		}

		run.UpdatedAt = ts
		data.Runs[run.ID] = *cloneRun(*run)

		return nil
	})
}

// Transition moves a run from one status to another only if it is currently in from.
func (r *WorkflowRunRepository) Transition(_ context.Context, id string, from, to models.RunStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, persistence.NewWorkflowError("Transition", id, persistence.ErrInvalidRunTransition)
	}

	transitioned := false

	err := r.store.write(func(data *state) error {
		run, ok := data.Runs[id]
		if !ok || run.Status != from {
			return nil
		}

		run.Status = to
		run.UpdatedAt = now()
		data.Runs[id] = run
		transitioned = true

		return nil
	})

	return transitioned, err
}

// Finish stores the outcome of a running run.
func (r *WorkflowRunRepository) Finish(_ context.Context, run *models.WorkflowRun) error {
	if !models.RunStatusRunning.CanTransition(run.Status) {
		return persistence.NewWorkflowError("Finish", run.ID, persistence.ErrInvalidRunTransition)
	}

	return r.store.write(func(data *state) error {
		stored, ok := data.Runs[run.ID]
		if !ok || stored.Status != models.RunStatusRunning {
			return persistence.NewWorkflowError("Finish", run.ID, persistence.ErrInvalidRunTransition)
		}

		ts := now()
		run.UpdatedAt = ts

		if run.CompletedAt == nil {
			run.CompletedAt = &ts
		}

		stored.Status = run.Status
		stored.Results = slices.Clone(run.Results)
		stored.Error = run.Error
		stored.CompletedAt = run.CompletedAt
		stored.UpdatedAt = ts
		data.Runs[run.ID] = stored

		return nil
	})
}

// GetByID returns a run by its ID.
func (r *WorkflowRunRepository) GetByID(_ context.Context, id string) (*models.WorkflowRun, error) {
	var found *models.WorkflowRun

	err := r.store.read(func(data *state) error {
		run, ok := data.Runs[id]
		if !ok {
			return persistence.NewWorkflowError("GetRun", id, persistence.ErrRunNotFound)
		}

		found = cloneRun(run)

		return nil
	})

	return found, err
}

// DuePending returns pending runs due at now, oldest first.
func (r *WorkflowRunRepository) DuePending(_ context.Context, at time.Time) ([]*models.WorkflowRun, error) {
	runs, err := r.filter(func(run *models.WorkflowRun) bool {
		return run.Status == models.RunStatusPending && run.DueAt(at)
	})

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.Before(runs[j].CreatedAt)
		}

		return runs[i].ID < runs[j].ID
	})

	return runs, err
}

// ListByWorkflow returns the runs of a workflow, newest first.
func (r *WorkflowRunRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowRun, error) {
	runs, err := r.filter(func(run *models.WorkflowRun) bool {
		return run.WorkflowID == workflowID
	})

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}

		return runs[i].ID > runs[j].ID
	})

	return runs, err
}

func (r *WorkflowRunRepository) filter(keep func(*models.WorkflowRun) bool) ([]*models.WorkflowRun, error) {
	var runs []*models.WorkflowRun

	err := r.store.read(func(data *state) error {
		for _, stored := range data.Runs {
			run := cloneRun(stored)
			if keep(run) {
				runs = append(runs, run)
			}
		}

		return nil
	})

	return runs, err
}
