package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/dmayes77/clientflow-sub001/pkg/registry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	validate    *validator.Validate
}

// NewWorkflow creates a new workflow service. Action configs are checked
// against the schemas of the handlers in reg.
func NewWorkflow(persistence persistence.Persistence, reg *registry.Registry) *Workflow {
	return &Workflow{
		persistence: persistence,
		registry:    reg,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns the workflows of a tenant.
func (w *Workflow) List(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, ErrTenantRequired
	}

	workflows, err := w.persistence.WorkflowRepository().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID retrieves a workflow of the tenant. Workflows of other tenants are reported as not found.
func (w *Workflow) FetchByID(ctx context.Context, tenantID, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil || workflow.TenantID != tenantID {
		return nil, persistence.NewWorkflowError("FetchByID", id, ErrWorkflowNotFound)
	}

	return workflow, nil
}

// Create validates and stores a new workflow for the tenant.
func (w *Workflow) Create(ctx context.Context, tenantID string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	workflow.ID = id.String()
	workflow.TenantID = tenantID
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	err = w.Validate(ctx, workflow)
	if err != nil {
		return nil, err
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return workflow, nil
}

// Update replaces an existing workflow. The system key and creation time are kept.
func (w *Workflow) Update(ctx context.Context, tenantID, workflowID string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.FetchByID(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}

	workflow.ID = workflowID
	workflow.TenantID = tenantID
	workflow.SystemKey = existing.SystemKey
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()

	err = w.Validate(ctx, workflow)
	if err != nil {
		return nil, err
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow of the tenant.
func (w *Workflow) Delete(ctx context.Context, tenantID, workflowID string) error {
	_, err := w.FetchByID(ctx, tenantID, workflowID)
	if err != nil {
		return err
	}

	err = w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// Runs lists the run ledger of a workflow.
func (w *Workflow) Runs(ctx context.Context, tenantID, workflowID string) ([]*models.WorkflowRun, error) {
	_, err := w.FetchByID(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}

	runs, err := w.persistence.WorkflowRunRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow runs: %w", err)
	}

	return runs, nil
}

// Validate checks the workflow fields, the trigger tag scope and every action config.
func (w *Workflow) Validate(ctx context.Context, workflow *models.Workflow) error {
	if strings.TrimSpace(workflow.TenantID) == "" {
		return ErrTenantRequired
	}

	err := w.validate.Struct(workflow)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError("Validate", "INVALID_WORKFLOW", validationErrors.Error(), ErrInvalidRequest)
		}

		return NewValidationError("Validate", "INVALID_WORKFLOW", err.Error(), ErrInvalidRequest)
	}

	if workflow.TriggerTagID != nil && *workflow.TriggerTagID == "" {
		workflow.TriggerTagID = nil
	}

	if models.RequiresTriggerTag(workflow.TriggerType) && workflow.TriggerTagID == nil {
		return NewValidationError("Validate", "TRIGGER_TAG_REQUIRED",
			fmt.Sprintf("%s workflows must set trigger_tag_id", workflow.TriggerType), ErrTriggerTagRequired)
	}

	if workflow.TriggerTagID != nil {
		tag, err := w.persistence.TagRepository().TagByID(ctx, *workflow.TriggerTagID)
		if persistence.IsTagNotFound(err) || (err == nil && tag.TenantID != workflow.TenantID) {
			return NewValidationError("Validate", "UNKNOWN_TRIGGER_TAG",
				fmt.Sprintf("trigger tag %s does not exist", *workflow.TriggerTagID), ErrInvalidRequest)
		}

		if err != nil {
			return fmt.Errorf("failed to load trigger tag: %w", err)
		}
	}

	for i, action := range workflow.Actions {
		err = w.validateAction(i, action)
		if err != nil {
			return err
		}
	}

	return nil
}

func (w *Workflow) validateAction(index int, action models.Action) error {
	handler, ok := w.registry.Handler(action.Type)
	if !ok {
		return NewValidationError("validateAction", "UNKNOWN_ACTION_TYPE",
			fmt.Sprintf("action %d: unknown action type '%s'", index, action.Type), ErrUnknownActionType)
	}

	if reason := action.ConfigError(); reason != "" {
		return NewValidationError("validateAction", "INVALID_ACTION_CONFIG",
			fmt.Sprintf("action %d (%s): %s", index, action.Type, reason), ErrInvalidActionConfig)
	}

	config, err := action.ConfigMap()
	if err != nil {
		return NewValidationError("validateAction", "INVALID_ACTION_CONFIG",
			fmt.Sprintf("action %d: %v", index, err), ErrInvalidActionConfig)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(handler.Schema()), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("failed to validate %s config: %w", action.Type, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return NewValidationError("validateAction", "INVALID_ACTION_CONFIG",
			fmt.Sprintf("action %d (%s): %s", index, action.Type, strings.Join(messages, "; ")), ErrInvalidActionConfig)
	}

	return nil
}
