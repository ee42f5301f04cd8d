package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/google/uuid"
)

const workflowColumns = `
			id
		  , tenant_id
		  , name
		  , COALESCE(description, '')
		  , trigger_type
		  , trigger_tag_id
		  , active
		  , delay_minutes
		  , actions
		  , COALESCE(system_key, '')
		  , created_at
		  , updated_at`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// GetByID returns a workflow by its ID.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, "SELECT"+workflowColumns+" FROM workflows WHERE id = $1", id)

	workflow, err := r.scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// BySystemKey returns the provisioned workflow with the given system key.
func (r *WorkflowRepository) BySystemKey(ctx context.Context, tenantID, systemKey string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT"+workflowColumns+" FROM workflows WHERE tenant_id = $1 AND system_key = $2",
		tenantID, systemKey)

	workflow, err := r.scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("BySystemKey", systemKey, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// ListByTenant returns all workflows of a tenant, newest first.
func (r *WorkflowRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT"+workflowColumns+" FROM workflows WHERE tenant_id = $1 ORDER BY created_at DESC",
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	return r.collectWorkflows(rows)
}

// FindActive returns the active workflows of a tenant for a trigger, oldest first.
// A non-nil tagID restricts the result to workflows scoped to that tag or unscoped.
func (r *WorkflowRepository) FindActive(ctx context.Context, tenantID, trigger string, tagID *string) ([]*models.Workflow, error) {
	query := "SELECT" + workflowColumns + `
		FROM workflows
		WHERE tenant_id = $1
		  AND trigger_type = $2
		  AND active = TRUE`
	args := []any{tenantID, trigger}

	if tagID != nil {
		query += " AND (trigger_tag_id = $3 OR trigger_tag_id IS NULL)"
		args = append(args, *tagID)
	}

	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query active workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	return r.collectWorkflows(rows)
}

// Save saves a workflow to the database.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	actions := workflow.Actions
	if actions == nil {
		actions = []models.Action{}
	}

	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
		INSERT INTO workflows (id, tenant_id, name, description, trigger_type, trigger_tag_id,
			active, delay_minutes, actions, system_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_type = EXCLUDED.trigger_type,
			trigger_tag_id = EXCLUDED.trigger_tag_id,
			active = EXCLUDED.active,
			delay_minutes = EXCLUDED.delay_minutes,
			actions = EXCLUDED.actions,
			system_key = EXCLUDED.system_key,
			updated_at = EXCLUDED.updated_at
	`

	var triggerTagID sql.NullString
	if workflow.TriggerTagID != nil {
		triggerTagID = nullString(*workflow.TriggerTagID)
	}

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.TenantID,
		workflow.Name,
		workflow.Description,
		workflow.TriggerType,
		triggerTagID,
		workflow.Active,
		workflow.DelayMinutes,
		actionsJSON,
		nullString(workflow.SystemKey),
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

// Delete removes a workflow and, through the foreign key, its runs.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read deleted rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) collectWorkflows(rows *sql.Rows) ([]*models.Workflow, error) {
	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow     models.Workflow
		triggerTagID sql.NullString
		actionsJSON  []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.TenantID,
		&workflow.Name,
		&workflow.Description,
		&workflow.TriggerType,
		&triggerTagID,
		&workflow.Active,
		&workflow.DelayMinutes,
		&actionsJSON,
		&workflow.SystemKey,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if triggerTagID.Valid {
		workflow.TriggerTagID = &triggerTagID.String
	}

	err = json.Unmarshal(actionsJSON, &workflow.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	return &workflow, nil
}
