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

const runColumns = `
			id
		  , workflow_id
		  , tenant_id
		  , COALESCE(contact_id, '')
		  , trigger
		  , status
		  , results
		  , snapshot
		  , COALESCE(error, '')
		  , created_at
		  , updated_at
		  , completed_at`

// WorkflowRunRepository handles the workflow_runs ledger.
type WorkflowRunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRunRepository creates a new workflow run repository.
func NewWorkflowRunRepository(db *sql.DB, logger *slog.Logger) *WorkflowRunRepository {
	return &WorkflowRunRepository{db: db, logger: logger}
}

// Create inserts a new run.
func (r *WorkflowRunRepository) Create(ctx context.Context, run *models.WorkflowRun) error {
	now := time.Now().UTC()

	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate run ID: %w", err)
		}

		run.ID = id.String()
	}

	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}

	run.UpdatedAt = now

	resultsJSON, err := marshalNullable(run.Results, len(run.Results) > 0)
	if err != nil {
		return fmt.Errorf("failed to marshal run results: %w", err)
	}

	snapshotJSON, err := marshalNullable(run.Snapshot, run.Snapshot != nil)
	if err != nil {
		return fmt.Errorf("failed to marshal run snapshot: %w", err)
	}

	var scheduledFor sql.NullTime
	if run.Snapshot != nil && !run.Snapshot.ScheduledFor.IsZero() {
		scheduledFor = sql.NullTime{Time: run.Snapshot.ScheduledFor, Valid: true}
	}

	query := `
		INSERT INTO workflow_runs (id, workflow_id, tenant_id, contact_id, trigger, status,
			results, snapshot, scheduled_for, error, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.WorkflowID,
		run.TenantID,
		nullString(run.ContactID),
		run.Trigger,
		run.Status,
		resultsJSON,
		snapshotJSON,
		scheduledFor,
		nullString(run.Error),
		run.CreatedAt,
		run.UpdatedAt,
		run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create workflow run: %w", err)
	}

	return nil
}

// Transition atomically moves a run from one status to another and reports whether it did.
func (r *WorkflowRunRepository) Transition(ctx context.Context, id string, from, to models.RunStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, persistence.NewWorkflowError("Transition", id, persistence.ErrInvalidRunTransition)
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE workflow_runs SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2",
		id, from, to, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to transition workflow run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read transitioned rows: %w", err)
	}

	return affected == 1, nil
}

// Finish stores the outcome of a running run.
func (r *WorkflowRunRepository) Finish(ctx context.Context, run *models.WorkflowRun) error {
	if !models.RunStatusRunning.CanTransition(run.Status) {
		return persistence.NewWorkflowError("Finish", run.ID, persistence.ErrInvalidRunTransition)
	}

	resultsJSON, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal run results: %w", err)
	}

	now := time.Now().UTC()
	run.UpdatedAt = now

	if run.CompletedAt == nil {
		run.CompletedAt = &now
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_runs
		SET status = $2, results = $3, error = $4, completed_at = $5, updated_at = $6
		WHERE id = $1 AND status = 'running'
	`,
		run.ID,
		run.Status,
		resultsJSON,
		nullString(run.Error),
		run.CompletedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to finish workflow run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read finished rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Finish", run.ID, persistence.ErrInvalidRunTransition)
	}

	return nil
}

// GetByID returns a run by its ID.
func (r *WorkflowRunRepository) GetByID(ctx context.Context, id string) (*models.WorkflowRun, error) {
	run, err := r.scanRun(r.db.QueryRowContext(ctx, "SELECT"+runColumns+" FROM workflow_runs WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetRun", id, persistence.ErrRunNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow run: %w", err)
	}

	return run, nil
}

// DuePending returns pending runs due at now, oldest first.
func (r *WorkflowRunRepository) DuePending(ctx context.Context, now time.Time) ([]*models.WorkflowRun, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT"+runColumns+`
		FROM workflow_runs
		WHERE status = 'pending'
		  AND (scheduled_for IS NULL OR scheduled_for <= $1)
		ORDER BY created_at, id`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending runs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	return r.collectRuns(rows)
}

// ListByWorkflow returns the runs of a workflow, newest first.
func (r *WorkflowRunRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT"+runColumns+" FROM workflow_runs WHERE workflow_id = $1 ORDER BY created_at DESC, id DESC",
		workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow runs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	return r.collectRuns(rows)
}

func (r *WorkflowRunRepository) collectRuns(rows *sql.Rows) ([]*models.WorkflowRun, error) {
	runs := make([]*models.WorkflowRun, 0)

	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow run: %w", err)
		}

		runs = append(runs, run)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow runs: %w", err)
	}

	return runs, nil
}

func (r *WorkflowRunRepository) scanRun(row scanner) (*models.WorkflowRun, error) {
	var (
		run          models.WorkflowRun
		resultsJSON  []byte
		snapshotJSON []byte
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.WorkflowID,
		&run.TenantID,
		&run.ContactID,
		&run.Trigger,
		&run.Status,
		&resultsJSON,
		&snapshotJSON,
		&run.Error,
		&run.CreatedAt,
		&run.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	if len(resultsJSON) > 0 {
		err = json.Unmarshal(resultsJSON, &run.Results)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal run results: %w", err)
		}
	}

	if len(snapshotJSON) > 0 {
		run.Snapshot = &models.RunSnapshot{}

		err = json.Unmarshal(snapshotJSON, run.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal run snapshot: %w", err)
		}
	}

	return &run, nil
}

// marshalNullable encodes value as JSON, or SQL NULL when it is not present.
func marshalNullable(value any, present bool) (any, error) {
	if !present {
		return nil, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	return data, nil
}
