package models

import "time"

// RunStatus is the lifecycle state of a WorkflowRun.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// CanTransition reports whether a run may move from s to next.
// Allowed: pending→running, running→completed, running→failed.
func (s RunStatus) CanTransition(next RunStatus) bool {
	switch s {
	case RunStatusPending:
		return next == RunStatusRunning
	case RunStatusRunning:
		return next == RunStatusCompleted || next == RunStatusFailed
	default:
		return false
	}
}

// ActionResult is the outcome of one action within a run.
type ActionResult struct {
	Action  ActionType     `json:"action"`
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// RunSnapshot is stored on pending runs: when to run and which entities to load.
type RunSnapshot struct {
	ScheduledFor time.Time   `json:"scheduled_for"`
	Context      ContextRefs `json:"context"`
}

// WorkflowRun records one execution attempt of a workflow.
type WorkflowRun struct {
	ID          string         `json:"id"`
	WorkflowID  string         `json:"workflow_id"`
	TenantID    string         `json:"tenant_id"`
	ContactID   string         `json:"contact_id,omitempty"`
	Trigger     string         `json:"trigger"`
	Status      RunStatus      `json:"status"`
	Results     []ActionResult `json:"results,omitempty"`
	Snapshot    *RunSnapshot   `json:"snapshot,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// DueAt reports whether a pending run is due at now. Runs without a snapshot are due immediately.
func (r *WorkflowRun) DueAt(now time.Time) bool {
	if r.Snapshot == nil || r.Snapshot.ScheduledFor.IsZero() {
		return true
	}

	return !r.Snapshot.ScheduledFor.After(now)
}

// Succeeded builds a successful result.
func Succeeded(action ActionType, message string) ActionResult {
	return ActionResult{Action: action, Success: true, Message: message}
}

// Failed builds a failed result carrying a precondition or remote error.
func Failed(action ActionType, reason string) ActionResult {
	return ActionResult{Action: action, Success: false, Error: reason}
}
