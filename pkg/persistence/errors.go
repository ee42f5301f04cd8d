package persistence

import (
	"errors"
	"fmt"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrRunNotFound indicates a workflow run was not found.
	ErrRunNotFound = errors.New("workflow run not found")

	// ErrTagNotFound indicates a tag was not found.
	ErrTagNotFound = errors.New("tag not found")

	// ErrTemplateNotFound indicates an email template was not found.
	ErrTemplateNotFound = errors.New("email template not found")

	// ErrEntityNotFound indicates a tenant, contact, booking, invoice or payment was not found.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrAssociationExists indicates the entity already carries the tag.
	ErrAssociationExists = errors.New("tag association already exists")

	// ErrInvoiceExists indicates an invoice is already linked to the booking.
	ErrInvoiceExists = errors.New("invoice already exists for booking")

	// ErrSystemTagImmutable indicates an attempt to delete a system tag.
	ErrSystemTagImmutable = errors.New("system tags cannot be deleted")

	// ErrInvalidRunTransition indicates the run was not in the status the transition requires.
	ErrInvalidRunTransition = errors.New("invalid workflow run transition")

	// ErrUnknownEntityKind indicates an entity kind without a tag table.
	ErrUnknownEntityKind = errors.New("unknown entity kind")
)

// EntityError wraps entity lookups and mutations with the entity being addressed.
type EntityError struct {
	Op   string            // Operation being performed (e.g., "Booking", "UpdateBookingStatus")
	Kind models.EntityKind // Entity kind, or "tenant"
	ID   string            // Entity ID
	Err  error             // Underlying error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for entity errors.
func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewEntityError creates a new entity error with context.
func NewEntityError(op string, kind models.EntityKind, id string, err error) *EntityError {
	return &EntityError{
		Op:   op,
		Kind: kind,
		ID:   id,
		Err:  err,
	}
}

// WorkflowError wraps workflow and run errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save", "Transition")
	WorkflowID string // Workflow or run ID
	Err        error  // Underlying error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsRunNotFound checks if an error indicates a run was not found.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}

// IsTagNotFound checks if an error indicates a tag was not found.
func IsTagNotFound(err error) bool {
	return errors.Is(err, ErrTagNotFound)
}

// IsTemplateNotFound checks if an error indicates a template was not found.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsEntityNotFound checks if an error indicates a domain entity was not found.
func IsEntityNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}

// IsNotFound checks for any not-found error.
func IsNotFound(err error) bool {
	return IsWorkflowNotFound(err) || IsRunNotFound(err) || IsTagNotFound(err) ||
		IsTemplateNotFound(err) || IsEntityNotFound(err)
}

// IsAssociationExists checks if an error indicates a duplicate tag association.
func IsAssociationExists(err error) bool {
	return errors.Is(err, ErrAssociationExists)
}

// IsInvoiceExists checks if an error indicates a duplicate invoice for a booking.
func IsInvoiceExists(err error) bool {
	return errors.Is(err, ErrInvoiceExists)
}
