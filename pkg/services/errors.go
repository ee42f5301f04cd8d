// Package services provides the workflow and lifecycle operations behind the API and CLI.
package services

import (
	"errors"
	"fmt"

	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest      = errors.New("invalid request")
	ErrTenantRequired      = errors.New("tenant ID cannot be empty")
	ErrTriggerTagRequired  = errors.New("trigger tag is required for tag_added and tag_removed workflows")
	ErrUnknownActionType   = errors.New("unknown action type")
	ErrInvalidActionConfig = errors.New("invalid action config")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrWorkflowNil         = errors.New("workflow cannot be nil")

	// Business Logic Conflicts (409 Conflict).
	ErrAlreadyClient = errors.New("contact is already a client")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrTenantRequired) ||
		errors.Is(err, ErrTriggerTagRequired) ||
		errors.Is(err, ErrUnknownActionType) ||
		errors.Is(err, ErrInvalidActionConfig) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrWorkflowNil)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAlreadyClient) ||
		persistence.IsAssociationExists(err) ||
		persistence.IsInvoiceExists(err) ||
		errors.Is(err, persistence.ErrSystemTagImmutable)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return persistence.IsNotFound(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
