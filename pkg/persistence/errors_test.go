package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		entityErr := persistence.NewEntityError("Booking", models.EntityBooking, "booking-1", persistence.ErrEntityNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, persistence.IsEntityNotFound(entityErr))
		assert.True(t, persistence.IsNotFound(workflowErr))
		assert.True(t, persistence.IsNotFound(entityErr))
		assert.False(t, persistence.IsTagNotFound(entityErr))

		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
		assert.True(t, errors.Is(entityErr, persistence.ErrEntityNotFound))
	})

	t.Run("wrapped duplicates are detected", func(t *testing.T) {
		err := fmt.Errorf("failed to add tag: %w", persistence.ErrAssociationExists)

		assert.True(t, persistence.IsAssociationExists(err))
		assert.False(t, persistence.IsInvoiceExists(err))
		assert.False(t, persistence.IsNotFound(err))
	})

	t.Run("entity error contains context", func(t *testing.T) {
		err := persistence.NewEntityError("UpdateBookingStatus", models.EntityBooking, "booking-9", persistence.ErrEntityNotFound)

		assert.Contains(t, err.Error(), "UpdateBookingStatus")
		assert.Contains(t, err.Error(), "booking booking-9")
		assert.Contains(t, err.Error(), "entity not found")
	})

	t.Run("workflow error contains context", func(t *testing.T) {
		err := persistence.NewWorkflowError("Transition", "run-123", persistence.ErrRunNotFound)

		assert.Contains(t, err.Error(), "Transition")
		assert.Contains(t, err.Error(), "run-123")
		assert.True(t, persistence.IsRunNotFound(err))
	})
}
