package status_test

import (
	"testing"

	"github.com/dmayes77/clientflow-sub001/pkg/actions/status"
	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateContactAction_Execute(t *testing.T) {
	t.Parallel()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	contact := &models.Contact{TenantID: "tenant-1", Name: "Ana", Status: "lead"}
	require.NoError(t, store.EntityRepository().SaveContact(t.Context(), contact))

	action := status.NewUpdateContactAction(store.EntityRepository())

	tests := []struct {
		name            string
		config          models.UpdateStatusConfig
		tc              *models.TriggerContext
		expectedSuccess bool
		expectedError   string
	}{
		{name: "missing status", tc: &models.TriggerContext{Contact: contact}, expectedError: "Missing status or contact"},
		{name: "missing contact", config: models.UpdateStatusConfig{Status: "client"}, tc: &models.TriggerContext{}, expectedError: "Missing status or contact"},
		{name: "unknown contact", config: models.UpdateStatusConfig{Status: "client"}, tc: &models.TriggerContext{Contact: &models.Contact{ID: "ghost"}}, expectedError: "Missing status or contact"},
		{name: "updates", config: models.UpdateStatusConfig{Status: "client"}, tc: &models.TriggerContext{Contact: contact}, expectedSuccess: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := action.Execute(t.Context(), models.Action{Type: models.ActionUpdateStatus, Config: tt.config}, tt.tc)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedSuccess, result.Success)
			assert.Equal(t, tt.expectedError, result.Error)
		})
	}

	stored, err := store.EntityRepository().Contact(t.Context(), contact.ID)
	require.NoError(t, err)
	assert.Equal(t, "client", stored.Status)
}

func TestUpdateBookingAction_Execute(t *testing.T) {
	t.Parallel()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	booking := &models.Booking{TenantID: "tenant-1", Status: "pending"}
	require.NoError(t, store.EntityRepository().SaveBooking(t.Context(), booking))

	action := status.NewUpdateBookingAction(store.EntityRepository())

	result, err := action.Execute(t.Context(), models.Action{Type: models.ActionUpdateBookingStatus}, &models.TriggerContext{Booking: booking})
	require.NoError(t, err)
	assert.Equal(t, "Missing status or booking", result.Error)

	result, err = action.Execute(t.Context(),
		models.Action{Type: models.ActionUpdateBookingStatus, Config: models.UpdateBookingStatusConfig{Status: "confirmed"}},
		&models.TriggerContext{Booking: booking})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "confirmed", booking.Status)

	stored, err := store.EntityRepository().Booking(t.Context(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", stored.Status)
}
