package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEvent(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC()
	event := NewBaseEvent(TriggerRaisedEvent, "tenant-1")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, TriggerRaisedEvent, event.Type)
	assert.Equal(t, "tenant-1", event.TenantID)
	assert.False(t, event.Timestamp.Before(before))
	assert.NotEqual(t, event.ID, NewBaseEvent(TriggerRaisedEvent, "tenant-1").ID)
}

func TestFactory(t *testing.T) {
	t.Parallel()

	assert.IsType(t, &TriggerRaised{}, Factory(TriggerRaisedEvent))
	assert.IsType(t, &WorkflowRunFinished{}, Factory(WorkflowRunFinishedEvent))
	assert.Nil(t, Factory("node.activation"))
}

func TestTriggerRaised_DecodesThroughFactory(t *testing.T) {
	t.Parallel()

	original := TriggerRaised{
		BaseEvent: NewBaseEvent(TriggerRaisedEvent, "tenant-1"),
		Trigger:   "booking_confirmed",
		Context:   models.ContextRefs{TenantID: "tenant-1", BookingID: "b1", ContactID: "c1"},
	}

	payload, err := json.Marshal(original)
	require.NoError(t, err)

	decoded, ok := Factory(TriggerRaisedEvent).(*TriggerRaised)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(payload, decoded))

	assert.Equal(t, "booking_confirmed", decoded.Trigger)
	assert.Equal(t, original.Context, decoded.Context)
	assert.Equal(t, TriggerRaisedEvent, decoded.GetType())
}
