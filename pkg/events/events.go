// Package events defines the messages exchanged between the API and the workers.
package events

import (
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every clientflow event.
const Topic = "clientflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// TriggerRaisedEvent asks a worker to run the workflows of a trigger.
	TriggerRaisedEvent EventType = "trigger.raised"
	// WorkflowRunFinishedEvent reports the outcome of one run.
	WorkflowRunFinishedEvent EventType = "workflow_run.finished"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenant_id"`
	WorkerID  string    `json:"worker_id,omitempty"`
}

func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
	}
}

// TriggerRaised carries a trigger and the identifiers of its context.
type TriggerRaised struct {
	BaseEvent

	Trigger string             `json:"trigger"`
	Context models.ContextRefs `json:"context"`
}

func (TriggerRaised) GetType() EventType {
	return TriggerRaisedEvent
}

type WorkflowRunFinished struct {
	BaseEvent

	RunID      string           `json:"run_id"`
	WorkflowID string           `json:"workflow_id"`
	Trigger    string           `json:"trigger"`
	Status     models.RunStatus `json:"status"`
	Scheduled  bool             `json:"scheduled"`
	Error      string           `json:"error,omitempty"`
}

func (WorkflowRunFinished) GetType() EventType {
	return WorkflowRunFinishedEvent
}

// Factory returns an empty event for a type, or nil for unknown types.
func Factory(eventType EventType) any {
	switch eventType {
	case TriggerRaisedEvent:
		return &TriggerRaised{}
	case WorkflowRunFinishedEvent:
		return &WorkflowRunFinished{}
	default:
		return nil
	}
}
