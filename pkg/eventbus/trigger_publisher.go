package eventbus

import (
	"context"
	"fmt"

	"github.com/dmayes77/clientflow-sub001/pkg/events"
	"github.com/dmayes77/clientflow-sub001/pkg/models"
)

// TriggerPublisher hands triggers to the workers through the bus. Only context
// identifiers are sent; the worker loads the objects again.
type TriggerPublisher struct {
	publisher EventPublisher
}

func NewTriggerPublisher(publisher EventPublisher) *TriggerPublisher {
	return &TriggerPublisher{publisher: publisher}
}

func (p *TriggerPublisher) EmitTrigger(ctx context.Context, trigger string, tc *models.TriggerContext) error {
	refs := tc.Refs()
	if refs.TenantID == "" {
		return fmt.Errorf("cannot publish %s: tenant is required", trigger)
	}

	event := events.TriggerRaised{
		BaseEvent: events.NewBaseEvent(events.TriggerRaisedEvent, refs.TenantID),
		Trigger:   trigger,
		Context:   refs,
	}

	err := p.publisher.Publish(ctx, refs.TenantID, event)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", trigger, err)
	}

	return nil
}
