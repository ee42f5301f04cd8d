package protocol

import (
	"context"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
)

// TriggerEmitter raises a named trigger for the workflows of the context tenant.
// Implementations may run the workflows synchronously, in the background or on
// another process.
type TriggerEmitter interface {
	EmitTrigger(ctx context.Context, trigger string, tc *models.TriggerContext) error
}

// TriggerEmitterFunc adapts a function to TriggerEmitter.
type TriggerEmitterFunc func(ctx context.Context, trigger string, tc *models.TriggerContext) error

// EmitTrigger calls f.
func (f TriggerEmitterFunc) EmitTrigger(ctx context.Context, trigger string, tc *models.TriggerContext) error {
	return f(ctx, trigger, tc)
}

// NopEmitter discards every trigger.
type NopEmitter struct{}

func (NopEmitter) EmitTrigger(context.Context, string, *models.TriggerContext) error {
	return nil
}
