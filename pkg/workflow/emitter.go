package workflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
)

// AsyncEmitter runs TriggerWorkflows in the background. Callers never wait on or
// observe workflow outcomes.
type AsyncEmitter struct {
	engine *Engine
	wg     sync.WaitGroup
	logger *slog.Logger
}

func NewAsyncEmitter(engine *Engine, logger *slog.Logger) *AsyncEmitter {
	return &AsyncEmitter{engine: engine, logger: logger.With("module", "async_emitter")}
}

func (a *AsyncEmitter) EmitTrigger(ctx context.Context, trigger string, tc *models.TriggerContext) error {
	if tc == nil || tc.Tenant == nil {
		return ErrTenantRequired
	}

	ctx = context.WithoutCancel(ctx)

	a.wg.Add(1)

	go func() {
		defer a.wg.Done()

		_, err := a.engine.TriggerWorkflows(ctx, trigger, tc)
		if err != nil {
			a.logger.ErrorContext(ctx, "Failed to trigger workflows", "trigger", trigger, "error", err)
		}
	}()

	return nil
}

// Wait blocks until every emitted trigger has been handled.
func (a *AsyncEmitter) Wait() {
	a.wg.Wait()
}

// SyncEmitter runs TriggerWorkflows on the caller's goroutine.
type SyncEmitter struct {
	Engine *Engine
}

func (s SyncEmitter) EmitTrigger(ctx context.Context, trigger string, tc *models.TriggerContext) error {
	_, err := s.Engine.TriggerWorkflows(ctx, trigger, tc)

	return err
}
