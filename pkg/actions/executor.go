// Package actions dispatches workflow actions to their handlers.
package actions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/otelhelper"
	"github.com/dmayes77/clientflow-sub001/pkg/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Executor runs one action against a trigger context.
//
// Precondition failures come back as a failed ActionResult with a nil error so the
// remaining actions of a workflow still run. A non-nil error means the run must fail.
type Executor struct {
	registry *registry.Registry
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewExecutor(reg *registry.Registry, tracer trace.Tracer, logger *slog.Logger) *Executor {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Executor{
		registry: reg,
		tracer:   tracer,
		logger:   logger.With("module", "action_executor"),
	}
}

func (e *Executor) Execute(ctx context.Context, action models.Action, tc *models.TriggerContext) (models.ActionResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "action.execute",
		attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
		attribute.String(otelhelper.TenantIDKey, tc.Refs().TenantID),
	)
	defer span.End()

	logger := e.logger.With("action_type", action.Type)

	handler, ok := e.registry.Handler(action.Type)
	if !ok {
		logger.WarnContext(ctx, "Unknown action type")
		span.SetAttributes(attribute.Bool("clientflow.action.success", false))

		return models.Failed(action.Type, fmt.Sprintf("Unknown action type: %s", action.Type)), nil
	}

	if reason := action.ConfigError(); reason != "" {
		logger.WarnContext(ctx, "Action config does not decode", "reason", reason)
		span.SetAttributes(attribute.Bool("clientflow.action.success", false))

		return models.Failed(action.Type, fmt.Sprintf("Invalid config for action %s: %s", action.Type, reason)), nil
	}

	result, err := handler.Execute(ctx, action, tc)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Action failed", "error", err)

		return models.ActionResult{}, fmt.Errorf("action %s: %w", action.Type, err)
	}

	if result.Action == "" {
		result.Action = action.Type
	}

	span.SetAttributes(attribute.Bool("clientflow.action.success", result.Success))

	if result.Success {
		logger.InfoContext(ctx, "Action executed", "message", result.Message)
	} else {
		logger.InfoContext(ctx, "Action reported failure", "reason", result.Error)
	}

	return result, nil
}
