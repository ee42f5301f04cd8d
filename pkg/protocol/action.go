// Package protocol defines the contracts shared by action handlers, emitters and the engine.
package protocol

import (
	"context"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
)

// ActionHandler executes one kind of workflow action.
//
// Precondition failures (missing entity, template not found, remote non-2xx)
// are reported as a result with Success false. A non-nil error is reserved for
// failures that should abort the run, such as a broken store.
type ActionHandler interface {
	// Type returns the action type this handler executes.
	Type() models.ActionType

	// Schema returns the JSON schema of the action config.
	Schema() map[string]any

	Execute(ctx context.Context, action models.Action, tc *models.TriggerContext) (models.ActionResult, error)
}
