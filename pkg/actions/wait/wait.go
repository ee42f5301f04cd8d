// Package wait provides the wait action. The delay itself is realized by the
// engine scheduling a pending run.
package wait

import (
	"context"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
)

type Action struct{}

func NewAction() *Action {
	return &Action{}
}

func (*Action) Type() models.ActionType {
	return models.ActionWait
}

func (*Action) Execute(context.Context, models.Action, *models.TriggerContext) (models.ActionResult, error) {
	return models.Succeeded(models.ActionWait, "Wait action - delay already scheduled"), nil
}

func (*Action) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"minutes": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"description": "Informational only. Use the workflow delay to postpone actions.",
			},
		},
	}
}
