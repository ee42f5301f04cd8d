// Package status provides the update_status and update_booking_status actions.
package status

import (
	"context"
	"fmt"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
)

// UpdateContactAction sets the status field of the context contact.
type UpdateContactAction struct {
	entities persistence.EntityRepository
}

func NewUpdateContactAction(entities persistence.EntityRepository) *UpdateContactAction {
	return &UpdateContactAction{entities: entities}
}

func (a *UpdateContactAction) Type() models.ActionType {
	return models.ActionUpdateStatus
}

func (a *UpdateContactAction) Execute(ctx context.Context, action models.Action, tc *models.TriggerContext) (models.ActionResult, error) {
	config := models.ConfigAs[models.UpdateStatusConfig](action)

	if config.Status == "" || tc == nil || tc.Contact == nil {
		return models.Failed(a.Type(), "Missing status or contact"), nil
	}

	err := a.entities.UpdateContactStatus(ctx, tc.Contact.ID, config.Status)
	if persistence.IsEntityNotFound(err) {
		return models.Failed(a.Type(), "Missing status or contact"), nil
	}

	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to update contact status: %w", err)
	}

	tc.Contact.Status = config.Status

	return models.Succeeded(a.Type(), "Contact status updated to "+config.Status), nil
}

func (a *UpdateContactAction) Schema() map[string]any {
	return statusSchema("New contact status.", []string{"lead", "client", "inactive"})
}

// UpdateBookingAction sets the status field of the context booking.
type UpdateBookingAction struct {
	entities persistence.EntityRepository
}

func NewUpdateBookingAction(entities persistence.EntityRepository) *UpdateBookingAction {
	return &UpdateBookingAction{entities: entities}
}

func (a *UpdateBookingAction) Type() models.ActionType {
	return models.ActionUpdateBookingStatus
}

func (a *UpdateBookingAction) Execute(ctx context.Context, action models.Action, tc *models.TriggerContext) (models.ActionResult, error) {
	config := models.ConfigAs[models.UpdateBookingStatusConfig](action)

	if config.Status == "" || tc == nil || tc.Booking == nil {
		return models.Failed(a.Type(), "Missing status or booking"), nil
	}

	err := a.entities.UpdateBookingStatus(ctx, tc.Booking.ID, config.Status)
	if persistence.IsEntityNotFound(err) {
		return models.Failed(a.Type(), "Missing status or booking"), nil
	}

	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to update booking status: %w", err)
	}

	tc.Booking.Status = config.Status

	return models.Succeeded(a.Type(), "Booking status updated to "+config.Status), nil
}

func (a *UpdateBookingAction) Schema() map[string]any {
	return statusSchema("New booking status.",
		[]string{"pending", "scheduled", "confirmed", "completed", "cancelled", "no_show"})
}

func statusSchema(description string, examples []string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{
				"type":        "string",
				"description": description,
				"minLength":   1,
				"examples":    examples,
			},
		},
		"required": []string{"status"},
	}
}
