// Package tag provides the add/remove tag actions for contacts, invoices, bookings and payments.
package tag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
)

// entityLabel is how each kind is named in result messages.
var entityLabel = map[models.EntityKind]string{
	models.EntityContact: "client",
	models.EntityInvoice: "invoice",
	models.EntityBooking: "booking",
	models.EntityPayment: "payment",
}

// Action adds or removes one tag on the entity of its kind found in the context.
type Action struct {
	actionType   models.ActionType
	kind         models.EntityKind
	add          bool
	tags         persistence.TagRepository
	associations persistence.TagAssociationRepository
	logger       *slog.Logger
}

// NewAction returns the handler for one of the tag action types.
func NewAction(
	actionType models.ActionType,
	tags persistence.TagRepository,
	associations persistence.TagAssociationRepository,
	logger *slog.Logger,
) (*Action, error) {
	kind, add, ok := actionType.TagTarget()
	if !ok {
		return nil, fmt.Errorf("%s is not a tag action", actionType)
	}

	return &Action{
		actionType:   actionType,
		kind:         kind,
		add:          add,
		tags:         tags,
		associations: associations,
		logger:       logger.With("module", "tag_action", "action_type", actionType),
	}, nil
}

// NewActions returns a handler for every tag action type.
func NewActions(
	tags persistence.TagRepository,
	associations persistence.TagAssociationRepository,
	logger *slog.Logger,
) []*Action {
	types := []models.ActionType{
		models.ActionAddTag, models.ActionRemoveTag,
		models.ActionAddTagToInvoice, models.ActionRemoveTagFromInvoice,
		models.ActionAddTagToBooking, models.ActionRemoveTagFromBooking,
		models.ActionAddTagToPayment, models.ActionRemoveTagFromPayment,
	}

	actions := make([]*Action, 0, len(types))
	for _, actionType := range types {
		action, _ := NewAction(actionType, tags, associations, logger)
		actions = append(actions, action)
	}

	return actions
}

func (a *Action) Type() models.ActionType {
	return a.actionType
}

func entityID(kind models.EntityKind, tc *models.TriggerContext) string {
	if tc == nil {
		return ""
	}

	switch kind {
	case models.EntityContact:
		if tc.Contact != nil {
			return tc.Contact.ID
		}
	case models.EntityInvoice:
		if tc.Invoice != nil {
			return tc.Invoice.ID
		}
	case models.EntityBooking:
		if tc.Booking != nil {
			return tc.Booking.ID
		}
	case models.EntityPayment:
		if tc.Payment != nil {
			return tc.Payment.ID
		}
	}

	return ""
}

func (a *Action) Execute(ctx context.Context, action models.Action, tc *models.TriggerContext) (models.ActionResult, error) {
	config := models.ConfigAs[models.TagConfig](action)
	label := entityLabel[a.kind]

	id := entityID(a.kind, tc)
	if id == "" {
		return models.Failed(a.actionType, "Missing tag or "+label), nil
	}

	tagID, err := a.resolveTag(ctx, config, tc)
	if err != nil {
		return models.ActionResult{}, err
	}

	if tagID == "" {
		return models.Failed(a.actionType, "Missing tag or "+label), nil
	}

	if !a.add {
		err = a.associations.Remove(ctx, a.kind, id, tagID)
		if err != nil {
			return models.ActionResult{}, fmt.Errorf("failed to remove tag: %w", err)
		}

		return a.result(models.Succeeded(a.actionType, "Tag removed from "+label), tagID, id), nil
	}

	exists, err := a.associations.Exists(ctx, a.kind, id, tagID)
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to check tag: %w", err)
	}

	if exists {
		return a.result(models.Succeeded(a.actionType, "Tag already exists on "+label), tagID, id), nil
	}

	err = a.associations.Add(ctx, a.kind, id, tagID)
	if persistence.IsAssociationExists(err) {
		a.logger.DebugContext(ctx, "Tag added concurrently", "entity_id", id, "tag_id", tagID)

		return a.result(models.Succeeded(a.actionType, "Tag already exists on "+label), tagID, id), nil
	}

	if persistence.IsTagNotFound(err) {
		return models.Failed(a.actionType, "Missing tag or "+label), nil
	}

	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to add tag: %w", err)
	}

	return a.result(models.Succeeded(a.actionType, "Tag added to "+label), tagID, id), nil
}

func (a *Action) result(result models.ActionResult, tagID, entityID string) models.ActionResult {
	result.Data = map[string]any{"tagId": tagID, "entityId": entityID}

	return result
}

// resolveTag returns the configured tag id, or looks the tag up by name within the tenant.
// It returns "" when no tag can be resolved.
func (a *Action) resolveTag(ctx context.Context, config models.TagConfig, tc *models.TriggerContext) (string, error) {
	if config.TagID != "" {
		return config.TagID, nil
	}

	if config.TagName == "" || tc == nil || tc.Tenant == nil {
		return "", nil
	}

	query := persistence.TagQuery{TenantID: tc.Tenant.ID, Name: config.TagName, Type: config.TagType}

	tag, err := a.tags.FindTag(ctx, query)
	if persistence.IsTagNotFound(err) && query.Type != "" {
		// names are unique per tenant, so a shared status name lives under one type only
		query.Type = ""
		tag, err = a.tags.FindTag(ctx, query)
	}

	if persistence.IsTagNotFound(err) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to find tag %q: %w", config.TagName, err)
	}

	return tag.ID, nil
}

func (a *Action) Schema() map[string]any {
	verb := "remove"
	if a.add {
		verb = "add"
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tagId": map[string]any{
				"type":        "string",
				"description": "ID of the tag to " + verb + ".",
			},
			"tagName": map[string]any{
				"type":        "string",
				"description": "Tag name looked up within the tenant when tagId is empty.",
			},
			"tagType": map[string]any{
				"type": "string",
				"enum": []string{"invoice", "booking", "payment", "contact", "general"},
			},
		},
		"anyOf": []any{
			map[string]any{"required": []string{"tagId"}},
			map[string]any{"required": []string{"tagName"}},
		},
	}
}
