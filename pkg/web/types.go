// Package web exposes the workflow engine, the lifecycle services and tenant
// provisioning over HTTP.
package web

import "github.com/dmayes77/clientflow-sub001/pkg/models"

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name         string          `json:"name"                     validate:"required,min=3"`
	Description  string          `json:"description"`
	TriggerType  string          `json:"trigger_type"             validate:"required"`
	TriggerTagID *string         `json:"trigger_tag_id,omitempty"`
	Active       *bool           `json:"active,omitempty"`
	DelayMinutes int             `json:"delay_minutes"            validate:"gte=0"`
	Actions      []models.Action `json:"actions"                  validate:"dive"`
}

// UpdateWorkflowRequest represents the request body for updating an existing workflow.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name         *string         `json:"name,omitempty"           validate:"omitempty,min=3"`
	Description  *string         `json:"description,omitempty"`
	TriggerType  *string         `json:"trigger_type,omitempty"   validate:"omitempty,min=1"`
	TriggerTagID *string         `json:"trigger_tag_id,omitempty"`
	Active       *bool           `json:"active,omitempty"`
	DelayMinutes *int            `json:"delay_minutes,omitempty"  validate:"omitempty,gte=0"`
	Actions      []models.Action `json:"actions,omitempty"        validate:"omitempty,dive"`
}

// StatusRequest moves an entity to a new status.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// TriggerRequest names the objects a manually raised trigger is about. The
// tenant comes from the path.
type TriggerRequest struct {
	ContactID string `json:"contact_id,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
	InvoiceID string `json:"invoice_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
	TagID     string `json:"tag_id,omitempty"`
}

// Refs scopes the request to a tenant.
func (r TriggerRequest) Refs(tenantID string) models.ContextRefs {
	return models.ContextRefs{
		TenantID:  tenantID,
		ContactID: r.ContactID,
		BookingID: r.BookingID,
		InvoiceID: r.InvoiceID,
		PaymentID: r.PaymentID,
		TagID:     r.TagID,
	}
}

// TriggerResponse acknowledges an accepted trigger.
type TriggerResponse struct {
	Trigger  string `json:"trigger"`
	TenantID string `json:"tenant_id"`
	Accepted bool   `json:"accepted"`
}

// ConvertResponse reports whether a lead was converted.
type ConvertResponse struct {
	ContactID string `json:"contact_id"`
	Converted bool   `json:"converted"`
}

// ActionTypeResponse describes a registered action handler.
type ActionTypeResponse struct {
	Type   models.ActionType `json:"type"`
	Schema map[string]any    `json:"schema"`
}
