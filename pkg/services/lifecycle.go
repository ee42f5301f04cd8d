package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/dmayes77/clientflow-sub001/pkg/protocol"
	"github.com/dmayes77/clientflow-sub001/pkg/tagstatus"
)

// TransitionResult reports the effect of a status change.
type TransitionResult struct {
	Kind      models.EntityKind `json:"kind"`
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Trigger   string            `json:"trigger"`
	Tag       tagstatus.Outcome `json:"tag"`
	Converted bool              `json:"converted,omitempty"`
}

// Lifecycle moves entities between statuses, keeps their status tag in sync and
// raises the matching lifecycle trigger.
type Lifecycle struct {
	entities persistence.EntityRepository
	tags     *tagstatus.Manager
	emitter  protocol.TriggerEmitter
	logger   *slog.Logger
}

func NewLifecycle(p persistence.Persistence, tags *tagstatus.Manager, emitter protocol.TriggerEmitter, logger *slog.Logger) *Lifecycle {
	if emitter == nil {
		emitter = protocol.NopEmitter{}
	}

	return &Lifecycle{
		entities: p.EntityRepository(),
		tags:     tags,
		emitter:  emitter,
		logger:   logger.With("module", "lifecycle"),
	}
}

// Transition dispatches on kind.
func (l *Lifecycle) Transition(ctx context.Context, kind models.EntityKind, tenantID, id, status string) (*TransitionResult, error) {
	switch kind {
	case models.EntityInvoice:
		return l.TransitionInvoice(ctx, tenantID, id, status)
	case models.EntityBooking:
		return l.TransitionBooking(ctx, tenantID, id, status)
	case models.EntityPayment:
		return l.TransitionPayment(ctx, tenantID, id, status)
	case models.EntityContact:
		return l.TransitionContact(ctx, tenantID, id, status)
	default:
		return nil, NewValidationError("Transition", "UNKNOWN_KIND", fmt.Sprintf("unknown entity kind '%s'", kind), ErrInvalidRequest)
	}
}

func (l *Lifecycle) TransitionInvoice(ctx context.Context, tenantID, id, status string) (*TransitionResult, error) {
	invoice, tc, err := prepare(ctx, l, models.EntityInvoice, tenantID, id, status, l.entities.Invoice,
		func(i *models.Invoice) (string, string) { return i.TenantID, i.ContactID })
	if err != nil {
		return nil, err
	}

	tc.Invoice = invoice

	err = l.entities.UpdateInvoiceStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	invoice.Status = status

	return l.finish(ctx, models.EntityInvoice, id, status, models.LifecycleTrigger(models.EntityInvoice, status), tc)
}

func (l *Lifecycle) TransitionBooking(ctx context.Context, tenantID, id, status string) (*TransitionResult, error) {
	booking, tc, err := prepare(ctx, l, models.EntityBooking, tenantID, id, status, l.entities.Booking,
		func(b *models.Booking) (string, string) { return b.TenantID, b.ContactID })
	if err != nil {
		return nil, err
	}

	tc.Booking = booking

	err = l.entities.UpdateBookingStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	booking.Status = status

	return l.finish(ctx, models.EntityBooking, id, status, models.LifecycleTrigger(models.EntityBooking, status), tc)
}

func (l *Lifecycle) TransitionPayment(ctx context.Context, tenantID, id, status string) (*TransitionResult, error) {
	payment, tc, err := prepare(ctx, l, models.EntityPayment, tenantID, id, status, l.entities.Payment,
		func(p *models.Payment) (string, string) { return p.TenantID, p.ContactID })
	if err != nil {
		return nil, err
	}

	tc.Payment = payment

	err = l.entities.UpdatePaymentStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	payment.Status = status

	return l.finish(ctx, models.EntityPayment, id, status, models.LifecycleTrigger(models.EntityPayment, status), tc)
}

func (l *Lifecycle) TransitionContact(ctx context.Context, tenantID, id, status string) (*TransitionResult, error) {
	contact, tc, err := prepare(ctx, l, models.EntityContact, tenantID, id, status, l.entities.Contact,
		func(c *models.Contact) (string, string) { return c.TenantID, "" })
	if err != nil {
		return nil, err
	}

	tc.Contact = contact

	err = l.entities.UpdateContactStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	contact.Status = status

	trigger := models.LifecycleTrigger(models.EntityContact, status)
	if status == "lead" {
		trigger = models.TriggerLeadCreated
	}

	return l.finish(ctx, models.EntityContact, id, status, trigger, tc)
}

// RecordPayment marks a payment succeeded, raises payment_received and converts
// the paying contact from lead to client.
func (l *Lifecycle) RecordPayment(ctx context.Context, tenantID, paymentID string) (*TransitionResult, error) {
	payment, tc, err := prepare(ctx, l, models.EntityPayment, tenantID, paymentID, "succeeded", l.entities.Payment,
		func(p *models.Payment) (string, string) { return p.TenantID, p.ContactID })
	if err != nil {
		return nil, err
	}

	tc.Payment = payment

	err = l.entities.UpdatePaymentStatus(ctx, paymentID, "succeeded")
	if err != nil {
		return nil, err
	}

	payment.Status = "succeeded"

	result, err := l.finish(ctx, models.EntityPayment, paymentID, "succeeded", models.TriggerPaymentReceived, tc)
	if err != nil {
		return nil, err
	}

	if payment.ContactID != "" {
		result.Converted, err = l.tags.ConvertLeadToClient(ctx, payment.ContactID, tenantID, l.options(tc))
		if err != nil {
			return result, fmt.Errorf("failed to convert lead: %w", err)
		}
	}

	return result, nil
}

// ConvertContact swaps Lead for Client on a contact of the tenant.
func (l *Lifecycle) ConvertContact(ctx context.Context, tenantID, contactID string) (bool, error) {
	contact, err := l.entities.Contact(ctx, contactID)
	if err != nil {
		return false, err
	}

	if contact.TenantID != tenantID {
		return false, persistence.NewEntityError("ConvertContact", models.EntityContact, contactID, persistence.ErrEntityNotFound)
	}

	tenant, err := l.entities.Tenant(ctx, tenantID)
	if err != nil {
		return false, err
	}

	return l.tags.ConvertLeadToClient(ctx, contactID, tenantID, tagstatus.Options{Tenant: tenant, Contact: contact})
}

// prepare validates the status, loads the entity, checks its tenant and starts a
// trigger context with the tenant and the related contact.
func prepare[T any](
	ctx context.Context,
	l *Lifecycle,
	kind models.EntityKind,
	tenantID, id, status string,
	get func(context.Context, string) (*T, error),
	owner func(*T) (tenant, contact string),
) (*T, *models.TriggerContext, error) {
	if tenantID == "" {
		return nil, nil, ErrTenantRequired
	}

	if !slices.Contains(tagstatus.Statuses(kind), status) {
		return nil, nil, NewValidationError("Transition", "INVALID_STATUS",
			fmt.Sprintf("unknown %s status '%s'", kind, status), ErrInvalidStatus)
	}

	entity, err := get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	entityTenant, contactID := owner(entity)
	if entityTenant != tenantID {
		return nil, nil, persistence.NewEntityError("Transition", kind, id, persistence.ErrEntityNotFound)
	}

	tenant, err := l.entities.Tenant(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}

	tc := &models.TriggerContext{Tenant: tenant}

	if contactID != "" {
		contact, err := l.entities.Contact(ctx, contactID)
		if err != nil && !persistence.IsEntityNotFound(err) {
			return nil, nil, err
		}

		tc.Contact = contact
	}

	return entity, tc, nil
}

func (l *Lifecycle) finish(
	ctx context.Context,
	kind models.EntityKind,
	id, status, trigger string,
	tc *models.TriggerContext,
) (*TransitionResult, error) {
	outcome, err := l.tags.ApplyStatusTag(ctx, kind, id, tc.Tenant.ID, status, l.options(tc))
	if err != nil {
		return nil, fmt.Errorf("failed to apply status tag: %w", err)
	}

	err = l.emitter.EmitTrigger(ctx, trigger, tc)
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to emit lifecycle trigger", "trigger", trigger, "kind", kind, "id", id, "error", err)
	}

	l.logger.InfoContext(ctx, "Status changed", "kind", kind, "id", id, "status", status, "trigger", trigger)

	return &TransitionResult{Kind: kind, ID: id, Status: status, Trigger: trigger, Tag: outcome}, nil
}

func (l *Lifecycle) options(tc *models.TriggerContext) tagstatus.Options {
	return tagstatus.Options{
		Tenant:  tc.Tenant,
		Contact: tc.Contact,
		Booking: tc.Booking,
		Invoice: tc.Invoice,
		Payment: tc.Payment,
	}
}
