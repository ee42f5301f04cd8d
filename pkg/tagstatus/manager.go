// Package tagstatus keeps exactly one status tag per entity and raises the
// tag-added triggers when the status really changes.
package tagstatus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmayes77/clientflow-sub001/pkg/locker"
	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/dmayes77/clientflow-sub001/pkg/protocol"
)

// Options carries objects the caller already holds. Anything missing is loaded.
type Options struct {
	Tenant  *models.Tenant
	Contact *models.Contact
	Booking *models.Booking
	Invoice *models.Invoice
	Payment *models.Payment
}

// Outcome describes what ApplyStatusTag did.
type Outcome struct {
	// Applied is false when the status is unmapped or the tag is not provisioned.
	Applied bool `json:"applied"`
	// New is true when the entity did not carry the tag before.
	New     bool   `json:"new"`
	TagID   string `json:"tagId,omitempty"`
	TagName string `json:"tagName,omitempty"`
	Removed int    `json:"removed"`
}

type Manager struct {
	tags         persistence.TagRepository
	associations persistence.TagAssociationRepository
	entities     persistence.EntityRepository
	emitter      protocol.TriggerEmitter
	locker       locker.Locker
	logger       *slog.Logger
}

type Option func(*Manager)

// WithLocker serializes status changes per entity.
func WithLocker(l locker.Locker) Option {
	return func(m *Manager) { m.locker = l }
}

func NewManager(p persistence.Persistence, emitter protocol.TriggerEmitter, logger *slog.Logger, opts ...Option) *Manager {
	if emitter == nil {
		emitter = protocol.NopEmitter{}
	}

	m := &Manager{
		tags:         p.TagRepository(),
		associations: p.TagAssociationRepository(),
		entities:     p.EntityRepository(),
		emitter:      emitter,
		logger:       logger.With("module", "tag_status_manager"),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ApplyStatusTag replaces the status tag of an entity with the tag mapped from status.
// When the tag is new on the entity, {kind}_tag_added is emitted.
func (m *Manager) ApplyStatusTag(
	ctx context.Context,
	kind models.EntityKind,
	entityID, tenantID, status string,
	opts Options,
) (Outcome, error) {
	logger := m.logger.With("kind", kind, "entity_id", entityID, "tenant_id", tenantID, "status", status)

	if !kind.Valid() {
		return Outcome{}, fmt.Errorf("%w: %s", persistence.ErrUnknownEntityKind, kind)
	}

	name, ok := TagName(kind, status)
	if !ok {
		logger.DebugContext(ctx, "No status tag for status")

		return Outcome{}, nil
	}

	tag, err := m.systemTag(ctx, tenantID, name, kind.TagType())
	if errors.Is(err, persistence.ErrTagNotFound) {
		logger.WarnContext(ctx, "Status tag not provisioned", "tag", name)

		return Outcome{}, nil
	}

	if err != nil {
		return Outcome{}, err
	}

	unlock, err := m.lock(ctx, kind, entityID)
	if err != nil {
		return Outcome{}, err
	}
	defer unlock()

	exists, err := m.associations.Exists(ctx, kind, entityID, tag.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to check status tag: %w", err)
	}

	removed, err := m.associations.RemoveByTagNames(ctx, kind, entityID, tenantID, CategoryNames(kind), tag.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to clear status tags: %w", err)
	}

	err = m.associations.Add(ctx, kind, entityID, tag.ID)
	if err != nil && !persistence.IsAssociationExists(err) {
		return Outcome{}, fmt.Errorf("failed to add status tag: %w", err)
	}

	outcome := Outcome{Applied: true, New: !exists, TagID: tag.ID, TagName: tag.Name, Removed: removed}

	logger.InfoContext(ctx, "Status tag applied", "tag", tag.Name, "new", outcome.New, "removed", removed)

	if outcome.New {
		m.emit(ctx, models.TagAddedTrigger(kind), m.emissionContext(ctx, kind, entityID, tenantID, tag, opts))
	}

	return outcome, nil
}

// ConvertLeadToClient swaps the Lead tag of a contact for the Client tag. It returns
// false without changes unless the contact has Lead and not Client.
func (m *Manager) ConvertLeadToClient(ctx context.Context, contactID, tenantID string, opts Options) (bool, error) {
	logger := m.logger.With("contact_id", contactID, "tenant_id", tenantID)

	lead, err := m.systemTag(ctx, tenantID, TagLead, models.TagTypeContact)
	if err != nil {
		return false, m.ignoreMissingTag(ctx, logger, TagLead, err)
	}

	client, err := m.systemTag(ctx, tenantID, TagClient, models.TagTypeContact)
	if err != nil {
		return false, m.ignoreMissingTag(ctx, logger, TagClient, err)
	}

	unlock, err := m.lock(ctx, models.EntityContact, contactID)
	if err != nil {
		return false, err
	}
	defer unlock()

	hasLead, err := m.associations.Exists(ctx, models.EntityContact, contactID, lead.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check lead tag: %w", err)
	}

	hasClient, err := m.associations.Exists(ctx, models.EntityContact, contactID, client.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check client tag: %w", err)
	}

	if !hasLead || hasClient {
		return false, nil
	}

	err = m.associations.Remove(ctx, models.EntityContact, contactID, lead.ID)
	if err != nil {
		return false, fmt.Errorf("failed to remove lead tag: %w", err)
	}

	err = m.associations.Add(ctx, models.EntityContact, contactID, client.ID)
	if err != nil && !persistence.IsAssociationExists(err) {
		return false, fmt.Errorf("failed to add client tag: %w", err)
	}

	logger.InfoContext(ctx, "Lead converted to client")

	m.emit(ctx, models.TriggerClientConverted,
		m.emissionContext(ctx, models.EntityContact, contactID, tenantID, client, opts))

	return true, nil
}

func (m *Manager) ignoreMissingTag(ctx context.Context, logger *slog.Logger, name string, err error) error {
	if errors.Is(err, persistence.ErrTagNotFound) {
		logger.WarnContext(ctx, "Contact tag not provisioned", "tag", name)

		return nil
	}

	return err
}

func (m *Manager) systemTag(ctx context.Context, tenantID, name string, tagType models.TagType) (*models.Tag, error) {
	system := true
	query := persistence.TagQuery{TenantID: tenantID, Name: name, Type: tagType, IsSystem: &system}

	tag, err := m.tags.FindTag(ctx, query)
	if errors.Is(err, persistence.ErrTagNotFound) {
		// "Cancelled" is shared by invoices and bookings and exists under one type only.
		query.Type = ""
		tag, err = m.tags.FindTag(ctx, query)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to resolve tag %q: %w", name, err)
	}

	return tag, nil
}

func (m *Manager) lock(ctx context.Context, kind models.EntityKind, entityID string) (func(), error) {
	if m.locker == nil {
		return func() {}, nil
	}

	unlock, err := m.locker.Lock(ctx, locker.EntityKey(kind, entityID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s %s: %w", kind, entityID, err)
	}

	return func() {
		err := unlock(context.WithoutCancel(ctx))
		if err != nil {
			m.logger.ErrorContext(ctx, "Failed to release entity lock", "kind", kind, "entity_id", entityID, "error", err)
		}
	}, nil
}

func (m *Manager) emit(ctx context.Context, trigger string, tc *models.TriggerContext) {
	if tc == nil {
		return
	}

	err := m.emitter.EmitTrigger(ctx, trigger, tc)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to emit trigger", "trigger", trigger, "error", err)
	}
}

// emissionContext assembles tenant, entity, related contact and tag. It returns nil
// when the tenant cannot be loaded.
func (m *Manager) emissionContext(
	ctx context.Context,
	kind models.EntityKind,
	entityID, tenantID string,
	tag *models.Tag,
	opts Options,
) *models.TriggerContext {
	tc := &models.TriggerContext{
		Tenant:  opts.Tenant,
		Contact: opts.Contact,
		Booking: opts.Booking,
		Invoice: opts.Invoice,
		Payment: opts.Payment,
		Tag:     tag,
	}

	if tc.Tenant == nil {
		tenant, err := m.entities.Tenant(ctx, tenantID)
		if err != nil {
			m.logger.ErrorContext(ctx, "Failed to load tenant for emission", "tenant_id", tenantID, "error", err)

			return nil
		}

		tc.Tenant = tenant
	}

	var contactID string

	switch kind {
	case models.EntityInvoice:
		if tc.Invoice == nil || tc.Invoice.ID != entityID {
			tc.Invoice = load(ctx, m, entityID, m.entities.Invoice)
		}

		if tc.Invoice != nil {
			contactID = tc.Invoice.ContactID
		}
	case models.EntityBooking:
		if tc.Booking == nil || tc.Booking.ID != entityID {
			tc.Booking = load(ctx, m, entityID, m.entities.Booking)
		}

		if tc.Booking != nil {
			contactID = tc.Booking.ContactID
		}
	case models.EntityPayment:
		if tc.Payment == nil || tc.Payment.ID != entityID {
			tc.Payment = load(ctx, m, entityID, m.entities.Payment)
		}

		if tc.Payment != nil {
			contactID = tc.Payment.ContactID
		}
	case models.EntityContact:
		contactID = entityID
	}

	if contactID != "" && (tc.Contact == nil || tc.Contact.ID != contactID) {
		tc.Contact = load(ctx, m, contactID, m.entities.Contact)
	}

	return tc
}

func load[T any](ctx context.Context, m *Manager, id string, get func(context.Context, string) (*T, error)) *T {
	v, err := get(ctx, id)
	if err != nil {
		if !persistence.IsEntityNotFound(err) {
			m.logger.ErrorContext(ctx, "Failed to load entity for emission", "id", id, "error", err)
		}

		return nil
	}

	return v
}
