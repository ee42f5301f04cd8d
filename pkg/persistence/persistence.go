// Package persistence provides the storage contracts consumed by the workflow engine.
package persistence

import (
	"context"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
)

// Persistence groups every repository behind one store.
type Persistence interface {
	TagRepository() TagRepository
	TagAssociationRepository() TagAssociationRepository
	WorkflowRepository() WorkflowRepository
	WorkflowRunRepository() WorkflowRunRepository
	EntityRepository() EntityRepository
	EmailTemplateRepository() EmailTemplateRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// TagQuery selects a tag within a tenant. Name matching is case-insensitive.
// Zero-valued Type and nil IsSystem are not filtered on.
type TagQuery struct {
	TenantID string
	Name     string
	Type     models.TagType
	IsSystem *bool
}

// TagRepository stores tenant tags.
type TagRepository interface {
	// SaveTag upserts a tag on (tenant_id, name).
	SaveTag(ctx context.Context, tag *models.Tag) error
	TagByID(ctx context.Context, id string) (*models.Tag, error)
	FindTag(ctx context.Context, query TagQuery) (*models.Tag, error)
	ListTags(ctx context.Context, tenantID string) ([]*models.Tag, error)
	DeleteTag(ctx context.Context, id string) error
}

// TagAssociationRepository stores entity-tag links, one table per entity kind.
type TagAssociationRepository interface {
	Exists(ctx context.Context, kind models.EntityKind, entityID, tagID string) (bool, error)
	// Add returns ErrAssociationExists when the link is already present.
	Add(ctx context.Context, kind models.EntityKind, entityID, tagID string) error
	Remove(ctx context.Context, kind models.EntityKind, entityID, tagID string) error
	// RemoveByTagNames deletes the entity's links to tenant tags whose name is in names,
	// except keepTagID, and returns how many were removed.
	RemoveByTagNames(ctx context.Context, kind models.EntityKind, entityID, tenantID string, names []string, keepTagID string) (int, error)
	TagsFor(ctx context.Context, kind models.EntityKind, entityID string) ([]*models.Tag, error)
}

// WorkflowRepository stores workflows.
type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Delete(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Workflow, error)
	// FindActive returns active workflows of the tenant for the trigger. When tagID is
	// non-nil only workflows scoped to that tag or unscoped ones are returned.
	FindActive(ctx context.Context, tenantID, trigger string, tagID *string) ([]*models.Workflow, error)
	BySystemKey(ctx context.Context, tenantID, systemKey string) (*models.Workflow, error)
}

// WorkflowRunRepository is the run ledger.
type WorkflowRunRepository interface {
	Create(ctx context.Context, run *models.WorkflowRun) error
	// Transition moves a run from one status to another only if it is currently in from.
	// It reports whether this caller performed the transition.
	Transition(ctx context.Context, id string, from, to models.RunStatus) (bool, error)
	// Finish records results and the terminal status of a running run.
	Finish(ctx context.Context, run *models.WorkflowRun) error
	GetByID(ctx context.Context, id string) (*models.WorkflowRun, error)
	// DuePending returns pending runs whose scheduled time is at or before now, or unset.
	DuePending(ctx context.Context, now time.Time) ([]*models.WorkflowRun, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error)
}

// EntityRepository reads the domain entities and applies the few mutations actions perform.
type EntityRepository interface {
	Tenant(ctx context.Context, id string) (*models.Tenant, error)
	Contact(ctx context.Context, id string) (*models.Contact, error)
	Booking(ctx context.Context, id string) (*models.Booking, error)
	Invoice(ctx context.Context, id string) (*models.Invoice, error)
	Payment(ctx context.Context, id string) (*models.Payment, error)
	InvoiceByBooking(ctx context.Context, bookingID string) (*models.Invoice, error)

	SaveTenant(ctx context.Context, tenant *models.Tenant) error
	SaveContact(ctx context.Context, contact *models.Contact) error
	SaveBooking(ctx context.Context, booking *models.Booking) error
	SavePayment(ctx context.Context, payment *models.Payment) error
	// CreateInvoice inserts an invoice and returns ErrInvoiceExists when another
	// invoice is already linked to the same booking.
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	SaveInvoice(ctx context.Context, invoice *models.Invoice) error

	UpdateContactStatus(ctx context.Context, id, status string) error
	UpdateBookingStatus(ctx context.Context, id, status string) error
	UpdateInvoiceStatus(ctx context.Context, id, status string) error
	UpdatePaymentStatus(ctx context.Context, id, status string) error
}

// EmailTemplateRepository stores email templates.
type EmailTemplateRepository interface {
	SaveTemplate(ctx context.Context, template *models.EmailTemplate) error
	TemplateByID(ctx context.Context, id string) (*models.EmailTemplate, error)
	TemplateBySystemKey(ctx context.Context, tenantID, systemKey string) (*models.EmailTemplate, error)
}
