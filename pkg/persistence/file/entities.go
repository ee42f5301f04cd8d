package file

import (
	"context"
	"fmt"
	"slices"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
)

const entityTenant models.EntityKind = "tenant"

// EntityRepository handles tenants, contacts, bookings, invoices and payments.
type EntityRepository struct {
	store *store
}

func notFound(op string, kind models.EntityKind, id string) error {
	return persistence.NewEntityError(op, kind, id, persistence.ErrEntityNotFound)
}

func ensureID(id *string) error {
	if *id != "" {
		return nil
	}

	generated, err := newID()
	if err != nil {
		return err
	}

	*id = generated

	return nil
}

func (r *EntityRepository) Tenant(_ context.Context, id string) (*models.Tenant, error) {
	var found *models.Tenant

	err := r.store.read(func(data *state) error {
		tenant, ok := data.Tenants[id]
		if !ok {
			return notFound("Tenant", entityTenant, id)
		}

		found = &tenant

		return nil
	})

	return found, err
}

func (r *EntityRepository) Contact(_ context.Context, id string) (*models.Contact, error) {
	var found *models.Contact

	err := r.store.read(func(data *state) error {
		contact, ok := data.Contacts[id]
		if !ok {
			return notFound("Contact", models.EntityContact, id)
		}

		found = &contact

		return nil
	})

	return found, err
}

func (r *EntityRepository) Booking(_ context.Context, id string) (*models.Booking, error) {
	var found *models.Booking

	err := r.store.read(func(data *state) error {
		booking, ok := data.Bookings[id]
		if !ok {
			return notFound("Booking", models.EntityBooking, id)
		}

		found = &booking

		return nil
	})

	return found, err
}

func cloneInvoice(invoice models.Invoice) *models.Invoice {
	invoice.LineItems = slices.Clone(invoice.LineItems)

	return &invoice
}

func (r *EntityRepository) Invoice(_ context.Context, id string) (*models.Invoice, error) {
	var found *models.Invoice

	err := r.store.read(func(data *state) error {
		invoice, ok := data.Invoices[id]
		if !ok {
			return notFound("Invoice", models.EntityInvoice, id)
		}

		found = cloneInvoice(invoice)

		return nil
	})

	return found, err
}

func (r *EntityRepository) InvoiceByBooking(_ context.Context, bookingID string) (*models.Invoice, error) {
	var found *models.Invoice

	err := r.store.read(func(data *state) error {
		for _, invoice := range data.Invoices {
			if bookingID != "" && invoice.BookingID == bookingID {
				found = cloneInvoice(invoice)

				return nil
			}
		}

		return notFound("InvoiceByBooking", models.EntityBooking, bookingID)
	})

	return found, err
}

func (r *EntityRepository) Payment(_ context.Context, id string) (*models.Payment, error) {
	var found *models.Payment

	err := r.store.read(func(data *state) error {
		payment, ok := data.Payments[id]
		if !ok {
			return notFound("Payment", models.EntityPayment, id)
		}

		found = &payment

		return nil
	})

	return found, err
}

func (r *EntityRepository) SaveTenant(_ context.Context, tenant *models.Tenant) error {
	return r.store.write(func(data *state) error {
		err := ensureID(&tenant.ID)
		if err != nil {
			return err
		}

		data.Tenants[tenant.ID] = *tenant

		return nil
	})
}

func (r *EntityRepository) SaveContact(_ context.Context, contact *models.Contact) error {
	return r.store.write(func(data *state) error {
		err := ensureID(&contact.ID)
		if err != nil {
			return err
		}

		data.Contacts[contact.ID] = *contact

		return nil
	})
}

func (r *EntityRepository) SaveBooking(_ context.Context, booking *models.Booking) error {
	return r.store.write(func(data *state) error {
		err := ensureID(&booking.ID)
		if err != nil {
			return err
		}

		data.Bookings[booking.ID] = *booking

		return nil
	})
}

func (r *EntityRepository) SavePayment(_ context.Context, payment *models.Payment) error {
	return r.store.write(func(data *state) error {
		err := ensureID(&payment.ID)
		if err != nil {
			return err
		}

		if payment.CreatedAt.IsZero() {
			payment.CreatedAt = now()
		}

		data.Payments[payment.ID] = *payment

		return nil
	})
}

// CreateInvoice inserts an invoice. A second invoice for the same booking yields ErrInvoiceExists.
func (r *EntityRepository) CreateInvoice(_ context.Context, invoice *models.Invoice) error {
	return r.store.write(func(data *state) error {
		return putInvoice(data, invoice, true)
	})
}

func (r *EntityRepository) SaveInvoice(_ context.Context, invoice *models.Invoice) error {
	return r.store.write(func(data *state) error {
		return putInvoice(data, invoice, false)
	})
}

func putInvoice(data *state, invoice *models.Invoice, create bool) error {
	err := ensureID(&invoice.ID)
	if err != nil {
		return err
	}

	if _, ok := data.Invoices[invoice.ID]; ok && create {
		return fmt.Errorf("invoice %s already exists", invoice.ID)
	}

	if invoice.BookingID != "" {
		for id, existing := range data.Invoices {
			if id != invoice.ID && existing.BookingID == invoice.BookingID {
				return fmt.Errorf("booking %s: %w", invoice.BookingID, persistence.ErrInvoiceExists)
			}
		}
	}

	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = now()
	}

	data.Invoices[invoice.ID] = *cloneInvoice(*invoice)

	return nil
}

func (r *EntityRepository) UpdateContactStatus(_ context.Context, id, status string) error {
	return r.store.write(func(data *state) error {
		contact, ok := data.Contacts[id]
		if !ok {
			return notFound("UpdateContactStatus", models.EntityContact, id)
		}

		contact.Status = status
		data.Contacts[id] = contact

		return nil
	})
}

func (r *EntityRepository) UpdateBookingStatus(_ context.Context, id, status string) error {
	return r.store.write(func(data *state) error {
		booking, ok := data.Bookings[id]
		if !ok {
			return notFound("UpdateBookingStatus", models.EntityBooking, id)
		}

		booking.Status = status
		data.Bookings[id] = booking

		return nil
	})
}

func (r *EntityRepository) UpdateInvoiceStatus(_ context.Context, id, status string) error {
	return r.store.write(func(data *state) error {
		invoice, ok := data.Invoices[id]
		if !ok {
			return notFound("UpdateInvoiceStatus", models.EntityInvoice, id)
		}

		invoice.Status = status
		data.Invoices[id] = invoice

		return nil
	})
}

func (r *EntityRepository) UpdatePaymentStatus(_ context.Context, id, status string) error {
	return r.store.write(func(data *state) error {
		payment, ok := data.Payments[id]
		if !ok {
			return notFound("UpdatePaymentStatus", models.EntityPayment, id)
		}

		payment.Status = status
		data.Payments[id] = payment

		return nil
	})
}

// EmailTemplateRepository handles email templates.
type EmailTemplateRepository struct {
	store *store
}

// SaveTemplate upserts a template. System templates are unique per (tenant, system key).
func (r *EmailTemplateRepository) SaveTemplate(_ context.Context, template *models.EmailTemplate) error {
	return r.store.write(func(data *state) error {
		if template.SystemKey != "" {
			for id, existing := range data.Templates {
				if existing.TenantID == template.TenantID && existing.SystemKey == template.SystemKey {
					template.ID = id
					template.CreatedAt = existing.CreatedAt
				}
			}
		}

		err := ensureID(&template.ID)
		if err != nil {
			return err
		}

		if template.CreatedAt.IsZero() {
			template.CreatedAt = now()
		}

		data.Templates[template.ID] = *template

		return nil
	})
}

func (r *EmailTemplateRepository) TemplateByID(_ context.Context, id string) (*models.EmailTemplate, error) {
	var found *models.EmailTemplate

	err := r.store.read(func(data *state) error {
		template, ok := data.Templates[id]
		if !ok {
			return fmt.Errorf("template %s: %w", id, persistence.ErrTemplateNotFound)
		}

		found = &template

		return nil
	})

	return found, err
}

func (r *EmailTemplateRepository) TemplateBySystemKey(_ context.Context, tenantID, systemKey string) (*models.EmailTemplate, error) {
	var found *models.EmailTemplate

	err := r.store.read(func(data *state) error {
		for _, template := range data.Templates {
			if template.TenantID == tenantID && template.SystemKey == systemKey {
				found = &template

				return nil
			}
		}

		return fmt.Errorf("template %s: %w", systemKey, persistence.ErrTemplateNotFound)
	})

	return found, err
}
