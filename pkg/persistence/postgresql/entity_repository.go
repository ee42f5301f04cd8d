package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/google/uuid"
)

const entityTenant models.EntityKind = "tenant"

// EntityRepository reads and updates tenants, contacts, bookings, invoices and payments.
type EntityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEntityRepository creates a new entity repository.
func NewEntityRepository(db *sql.DB, logger *slog.Logger) *EntityRepository {
	return &EntityRepository{db: db, logger: logger}
}

func notFoundOr(op string, kind models.EntityKind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.NewEntityError(op, kind, id, persistence.ErrEntityNotFound)
	}

	return persistence.NewEntityError(op, kind, id, err)
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate ID: %w", err)
	}

	return id.String(), nil
}

// Tenant returns a tenant by its ID.
func (r *EntityRepository) Tenant(ctx context.Context, id string) (*models.Tenant, error) {
	var tenant models.Tenant

	err := r.db.QueryRowContext(ctx, `
		SELECT
			id
		  , name
		  , COALESCE(business_name, '')
		  , COALESCE(email, '')
		  , COALESCE(business_phone, '')
		  , COALESCE(business_address, '')
		  , COALESCE(business_city, '')
		  , COALESCE(business_state, '')
		  , COALESCE(business_zip, '')
		  , COALESCE(business_website, '')
		  , COALESCE(timezone, '')
		FROM tenants
		WHERE id = $1
	`, id).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.BusinessName,
		&tenant.Email,
		&tenant.BusinessPhone,
		&tenant.BusinessAddress,
		&tenant.BusinessCity,
		&tenant.BusinessState,
		&tenant.BusinessZip,
		&tenant.BusinessWebsite,
		&tenant.Timezone,
	)
	if err != nil {
		return nil, notFoundOr("Tenant", entityTenant, id, err)
	}

	return &tenant, nil
}

// SaveTenant upserts a tenant.
func (r *EntityRepository) SaveTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		tenant.ID = id
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, business_name, email, business_phone, business_address,
			business_city, business_state, business_zip, business_website, timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			business_name = EXCLUDED.business_name,
			email = EXCLUDED.email,
			business_phone = EXCLUDED.business_phone,
			business_address = EXCLUDED.business_address,
			business_city = EXCLUDED.business_city,
			business_state = EXCLUDED.business_state,
			business_zip = EXCLUDED.business_zip,
			business_website = EXCLUDED.business_website,
			timezone = EXCLUDED.timezone
	`,
		tenant.ID,
		tenant.Name,
		tenant.BusinessName,
		tenant.Email,
		tenant.BusinessPhone,
		tenant.BusinessAddress,
		tenant.BusinessCity,
		tenant.BusinessState,
		tenant.BusinessZip,
		tenant.BusinessWebsite,
		tenant.Timezone,
	)
	if err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}

	return nil
}

// Contact returns a contact by its ID.
func (r *EntityRepository) Contact(ctx context.Context, id string) (*models.Contact, error) {
	var contact models.Contact

	err := r.db.QueryRowContext(ctx, `
		SELECT
			id
		  , tenant_id
		  , COALESCE(name, '')
		  , COALESCE(email, '')
		  , COALESCE(phone, '')
		  , COALESCE(status, '')
		FROM contacts
		WHERE id = $1
	`, id).Scan(
		&contact.ID,
		&contact.TenantID,
		&contact.Name,
		&contact.Email,
		&contact.Phone,
		&contact.Status,
	)
	if err != nil {
		return nil, notFoundOr("Contact", models.EntityContact, id, err)
	}

	return &contact, nil
}

// SaveContact upserts a contact.
func (r *EntityRepository) SaveContact(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		contact.ID = id
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (id, tenant_id, name, email, phone, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			status = EXCLUDED.status
	`,
		contact.ID,
		contact.TenantID,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}

	return nil
}

// Booking returns a booking by its ID.
func (r *EntityRepository) Booking(ctx context.Context, id string) (*models.Booking, error) {
	var (
		booking     models.Booking
		scheduledAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT
			id
		  , tenant_id
		  , COALESCE(contact_id, '')
		  , COALESCE(contact_email, '')
		  , COALESCE(service_name, '')
		  , COALESCE(package_name, '')
		  , scheduled_at
		  , duration_minutes
		  , total_price
		  , status
		  , COALESCE(notes, '')
		FROM bookings
		WHERE id = $1
	`, id).Scan(
		&booking.ID,
		&booking.TenantID,
		&booking.ContactID,
		&booking.ContactEmail,
		&booking.ServiceName,
		&booking.PackageName,
		&scheduledAt,
		&booking.DurationMinutes,
		&booking.TotalPrice,
		&booking.Status,
		&booking.Notes,
	)
	if err != nil {
		return nil, notFoundOr("Booking", models.EntityBooking, id, err)
	}

	if scheduledAt.Valid {
		booking.ScheduledAt = scheduledAt.Time
	}

	return &booking, nil
}

// SaveBooking upserts a booking.
func (r *EntityRepository) SaveBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		booking.ID = id
	}

	var scheduledAt sql.NullTime
	if !booking.ScheduledAt.IsZero() {
		scheduledAt = sql.NullTime{Time: booking.ScheduledAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bookings (id, tenant_id, contact_id, contact_email, service_name, package_name,
			scheduled_at, duration_minutes, total_price, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			contact_id = EXCLUDED.contact_id,
			contact_email = EXCLUDED.contact_email,
			service_name = EXCLUDED.service_name,
			package_name = EXCLUDED.package_name,
			scheduled_at = EXCLUDED.scheduled_at,
			duration_minutes = EXCLUDED.duration_minutes,
			total_price = EXCLUDED.total_price,
			status = EXCLUDED.status,
			notes = EXCLUDED.notes
	`,
		booking.ID,
		booking.TenantID,
		nullString(booking.ContactID),
		booking.ContactEmail,
		booking.ServiceName,
		booking.PackageName,
		scheduledAt,
		booking.DurationMinutes,
		booking.TotalPrice,
		booking.Status,
		booking.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}

	return nil
}

const invoiceColumns = `
			id
		  , tenant_id
		  , COALESCE(contact_id, '')
		  , COALESCE(booking_id, '')
		  , COALESCE(invoice_number, '')
		  , COALESCE(contact_name, '')
		  , COALESCE(contact_email, '')
		  , status
		  , issue_date
		  , due_date
		  , line_items
		  , subtotal
		  , total
		  , balance_due
		  , deposit_paid_at
		  , paid_at
		  , created_at`

// Invoice returns an invoice by its ID.
func (r *EntityRepository) Invoice(ctx context.Context, id string) (*models.Invoice, error) {
	invoice, err := scanInvoice(r.db.QueryRowContext(ctx, "SELECT"+invoiceColumns+" FROM invoices WHERE id = $1", id))
	if err != nil {
		return nil, notFoundOr("Invoice", models.EntityInvoice, id, err)
	}

	return invoice, nil
}

// InvoiceByBooking returns the invoice linked to a booking.
func (r *EntityRepository) InvoiceByBooking(ctx context.Context, bookingID string) (*models.Invoice, error) {
	invoice, err := scanInvoice(r.db.QueryRowContext(ctx,
		"SELECT"+invoiceColumns+" FROM invoices WHERE booking_id = $1", bookingID))
	if err != nil {
		return nil, notFoundOr("InvoiceByBooking", models.EntityBooking, bookingID, err)
	}

	return invoice, nil
}

// CreateInvoice inserts a new invoice. A second invoice for the same booking yields ErrInvoiceExists.
func (r *EntityRepository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		invoice.ID = id
	}

	err := r.writeInvoice(ctx, invoice, "")
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("booking %s: %w", invoice.BookingID, persistence.ErrInvoiceExists)
		}

		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return nil
}

// SaveInvoice upserts an invoice.
func (r *EntityRepository) SaveInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		invoice.ID = id
	}

	err := r.writeInvoice(ctx, invoice, `
		ON CONFLICT (id) DO UPDATE SET
			contact_id = EXCLUDED.contact_id,
			invoice_number = EXCLUDED.invoice_number,
			contact_name = EXCLUDED.contact_name,
			contact_email = EXCLUDED.contact_email,
			status = EXCLUDED.status,
			issue_date = EXCLUDED.issue_date,
			due_date = EXCLUDED.due_date,
			line_items = EXCLUDED.line_items,
			subtotal = EXCLUDED.subtotal,
			total = EXCLUDED.total,
			balance_due = EXCLUDED.balance_due,
			deposit_paid_at = EXCLUDED.deposit_paid_at,
			paid_at = EXCLUDED.paid_at`)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("booking %s: %w", invoice.BookingID, persistence.ErrInvoiceExists)
		}

		return fmt.Errorf("failed to save invoice: %w", err)
	}

	return nil
}

func (r *EntityRepository) writeInvoice(ctx context.Context, invoice *models.Invoice, onConflict string) error {
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}

	lineItems := invoice.LineItems
	if lineItems == nil {
		lineItems = []models.LineItem{}
	}

	lineItemsJSON, err := json.Marshal(lineItems)
	if err != nil {
		return fmt.Errorf("failed to marshal line items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO invoices (id, tenant_id, contact_id, booking_id, invoice_number, contact_name,
			contact_email, status, issue_date, due_date, line_items, subtotal, total, balance_due,
			deposit_paid_at, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`+onConflict,
		invoice.ID,
		invoice.TenantID,
		nullString(invoice.ContactID),
		nullString(invoice.BookingID),
		invoice.InvoiceNumber,
		invoice.ContactName,
		invoice.ContactEmail,
		invoice.Status,
		invoice.IssueDate,
		invoice.DueDate,
		lineItemsJSON,
		invoice.Subtotal,
		invoice.Total,
		invoice.BalanceDue,
		invoice.DepositPaidAt,
		invoice.PaidAt,
		invoice.CreatedAt,
	)

	return err
}

func scanInvoice(row scanner) (*models.Invoice, error) {
	var (
		invoice       models.Invoice
		lineItemsJSON []byte
		depositPaidAt sql.NullTime
		paidAt        sql.NullTime
	)

	err := row.Scan(
		&invoice.ID,
		&invoice.TenantID,
		&invoice.ContactID,
		&invoice.BookingID,
		&invoice.InvoiceNumber,
		&invoice.ContactName,
		&invoice.ContactEmail,
		&invoice.Status,
		&invoice.IssueDate,
		&invoice.DueDate,
		&lineItemsJSON,
		&invoice.Subtotal,
		&invoice.Total,
		&invoice.BalanceDue,
		&depositPaidAt,
		&paidAt,
		&invoice.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if depositPaidAt.Valid {
		invoice.DepositPaidAt = &depositPaidAt.Time
	}

	if paidAt.Valid {
		invoice.PaidAt = &paidAt.Time
	}

	err = json.Unmarshal(lineItemsJSON, &invoice.LineItems)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal line items: %w", err)
	}

	return &invoice, nil
}

// Payment returns a payment by its ID.
func (r *EntityRepository) Payment(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment

	err := r.db.QueryRowContext(ctx, `
		SELECT
			id
		  , tenant_id
		  , COALESCE(contact_id, '')
		  , COALESCE(invoice_id, '')
		  , amount
		  , status
		  , COALESCE(method, '')
		  , COALESCE(receipt_url, '')
		  , created_at
		FROM payments
		WHERE id = $1
	`, id).Scan(
		&payment.ID,
		&payment.TenantID,
		&payment.ContactID,
		&payment.InvoiceID,
		&payment.Amount,
		&payment.Status,
		&payment.Method,
		&payment.ReceiptURL,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, notFoundOr("Payment", models.EntityPayment, id, err)
	}

	return &payment, nil
}

// SavePayment upserts a payment.
func (r *EntityRepository) SavePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		payment.ID = id
	}

	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, tenant_id, contact_id, invoice_id, amount, status, method, receipt_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			contact_id = EXCLUDED.contact_id,
			invoice_id = EXCLUDED.invoice_id,
			amount = EXCLUDED.amount,
			status = EXCLUDED.status,
			method = EXCLUDED.method,
			receipt_url = EXCLUDED.receipt_url
	`,
		payment.ID,
		payment.TenantID,
		nullString(payment.ContactID),
		nullString(payment.InvoiceID),
		payment.Amount,
		payment.Status,
		payment.Method,
		payment.ReceiptURL,
		payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}

	return nil
}

// UpdateContactStatus sets the status field of a contact.
func (r *EntityRepository) UpdateContactStatus(ctx context.Context, id, status string) error {
	return r.updateStatus(ctx, "UpdateContactStatus", models.EntityContact, "contacts", id, status)
}

// UpdateBookingStatus sets the status field of a booking.
func (r *EntityRepository) UpdateBookingStatus(ctx context.Context, id, status string) error {
	return r.updateStatus(ctx, "UpdateBookingStatus", models.EntityBooking, "bookings", id, status)
}

// UpdateInvoiceStatus sets the status field of an invoice.
func (r *EntityRepository) UpdateInvoiceStatus(ctx context.Context, id, status string) error {
	return r.updateStatus(ctx, "UpdateInvoiceStatus", models.EntityInvoice, "invoices", id, status)
}

// UpdatePaymentStatus sets the status field of a payment.
func (r *EntityRepository) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	return r.updateStatus(ctx, "UpdatePaymentStatus", models.EntityPayment, "payments", id, status)
}

func (r *EntityRepository) updateStatus(ctx context.Context, op string, kind models.EntityKind, table, id, status string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE "+table+" SET status = $2 WHERE id = $1", id, status)
	if err != nil {
		return persistence.NewEntityError(op, kind, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewEntityError(op, kind, id, err)
	}

	if affected == 0 {
		return persistence.NewEntityError(op, kind, id, persistence.ErrEntityNotFound)
	}

	return nil
}
