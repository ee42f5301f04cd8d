package models

import "time"

// Tenant is a business account. Email is the owner's address.
type Tenant struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	BusinessName    string `json:"business_name"`
	Email           string `json:"email"`
	BusinessPhone   string `json:"business_phone"`
	BusinessAddress string `json:"business_address"`
	BusinessCity    string `json:"business_city"`
	BusinessState   string `json:"business_state"`
	BusinessZip     string `json:"business_zip"`
	BusinessWebsite string `json:"business_website"`
	Timezone        string `json:"timezone"`
}

// Location returns the tenant's time zone, falling back to UTC.
func (t *Tenant) Location() *time.Location {
	if t == nil || t.Timezone == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

// Contact is a lead or client of a tenant.
type Contact struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Status   string `json:"status"`
}

// Booking is a scheduled appointment. Prices are in cents.
type Booking struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	ContactID       string    `json:"contact_id,omitempty"`
	ContactEmail    string    `json:"contact_email,omitempty"`
	ServiceName     string    `json:"service_name,omitempty"`
	PackageName     string    `json:"package_name,omitempty"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalPrice      int64     `json:"total_price"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
}

// ItemName returns the service name, else the package name.
func (b *Booking) ItemName() string {
	if b.ServiceName != "" {
		return b.ServiceName
	}

	return b.PackageName
}

// InvoiceStatusDraft is the status of a newly created invoice.
const InvoiceStatusDraft = "draft"

// LineItem is one row of an invoice. Amounts are in cents.
type LineItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Amount      int64  `json:"amount"`
}

// Invoice bills a contact, optionally for one booking.
type Invoice struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	ContactID     string     `json:"contact_id,omitempty"`
	BookingID     string     `json:"booking_id,omitempty"`
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	ContactName   string     `json:"contact_name,omitempty"`
	ContactEmail  string     `json:"contact_email,omitempty"`
	Status        string     `json:"status"`
	IssueDate     time.Time  `json:"issue_date"`
	DueDate       time.Time  `json:"due_date"`
	LineItems     []LineItem `json:"line_items"`
	Subtotal      int64      `json:"subtotal"`
	Total         int64      `json:"total"`
	BalanceDue    int64      `json:"balance_due"`
	DepositPaidAt *time.Time `json:"deposit_paid_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Payment is money received against an invoice. Amount is in cents.
type Payment struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	ContactID  string    `json:"contact_id,omitempty"`
	InvoiceID  string    `json:"invoice_id,omitempty"`
	Amount     int64     `json:"amount"`
	Status     string    `json:"status"`
	Method     string    `json:"method,omitempty"`
	ReceiptURL string    `json:"receipt_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// EmailTemplate is a tenant's message template. System templates carry a SystemKey.
type EmailTemplate struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	SystemKey   string    `json:"system_key,omitempty"`
	IsSystem    bool      `json:"is_system"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
