// Package invoice provides the create_invoice action.
package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
)

const (
	defaultDueInDays      = 30
	alreadyExistsMessage  = "Invoice already exists for booking"
	missingBookingMessage = "Missing booking or tenant"
)

// CreateAction creates one draft invoice per booking.
type CreateAction struct {
	entities persistence.EntityRepository
	now      func() time.Time
	logger   *slog.Logger
}

func NewCreateAction(entities persistence.EntityRepository, logger *slog.Logger) *CreateAction {
	return &CreateAction{
		entities: entities,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With("module", "create_invoice_action"),
	}
}

// WithClock replaces the time source.
func (a *CreateAction) WithClock(now func() time.Time) *CreateAction {
	a.now = now

	return a
}

func (a *CreateAction) Type() models.ActionType {
	return models.ActionCreateInvoice
}

func (a *CreateAction) Execute(ctx context.Context, action models.Action, tc *models.TriggerContext) (models.ActionResult, error) {
	if tc == nil || tc.Booking == nil || tc.Tenant == nil {
		return models.Failed(a.Type(), missingBookingMessage), nil
	}

	booking := tc.Booking

	existing, err := a.entities.InvoiceByBooking(ctx, booking.ID)
	if err == nil {
		return a.existing(existing), nil
	}

	if !persistence.IsEntityNotFound(err) {
		return models.ActionResult{}, fmt.Errorf("failed to look up invoice: %w", err)
	}

	invoice := a.build(models.ConfigAs[models.CreateInvoiceConfig](action), tc)

	err = a.entities.CreateInvoice(ctx, invoice)
	if persistence.IsInvoiceExists(err) {
		a.logger.InfoContext(ctx, "Invoice created concurrently", "booking_id", booking.ID)

		existing, err = a.entities.InvoiceByBooking(ctx, booking.ID)
		if err != nil {
			return models.ActionResult{}, fmt.Errorf("failed to load concurrent invoice: %w", err)
		}

		return a.existing(existing), nil
	}

	if err != nil {
		return models.ActionResult{}, fmt.Errorf("failed to create invoice: %w", err)
	}

	if tc.Invoice == nil {
		tc.Invoice = invoice
	}

	result := models.Succeeded(a.Type(), "Invoice created")
	result.Data = map[string]any{"invoiceId": invoice.ID, "total": invoice.Total}

	return result, nil
}

func (a *CreateAction) existing(invoice *models.Invoice) models.ActionResult {
	result := models.Succeeded(a.Type(), alreadyExistsMessage)
	result.Data = map[string]any{"invoiceId": invoice.ID}

	return result
}

func (a *CreateAction) build(config models.CreateInvoiceConfig, tc *models.TriggerContext) *models.Invoice {
	booking := tc.Booking

	dueInDays := defaultDueInDays
	if config.DueInDays != nil && *config.DueInDays >= 0 {
		dueInDays = *config.DueInDays
	}

	amount := booking.TotalPrice
	if config.IncludeBookingTotal != nil && !*config.IncludeBookingTotal {
		amount = 0
	}

	issued := a.now()

	invoice := &models.Invoice{
		TenantID:  tc.Tenant.ID,
		BookingID: booking.ID,
		ContactID: booking.ContactID,
		Status:    models.InvoiceStatusDraft,
		IssueDate: issued,
		DueDate:   issued.AddDate(0, 0, dueInDays),
		LineItems: []models.LineItem{{
			Description: booking.ItemName(),
			Quantity:    1,
			UnitPrice:   amount,
			Amount:      amount,
		}},
		Subtotal:   amount,
		Total:      amount,
		BalanceDue: amount,
	}

	if tc.Contact != nil {
		invoice.ContactID = tc.Contact.ID
		invoice.ContactName = tc.Contact.Name
		invoice.ContactEmail = tc.Contact.Email
	} else if booking.ContactEmail != "" {
		invoice.ContactEmail = booking.ContactEmail
	}

	return invoice
}

func (a *CreateAction) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"dueInDays": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"default":     defaultDueInDays,
				"description": "Days from today until the invoice is due.",
			},
			"includeBookingTotal": map[string]any{
				"type":        "boolean",
				"default":     true,
				"description": "Bill the booking total. When false the invoice is created empty.",
			},
		},
	}
}
