package webhook

import (
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
)

// Payload is the body sent by the webhook action. It carries display fields only.
type Payload struct {
	Event     string          `json:"event"`
	Timestamp string          `json:"timestamp"`
	Contact   *ContactPayload `json:"contact,omitempty"`
	Booking   *BookingPayload `json:"booking,omitempty"`
	Invoice   *InvoicePayload `json:"invoice,omitempty"`
	Payment   *PaymentPayload `json:"payment,omitempty"`
}

type ContactPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type BookingPayload struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	ScheduledAt time.Time `json:"scheduledAt"`
	TotalPrice  int64     `json:"totalPrice"`
}

type InvoicePayload struct {
	ID            string `json:"id"`
	InvoiceNumber string `json:"invoiceNumber"`
	Status        string `json:"status"`
	Total         int64  `json:"total"`
	BalanceDue    int64  `json:"balanceDue"`
}

type PaymentPayload struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

// BuildPayload projects the context onto a Payload. Absent entities are omitted.
func BuildPayload(tc *models.TriggerContext, sentAt time.Time) Payload {
	payload := Payload{Event: "workflow_webhook", Timestamp: sentAt.UTC().Format(time.RFC3339)}

	if tc == nil {
		return payload
	}

	if tc.Trigger != "" {
		payload.Event = tc.Trigger
	}

	if c := tc.Contact; c != nil {
		payload.Contact = &ContactPayload{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone}
	}

	if b := tc.Booking; b != nil {
		payload.Booking = &BookingPayload{ID: b.ID, Status: b.Status, ScheduledAt: b.ScheduledAt, TotalPrice: b.TotalPrice}
	}

	if i := tc.Invoice; i != nil {
		payload.Invoice = &InvoicePayload{
			ID:            i.ID,
			InvoiceNumber: i.InvoiceNumber,
			Status:        i.Status,
			Total:         i.Total,
			BalanceDue:    i.BalanceDue,
		}
	}

	if p := tc.Payment; p != nil {
		payload.Payment = &PaymentPayload{ID: p.ID, Amount: p.Amount, Status: p.Status}
	}

	return payload
}
