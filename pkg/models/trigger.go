package models

import "strings"

// Trigger names raised by the rest of the system. The matcher compares them
// verbatim, so any other string is accepted as well.
const (
	TriggerBookingCreated     = "booking_created"
	TriggerBookingScheduled   = "booking_scheduled"
	TriggerBookingConfirmed   = "booking_confirmed"
	TriggerBookingCompleted   = "booking_completed"
	TriggerBookingCancelled   = "booking_cancelled"
	TriggerInvoiceSent        = "invoice_sent"
	TriggerInvoicePaid        = "invoice_paid"
	TriggerInvoiceDepositPaid = "invoice_deposit_paid"
	TriggerInvoiceTagAdded    = "invoice_tag_added"
	TriggerBookingTagAdded    = "booking_tag_added"
	TriggerPaymentTagAdded    = "payment_tag_added"
	TriggerContactTagAdded    = "contact_tag_added"
	TriggerTagAdded           = "tag_added"
	TriggerTagRemoved         = "tag_removed"
	TriggerClientConverted    = "client_converted"
	TriggerLeadCreated        = "lead_created"
	TriggerPaymentReceived    = "payment_received"
)

// IsTagTrigger reports whether the trigger belongs to the tag family, whose
// workflows may be scoped to a single tag.
func IsTagTrigger(trigger string) bool {
	return strings.Contains(trigger, "tag_")
}

// TagAddedTrigger returns the trigger raised when a status tag is newly applied to an entity.
func TagAddedTrigger(kind EntityKind) string {
	return string(kind) + "_tag_added"
}

// LifecycleTrigger returns the trigger raised when an entity enters a status, e.g. invoice_paid.
func LifecycleTrigger(kind EntityKind, status string) string {
	return string(kind) + "_" + status
}

// RequiresTriggerTag reports whether workflows on this trigger must name a tag.
func RequiresTriggerTag(trigger string) bool {
	return trigger == TriggerTagAdded || trigger == TriggerTagRemoved
}
