package models

// TriggerContext is the transient bag of domain objects relevant to one trigger.
// Any entity may be nil. Trigger is the name that started the run, set by the engine.
type TriggerContext struct {
	Trigger string
	Tenant  *Tenant
	Contact *Contact
	Booking *Booking
	Invoice *Invoice
	Payment *Payment
	Tag     *Tag
}

// ContextRefs holds the identifiers of a TriggerContext. Only refs are persisted
// across a delay or sent over the event bus.
type ContextRefs struct {
	TenantID  string `json:"tenant_id"`
	ContactID string `json:"contact_id,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
	InvoiceID string `json:"invoice_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
	TagID     string `json:"tag_id,omitempty"`
}

// Refs projects the context onto its identifiers.
func (c *TriggerContext) Refs() ContextRefs {
	var refs ContextRefs

	if c == nil {
		return refs
	}

	if c.Tenant != nil {
		refs.TenantID = c.Tenant.ID
	}

	if c.Contact != nil {
		refs.ContactID = c.Contact.ID
	}

	if c.Booking != nil {
		refs.BookingID = c.Booking.ID
	}

	if c.Invoice != nil {
		refs.InvoiceID = c.Invoice.ID
	}

	if c.Payment != nil {
		refs.PaymentID = c.Payment.ID
	}

	if c.Tag != nil {
		refs.TagID = c.Tag.ID
	}

	return refs
}

// ContactID returns the id of the context contact, or "".
func (c *TriggerContext) ContactID() string {
	if c == nil || c.Contact == nil {
		return ""
	}

	return c.Contact.ID
}

// TagID returns the id of the context tag, or "".
func (c *TriggerContext) TagID() string {
	if c == nil || c.Tag == nil {
		return ""
	}

	return c.Tag.ID
}

// Clone copies the context and every entity it points to, so that writes made by
// one run are not seen by runs sharing the original. A nil context clones to an
// empty one.
func (c *TriggerContext) Clone() *TriggerContext {
	if c == nil {
		return &TriggerContext{}
	}

	return &TriggerContext{
		Trigger: c.Trigger,
		Tenant:  clonePtr(c.Tenant),
		Contact: clonePtr(c.Contact),
		Booking: clonePtr(c.Booking),
		Invoice: clonePtr(c.Invoice),
		Payment: clonePtr(c.Payment),
		Tag:     clonePtr(c.Tag),
	}
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}

	copied := *v

	return &copied
}
