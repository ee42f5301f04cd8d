package models

import "time"

// TagType is the category a tag belongs to.
type TagType string

const (
	TagTypeInvoice TagType = "invoice"
	TagTypeBooking TagType = "booking"
	TagTypePayment TagType = "payment"
	TagTypeContact TagType = "contact"
	TagTypeGeneral TagType = "general"
)

// Tag is a tenant scoped label. (TenantID, Name) is unique.
type Tag struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"   validate:"required"`
	Name        string    `json:"name"        validate:"required"`
	Type        TagType   `json:"type"        validate:"required,oneof=invoice booking payment contact general"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EntityKind names an entity that can carry tags.
type EntityKind string

const (
	EntityInvoice EntityKind = "invoice"
	EntityBooking EntityKind = "booking"
	EntityPayment EntityKind = "payment"
	EntityContact EntityKind = "contact"
)

// EntityKinds lists every taggable entity kind.
var EntityKinds = []EntityKind{EntityInvoice, EntityBooking, EntityPayment, EntityContact}

// TagType returns the tag category holding the status tags of this entity kind.
func (k EntityKind) TagType() TagType {
	return TagType(k)
}

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	for _, kind := range EntityKinds {
		if k == kind {
			return true
		}
	}

	return false
}

// TagAssociation links one entity to one tag. (Kind, EntityID, TagID) is unique.
type TagAssociation struct {
	Kind      EntityKind `json:"kind"`
	EntityID  string     `json:"entity_id"`
	TagID     string     `json:"tag_id"`
	CreatedAt time.Time  `json:"created_at"`
}
