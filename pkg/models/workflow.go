// Package models defines the domain types of the workflow automation engine.
package models

import "time"

// Workflow binds a trigger, optionally scoped to one tag, to an ordered list of actions.
type Workflow struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"      validate:"required"`
	Name         string    `json:"name"           validate:"required,min=3"`
	Description  string    `json:"description"`
	TriggerType  string    `json:"trigger_type"   validate:"required"`
	TriggerTagID *string   `json:"trigger_tag_id,omitempty"`
	Active       bool      `json:"active"`
	DelayMinutes int       `json:"delay_minutes"  validate:"gte=0"`
	Actions      []Action  `json:"actions"        validate:"dive"`
	SystemKey    string    `json:"system_key,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Delay returns the configured delay as a duration.
func (w *Workflow) Delay() time.Duration {
	return time.Duration(w.DelayMinutes) * time.Minute
}

// MatchesTag reports whether the workflow fires for the given tag id.
// Workflows without a tag scope match any tag.
func (w *Workflow) MatchesTag(tagID string) bool {
	return w.TriggerTagID == nil || *w.TriggerTagID == tagID
}
