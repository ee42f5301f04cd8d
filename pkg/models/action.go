package models

import "encoding/json"

// ActionType names one kind of workflow action.
type ActionType string

const (
	ActionSendEmail            ActionType = "send_email"
	ActionAddTag               ActionType = "add_tag"
	ActionRemoveTag            ActionType = "remove_tag"
	ActionAddTagToInvoice      ActionType = "add_tag_to_invoice"
	ActionRemoveTagFromInvoice ActionType = "remove_tag_from_invoice"
	ActionAddTagToBooking      ActionType = "add_tag_to_booking"
	ActionRemoveTagFromBooking ActionType = "remove_tag_from_booking"
	ActionAddTagToPayment      ActionType = "add_tag_to_payment"
	ActionRemoveTagFromPayment ActionType = "remove_tag_from_payment"
	ActionUpdateStatus         ActionType = "update_status"
	ActionCreateInvoice        ActionType = "create_invoice"
	ActionUpdateBookingStatus  ActionType = "update_booking_status"
	ActionWebhook              ActionType = "webhook"
	ActionSendNotification     ActionType = "send_notification"
	ActionWait                 ActionType = "wait"
)

// ActionConfig is the configuration of one action kind. The set of
// implementations is closed: one struct per ActionType plus UnknownConfig.
type ActionConfig interface {
	actionConfig()
}

// Action is one step of a workflow. It marshals as {"type": ..., "config": {...}}.
type Action struct {
	Type   ActionType   `json:"type"   validate:"required"`
	Config ActionConfig `json:"config"`
}

type SendEmailConfig struct {
	TemplateID        string `json:"templateId,omitempty"`
	SystemTemplateKey string `json:"systemTemplateKey,omitempty"`
}

// TagConfig addresses a tag by id, or by name (and optional type) within the tenant.
type TagConfig struct {
	TagID   string  `json:"tagId,omitempty"`
	TagName string  `json:"tagName,omitempty"`
	TagType TagType `json:"tagType,omitempty"`
}

type UpdateStatusConfig struct {
	Status string `json:"status"`
}

type CreateInvoiceConfig struct {
	DueInDays           *int  `json:"dueInDays,omitempty"`
	IncludeBookingTotal *bool `json:"includeBookingTotal,omitempty"`
}

type UpdateBookingStatusConfig struct {
	Status string `json:"status"`
}

type WebhookConfig struct {
	URL            string `json:"url"`
	Method         string `json:"method,omitempty"`
	IncludePayload *bool  `json:"includePayload,omitempty"`
	Secret         string `json:"secret,omitempty"`
}

type SendNotificationConfig struct {
	Subject string `json:"subject,omitempty"`
	Message string `json:"message,omitempty"`
}

type WaitConfig struct {
	Minutes int `json:"minutes,omitempty"`
}

// UnknownConfig keeps the raw config of an action type this build does not know.
type UnknownConfig struct {
	Raw json.RawMessage `json:"-"`
}

// InvalidConfig keeps a stored config that does not decode into its action's
// struct. The action loads, and fails when executed.
type InvalidConfig struct {
	Raw json.RawMessage `json:"-"`
	Err string          `json:"-"`
}

func (SendEmailConfig) actionConfig()           {}
func (TagConfig) actionConfig()                 {}
func (UpdateStatusConfig) actionConfig()        {}
func (CreateInvoiceConfig) actionConfig()       {}
func (UpdateBookingStatusConfig) actionConfig() {}
func (WebhookConfig) actionConfig()             {}
func (SendNotificationConfig) actionConfig()    {}
func (WaitConfig) actionConfig()                {}
func (UnknownConfig) actionConfig()             {}
func (InvalidConfig) actionConfig()             {}

// MarshalJSON implements json.Marshaler for UnknownConfig.
func (c UnknownConfig) MarshalJSON() ([]byte, error) {
	if len(c.Raw) == 0 {
		return []byte("{}"), nil
	}

	return c.Raw, nil
}

// MarshalJSON implements json.Marshaler for InvalidConfig.
func (c InvalidConfig) MarshalJSON() ([]byte, error) {
	if len(c.Raw) == 0 {
		return []byte("{}"), nil
	}

	return c.Raw, nil
}

// TagTarget returns the entity kind a tag action applies to and whether it adds.
// ok is false for non-tag actions.
func (t ActionType) TagTarget() (kind EntityKind, add bool, ok bool) {
	switch t {
	case ActionAddTag:
		return EntityContact, true, true
	case ActionRemoveTag:
		return EntityContact, false, true
	case ActionAddTagToInvoice:
		return EntityInvoice, true, true
	case ActionRemoveTagFromInvoice:
		return EntityInvoice, false, true
	case ActionAddTagToBooking:
		return EntityBooking, true, true
	case ActionRemoveTagFromBooking:
		return EntityBooking, false, true
	case ActionAddTagToPayment:
		return EntityPayment, true, true
	case ActionRemoveTagFromPayment:
		return EntityPayment, false, true
	default:
		return "", false, false
	}
}

// NewActionConfig returns an empty config value for the action type.
func NewActionConfig(t ActionType) ActionConfig {
	if _, _, ok := t.TagTarget(); ok {
		return &TagConfig{}
	}

	switch t {
	case ActionSendEmail:
		return &SendEmailConfig{}
	case ActionUpdateStatus:
		return &UpdateStatusConfig{}
	case ActionCreateInvoice:
		return &CreateInvoiceConfig{}
	case ActionUpdateBookingStatus:
		return &UpdateBookingStatusConfig{}
	case ActionWebhook:
		return &WebhookConfig{}
	case ActionSendNotification:
		return &SendNotificationConfig{}
	case ActionWait:
		return &WaitConfig{}
	default:
		return nil
	}
}

type rawAction struct {
	Type   ActionType      `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

// UnmarshalJSON decodes config into the struct selected by type. A config whose
// fields have the wrong JSON types becomes an InvalidConfig instead of an error.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw rawAction

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	a.Type = raw.Type

	config := NewActionConfig(raw.Type)
	if config == nil {
		a.Config = UnknownConfig{Raw: raw.Config}

		return nil
	}

	if len(raw.Config) > 0 && string(raw.Config) != "null" {
		err = json.Unmarshal(raw.Config, config)
		if err != nil {
			a.Config = InvalidConfig{Raw: raw.Config, Err: err.Error()}

			return nil
		}
	}

	a.Config = derefConfig(config)

	return nil
}

// MarshalJSON encodes the action as {"type", "config"}.
func (a Action) MarshalJSON() ([]byte, error) {
	config := a.Config
	if config == nil {
		config = UnknownConfig{}
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, err
	}

	return json.Marshal(rawAction{Type: a.Type, Config: configJSON})
}

// ConfigMap returns the config as a generic map, as used by schema validation.
func (a Action) ConfigMap() (map[string]any, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Config map[string]any `json:"config"`
	}

	err = json.Unmarshal(data, &raw)
	if err != nil {
		return nil, err
	}

	if raw.Config == nil {
		raw.Config = map[string]any{}
	}

	return raw.Config, nil
}

func derefConfig(config ActionConfig) ActionConfig {
	switch c := config.(type) {
	case *SendEmailConfig:
		return *c
	case *TagConfig:
		return *c
	case *UpdateStatusConfig:
		return *c
	case *CreateInvoiceConfig:
		return *c
	case *UpdateBookingStatusConfig:
		return *c
	case *WebhookConfig:
		return *c
	case *SendNotificationConfig:
		return *c
	case *WaitConfig:
		return *c
	default:
		return config
	}
}

// ConfigError reports why the action config could not be decoded, or "".
func (a Action) ConfigError() string {
	if c, ok := a.Config.(InvalidConfig); ok {
		return c.Err
	}

	return ""
}

// ConfigAs returns the action config as T, accepting a *T as well.
// It returns the zero T when the config holds another kind.
func ConfigAs[T ActionConfig](a Action) T {
	switch c := any(a.Config).(type) {
	case T:
		return c
	case *T:
		if c != nil {
			return *c
		}
	}

	var zero T

	return zero
}
