package domain

import "context"

// ChannelKind is the closed set of delivery channels the gateway knows.
type ChannelKind string

const (
	ChannelWhatsAppAPI   ChannelKind = "WHATSAPP_API"
	ChannelInternalEmail ChannelKind = "INTERNAL_EMAIL"
)

// AllChannelKinds lists every kind in registry order.
var AllChannelKinds = []ChannelKind{ChannelWhatsAppAPI, ChannelInternalEmail}

// Valid reports whether k is one of the known kinds.
func (k ChannelKind) Valid() bool {
	switch k {
	case ChannelWhatsAppAPI, ChannelInternalEmail:
		return true
	}
	return false
}

// Metadata keys understood by the channels.
const (
	MetaCustomerID   = "customer_id"
	MetaCustomerName = "customer_name"
	MetaTemplateID   = "template_id"
	MetaAssignee     = "assignee"
	MetaTaskID       = "task_id"
	MetaEventID      = "event_id"
)

// TemplateRef points to a template pre-approved on the transport side.
type TemplateRef struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

// MessagePayload is what a channel receives at send time. It is never persisted.
type MessagePayload struct {
	Recipient string
	Body      string
	Subject   string
	Template  *TemplateRef
	Metadata  map[string]string
}

// Meta returns a metadata value or "" when absent.
func (p MessagePayload) Meta(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}

// Channel sends a payload through one transport.
type Channel interface {
	Kind() ChannelKind
	Send(ctx context.Context, payload MessagePayload) error
}

// Dispatcher routes payloads to channels by kind.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind ChannelKind, payload MessagePayload) error
	Has(kind ChannelKind) bool
}
