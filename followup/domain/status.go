package domain

// TaskStatus is the lifecycle of an automated follow-up send.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskProcessing TaskStatus = "PROCESSING"
	TaskSent       TaskStatus = "SENT"
	TaskFailed     TaskStatus = "FAILED"
	TaskSkipped    TaskStatus = "SKIPPED"
	TaskCancelled  TaskStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskSent, TaskFailed, TaskSkipped, TaskCancelled:
		return true
	}
	return false
}

// EventStatus is the user-facing lifecycle of a follow-up.
type EventStatus string

const (
	EventScheduled EventStatus = "SCHEDULED"
	EventReady     EventStatus = "READY"
	EventCompleted EventStatus = "COMPLETED"
	EventCancelled EventStatus = "CANCELLED"
)

// OpenEventStatuses are the statuses a superseding status change cancels.
var OpenEventStatuses = []EventStatus{EventScheduled, EventReady}

// Valid reports whether s is a known event status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventScheduled, EventReady, EventCompleted, EventCancelled:
		return true
	}
	return false
}

// ManualTarget reports whether an operator may set s directly.
func (s EventStatus) ManualTarget() bool {
	return s == EventReady || s == EventCompleted || s == EventCancelled
}

// ContactPreference selects which customer field a delivery option reads.
type ContactPreference string

const (
	ContactPhone ContactPreference = "PHONE"
	ContactEmail ContactPreference = "EMAIL"
)

// TemplateID identifies a static message template.
type TemplateID string

const (
	TemplateNoResponse24h   TemplateID = "NO_RESPONSE_24H"
	TemplateQuotePending48h TemplateID = "QUOTE_PENDING_48H"
	TemplateSatisfaction14d TemplateID = "SATISFACTION_14D"
)

// Reasons and notes written by the scheduler.
const (
	ReasonCustomerNotFound    = "customer not found"
	ReasonNoCompatibleContact = "no compatible contact"
	ReasonStatusChanged       = "cancelled due to status change"
	ReasonLinkFailed          = "cancelled: event link failed"
	NoteStatusChanged         = "Cancelled by customer status change"
	NoteManualHandling        = "Automation disabled or no delivery channel: handle manually"
)
