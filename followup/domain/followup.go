package domain

import (
	"context"
	"strings"
	"time"

	customerDomain "github.com/AzielCF/az-crm/customers/domain"
	messagingDomain "github.com/AzielCF/az-crm/messaging/domain"
)

// Task is one scheduled automated send. DeliveryOptions is a snapshot of
// the rule at creation time.
type Task struct {
	ID                  string                        `json:"id"`
	CustomerID          string                        `json:"customer_id"`
	EventID             string                        `json:"event_id,omitempty"`
	ExecuteAt           time.Time                     `json:"execute_at"`
	TriggerStatus       customerDomain.CustomerStatus `json:"trigger_status"`
	TemplateID          TemplateID                    `json:"template_id"`
	DeliveryOptions     []DeliveryOption              `json:"delivery_options"`
	Status              TaskStatus                    `json:"status"`
	Attempts            int                           `json:"attempts"`
	TransientRetries    int                           `json:"transient_retries"`
	SelectedOptionIndex *int                          `json:"selected_option_index,omitempty"`
	LastError           string                        `json:"last_error,omitempty"`
	ProcessedAt         *time.Time                    `json:"processed_at,omitempty"`
	CancelledAt         *time.Time                    `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time                     `json:"created_at"`
	UpdatedAt           time.Time                     `json:"updated_at"`
}

// CustomerSnapshot copies the customer fields shown to operators.
type CustomerSnapshot struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	AssignedTo string `json:"assigned_to"`
	Product    string `json:"product,omitempty"`
}

// FullName joins first and last name.
func (s CustomerSnapshot) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// SnapshotOf copies the operator-facing fields of c.
func SnapshotOf(c customerDomain.Customer) CustomerSnapshot {
	return CustomerSnapshot{
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Phone:      c.Phone,
		Email:      c.Email,
		AssignedTo: messagingDomain.NormalizeAssignee(c.AssignedTo),
		Product:    c.Product,
	}
}

// Event is the user-facing record of a follow-up decision. It exists for
// every scheduling decision, with or without a Task.
type Event struct {
	ID            string                        `json:"id"`
	CustomerID    string                        `json:"customer_id"`
	Customer      CustomerSnapshot              `json:"customer"`
	TriggerStatus customerDomain.CustomerStatus `json:"trigger_status"`
	TemplateID    TemplateID                    `json:"template_id"`
	Message       string                        `json:"message"`
	Channels      []messagingDomain.ChannelKind `json:"channels"`
	ContactHint   string                        `json:"contact_hint,omitempty"`
	ScheduledFor  time.Time                     `json:"scheduled_for"`
	Status        EventStatus                   `json:"status"`
	ReadyAt       *time.Time                    `json:"ready_at,omitempty"`
	CompletedAt   *time.Time                    `json:"completed_at,omitempty"`
	CancelledAt   *time.Time                    `json:"cancelled_at,omitempty"`
	Notes         string                        `json:"notes,omitempty"`
	TaskID        string                        `json:"follow_up_task_id,omitempty"`
	CreatedAt     time.Time                     `json:"created_at"`
	UpdatedAt     time.Time                     `json:"updated_at"`
}

// EventFilter selects events for the operator list.
type EventFilter struct {
	Statuses []EventStatus
	Assignee string // "" or "ALL" means every assignee
	Limit    int
}

const (
	DefaultEventListLimit = 50
	MaxEventListLimit     = 200
)

// TaskRepository persists tasks. Every state change is a conditional
// single-row update; a false/zero result means another writer got there first.
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*Task, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Task, error)

	// Claim moves PENDING -> PROCESSING and increments attempts.
	Claim(ctx context.Context, id string, now time.Time) (bool, error)
	// MarkSent moves PROCESSING -> SENT.
	MarkSent(ctx context.Context, id string, optionIndex int, at time.Time) error
	// MarkFinished moves PROCESSING -> FAILED or SKIPPED.
	MarkFinished(ctx context.Context, id string, status TaskStatus, reason string, at time.Time) error
	// Requeue moves PROCESSING -> PENDING, decrements attempts.
	Requeue(ctx context.Context, id string, executeAt time.Time, reason string, at time.Time) error
	// CancelPendingForCustomer moves every PENDING task of the customer to CANCELLED.
	CancelPendingForCustomer(ctx context.Context, customerID, reason string, at time.Time) (int64, error)
}

// EventRepository persists events.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, filter EventFilter) ([]*Event, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*Event, error)
	// ListDueScheduled returns SCHEDULED events due at now. withoutTask
	// restricts the result to events no task will ever resolve.
	ListDueScheduled(ctx context.Context, now time.Time, withoutTask bool, limit int) ([]*Event, error)

	LinkTask(ctx context.Context, eventID, taskID string, at time.Time) error
	// PromoteToReady moves SCHEDULED -> READY.
	PromoteToReady(ctx context.Context, id string, at time.Time) (bool, error)
	// SetStatus applies status unconditionally, stamping the matching
	// timestamp. A nil notes leaves the stored notes untouched.
	SetStatus(ctx context.Context, id string, status EventStatus, notes *string, at time.Time) (*Event, error)
	// SetStatusFrom is SetStatus guarded by the current status. When the
	// event is no longer in from it returns the stored event and false.
	SetStatusFrom(ctx context.Context, id string, from []EventStatus, status EventStatus, notes *string, at time.Time) (*Event, bool, error)
	// CancelOpenForCustomer moves every SCHEDULED/READY event of the customer to CANCELLED.
	CancelOpenForCustomer(ctx context.Context, customerID, notes string, at time.Time) (int64, error)
}

// CustomerReader is the customer store as seen from the scheduler.
type CustomerReader interface {
	GetByID(ctx context.Context, id string) (*customerDomain.Customer, error)
}

// TaskOutcome is broadcast once a task reaches SENT, FAILED or SKIPPED.
type TaskOutcome struct {
	TaskID     string                        `json:"task_id"`
	EventID    string                        `json:"event_id,omitempty"`
	CustomerID string                        `json:"customer_id"`
	Trigger    customerDomain.CustomerStatus `json:"trigger_status"`
	TemplateID TemplateID                    `json:"template_id"`
	Status     TaskStatus                    `json:"status"`
	Channel    messagingDomain.ChannelKind   `json:"channel,omitempty"`
	Reason     string                        `json:"reason,omitempty"`
	Attempts   int                           `json:"attempts"`
	At         time.Time                     `json:"at"`
}

// RoutingKey is "followup.task.<status>" in lower case.
func (o TaskOutcome) RoutingKey() string {
	return "followup.task." + strings.ToLower(string(o.Status))
}
