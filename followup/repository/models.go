package repository

import (
	"encoding/json"
	"time"

	customerDomain "github.com/AzielCF/az-crm/customers/domain"
	"github.com/AzielCF/az-crm/followup/domain"
	messagingDomain "github.com/AzielCF/az-crm/messaging/domain"
)

// --- Persistence Models ---

type taskModel struct {
	ID                  string     `gorm:"primaryKey"`
	CustomerID          string     `gorm:"index:idx_follow_up_tasks_customer;not null"`
	EventID             string     `gorm:"index:idx_follow_up_tasks_event"`
	ExecuteAt           time.Time  `gorm:"index:idx_follow_up_tasks_due,priority:2;not null"`
	Status              string     `gorm:"index:idx_follow_up_tasks_due,priority:1;not null"`
	TriggerStatus       string     `gorm:"not null"`
	TemplateID          string     `gorm:"not null"`
	DeliveryOptions     string     `gorm:"type:text;not null"` // JSON
	Attempts            int        `gorm:"not null"`
	TransientRetries    int        `gorm:"not null"`
	SelectedOptionIndex *int       `gorm:"column:selected_option_index"`
	LastError           string     `gorm:"type:text"`
	ProcessedAt         *time.Time `gorm:"column:processed_at"`
	CancelledAt         *time.Time `gorm:"column:cancelled_at"`
	CreatedAt           time.Time  `gorm:"not null"`
	UpdatedAt           time.Time  `gorm:"not null"`
}

func (taskModel) TableName() string {
	return "follow_up_tasks"
}

type eventModel struct {
	ID                 string     `gorm:"primaryKey"`
	CustomerID         string     `gorm:"index:idx_follow_up_events_customer;not null"`
	CustomerFirstName  string     `gorm:"column:customer_first_name"`
	CustomerLastName   string     `gorm:"column:customer_last_name"`
	CustomerPhone      string     `gorm:"column:customer_phone"`
	CustomerEmail      string     `gorm:"column:customer_email"`
	CustomerAssignedTo string     `gorm:"index:idx_follow_up_events_assignee"`
	CustomerProduct    string     `gorm:"column:customer_product"`
	TriggerStatus      string     `gorm:"not null"`
	TemplateID         string     `gorm:"not null"`
	Message            string     `gorm:"type:text"`
	Channels           string     `gorm:"type:text;not null"` // JSON
	ContactHint        string     `gorm:"column:contact_hint"`
	ScheduledFor       time.Time  `gorm:"index:idx_follow_up_events_due,priority:2;not null"`
	Status             string     `gorm:"index:idx_follow_up_events_due,priority:1;not null"`
	ReadyAt            *time.Time `gorm:"column:ready_at"`
	CompletedAt        *time.Time `gorm:"column:completed_at"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
	Notes              string     `gorm:"type:text"`
	FollowUpTaskID     string     `gorm:"column:follow_up_task_id;index:idx_follow_up_events_task"`
	CreatedAt          time.Time  `gorm:"not null"`
	UpdatedAt          time.Time  `gorm:"not null"`
}

func (eventModel) TableName() string {
	return "follow_up_events"
}

// --- Mappers ---

func toTaskModel(t *domain.Task) (taskModel, error) {
	opts, err := json.Marshal(nonNilOptions(t.DeliveryOptions))
	if err != nil {
		return taskModel{}, err
	}
	return taskModel{
		ID:                  t.ID,
		CustomerID:          t.CustomerID,
		EventID:             t.EventID,
		ExecuteAt:           t.ExecuteAt.UTC(),
		Status:              string(t.Status),
		TriggerStatus:       string(t.TriggerStatus),
		TemplateID:          string(t.TemplateID),
		DeliveryOptions:     string(opts),
		Attempts:            t.Attempts,
		TransientRetries:    t.TransientRetries,
		SelectedOptionIndex: t.SelectedOptionIndex,
		LastError:           t.LastError,
		ProcessedAt:         utcPtr(t.ProcessedAt),
		CancelledAt:         utcPtr(t.CancelledAt),
		CreatedAt:           t.CreatedAt.UTC(),
		UpdatedAt:           t.UpdatedAt.UTC(),
	}, nil
}

func fromTaskModel(m taskModel) (*domain.Task, error) {
	var opts []domain.DeliveryOption
	if m.DeliveryOptions != "" {
		if err := json.Unmarshal([]byte(m.DeliveryOptions), &opts); err != nil {
			return nil, err
		}
	}
	return &domain.Task{
		ID:                  m.ID,
		CustomerID:          m.CustomerID,
		EventID:             m.EventID,
		ExecuteAt:           m.ExecuteAt.UTC(),
		Status:              domain.TaskStatus(m.Status),
		TriggerStatus:       customerDomain.CustomerStatus(m.TriggerStatus),
		TemplateID:          domain.TemplateID(m.TemplateID),
		DeliveryOptions:     nonNilOptions(opts),
		Attempts:            m.Attempts,
		TransientRetries:    m.TransientRetries,
		SelectedOptionIndex: m.SelectedOptionIndex,
		LastError:           m.LastError,
		ProcessedAt:         utcPtr(m.ProcessedAt),
		CancelledAt:         utcPtr(m.CancelledAt),
		CreatedAt:           m.CreatedAt.UTC(),
		UpdatedAt:           m.UpdatedAt.UTC(),
	}, nil
}

func toEventModel(e *domain.Event) (eventModel, error) {
	channels := e.Channels
	if channels == nil {
		channels = []messagingDomain.ChannelKind{}
	}
	ch, err := json.Marshal(channels)
	if err != nil {
		return eventModel{}, err
	}
	return eventModel{
		ID:                 e.ID,
		CustomerID:         e.CustomerID,
		CustomerFirstName:  e.Customer.FirstName,
		CustomerLastName:   e.Customer.LastName,
		CustomerPhone:      e.Customer.Phone,
		CustomerEmail:      e.Customer.Email,
		CustomerAssignedTo: e.Customer.AssignedTo,
		CustomerProduct:    e.Customer.Product,
		TriggerStatus:      string(e.TriggerStatus),
		TemplateID:         string(e.TemplateID),
		Message:            e.Message,
		Channels:           string(ch),
		ContactHint:        e.ContactHint,
		ScheduledFor:       e.ScheduledFor.UTC(),
		Status:             string(e.Status),
		ReadyAt:            utcPtr(e.ReadyAt),
		CompletedAt:        utcPtr(e.CompletedAt),
		CancelledAt:        utcPtr(e.CancelledAt),
		Notes:              e.Notes,
		FollowUpTaskID:     e.TaskID,
		CreatedAt:          e.CreatedAt.UTC(),
		UpdatedAt:          e.UpdatedAt.UTC(),
	}, nil
}

func fromEventModel(m eventModel) (*domain.Event, error) {
	channels := []messagingDomain.ChannelKind{}
	if m.Channels != "" {
		if err := json.Unmarshal([]byte(m.Channels), &channels); err != nil {
			return nil, err
		}
	}
	return &domain.Event{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		Customer: domain.CustomerSnapshot{
			FirstName:  m.CustomerFirstName,
			LastName:   m.CustomerLastName,
			Phone:      m.CustomerPhone,
			Email:      m.CustomerEmail,
			AssignedTo: m.CustomerAssignedTo,
			Product:    m.CustomerProduct,
		},
		TriggerStatus: customerDomain.CustomerStatus(m.TriggerStatus),
		TemplateID:    domain.TemplateID(m.TemplateID),
		Message:       m.Message,
		Channels:      channels,
		ContactHint:   m.ContactHint,
		ScheduledFor:  m.ScheduledFor.UTC(),
		Status:        domain.EventStatus(m.Status),
		ReadyAt:       utcPtr(m.ReadyAt),
		CompletedAt:   utcPtr(m.CompletedAt),
		CancelledAt:   utcPtr(m.CancelledAt),
		Notes:         m.Notes,
		TaskID:        m.FollowUpTaskID,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}, nil
}

func nonNilOptions(opts []domain.DeliveryOption) []domain.DeliveryOption {
	if opts == nil {
		return []domain.DeliveryOption{}
	}
	return opts
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
