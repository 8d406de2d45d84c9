package domain

import (
	"context"
	"strings"
	"time"
)

// CustomerStatus is the sales lifecycle status of a customer.
type CustomerStatus string

const (
	StatusPending               CustomerStatus = "PENDING"
	StatusReferredToDistributor CustomerStatus = "REFERRED_TO_DISTRIBUTOR"
	StatusNoAnswer              CustomerStatus = "NO_ANSWER"
	StatusQuotedPending         CustomerStatus = "QUOTED_PENDING"
	StatusQuotedNotInterested   CustomerStatus = "QUOTED_NOT_INTERESTED"
	StatusPurchased             CustomerStatus = "PURCHASED"
)

// AllStatuses lists the accepted statuses.
var AllStatuses = []CustomerStatus{
	StatusPending,
	StatusReferredToDistributor,
	StatusNoAnswer,
	StatusQuotedPending,
	StatusQuotedNotInterested,
	StatusPurchased,
}

// Label devuelve el estado en formato legible ("QUOTED_PENDING" -> "Quoted pending")
func (s CustomerStatus) Label() string {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(strings.ReplaceAll(string(s), "_", " "))
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// Customer representa un cliente del CRM
type Customer struct {
	ID         string         `json:"id"`
	FirstName  string         `json:"first_name"`
	LastName   string         `json:"last_name"`
	Phone      string         `json:"phone,omitempty"`
	Email      string         `json:"email,omitempty"`
	Product    string         `json:"product,omitempty"`
	AssignedTo string         `json:"assigned_to"`
	Status     CustomerStatus `json:"status"`
	Notes      string         `json:"notes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// FullName joins first and last name.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// CustomerRepository define las operaciones de persistencia para clientes
type CustomerRepository interface {
	Create(ctx context.Context, customer *Customer) error
	GetByID(ctx context.Context, id string) (*Customer, error)
	Update(ctx context.Context, customer *Customer) error
	List(ctx context.Context, filter CustomerFilter) ([]*Customer, error)
}

// CustomerFilter define los criterios de filtrado para listar clientes
type CustomerFilter struct {
	Status     *CustomerStatus
	AssignedTo string
	Search     string
	Limit      int
	Offset     int
}

// StatusChangeScheduler is notified after every customer write so follow-ups
// can be (re)scheduled.
type StatusChangeScheduler interface {
	ScheduleForStatusChange(ctx context.Context, customer Customer, previous CustomerStatus) error
}
