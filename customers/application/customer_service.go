package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/AzielCF/az-crm/customers/domain"
	"github.com/AzielCF/az-crm/validations"
	"github.com/sirupsen/logrus"
)

// CustomerService contiene la lógica de negocio para la gestión de clientes
type CustomerService struct {
	repo      domain.CustomerRepository
	scheduler domain.StatusChangeScheduler
}

// NewCustomerService crea el servicio. scheduler puede ser nil.
func NewCustomerService(repo domain.CustomerRepository, scheduler domain.StatusChangeScheduler) *CustomerService {
	return &CustomerService{repo: repo, scheduler: scheduler}
}

// Create guarda un cliente nuevo y agenda su seguimiento
func (s *CustomerService) Create(ctx context.Context, request domain.CreateCustomerRequest) (*domain.Customer, error) {
	if err := validations.ValidateCreateCustomer(ctx, request); err != nil {
		return nil, err
	}

	customer := &domain.Customer{
		FirstName:  strings.TrimSpace(request.FirstName),
		LastName:   strings.TrimSpace(request.LastName),
		Phone:      strings.TrimSpace(request.Phone),
		Email:      strings.TrimSpace(request.Email),
		Product:    strings.TrimSpace(request.Product),
		AssignedTo: normalizeAssignee(request.AssignedTo),
		Status:     domain.CustomerStatus(request.Status),
		Notes:      request.Notes,
	}
	if customer.Status == "" {
		customer.Status = domain.StatusPending
	}

	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	s.scheduleFollowUp(ctx, *customer, "")
	return customer, nil
}

func (s *CustomerService) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CustomerService) List(ctx context.Context, filter domain.CustomerFilter) ([]*domain.Customer, error) {
	return s.repo.List(ctx, filter)
}

// Update aplica los campos presentes y reprograma el seguimiento si cambió el estado
func (s *CustomerService) Update(ctx context.Context, id string, request domain.UpdateCustomerRequest) (*domain.Customer, error) {
	if err := validations.ValidateUpdateCustomer(ctx, request); err != nil {
		return nil, err
	}

	customer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := customer.Status

	request.Apply(customer)
	customer.FirstName = strings.TrimSpace(customer.FirstName)
	customer.LastName = strings.TrimSpace(customer.LastName)
	customer.Phone = strings.TrimSpace(customer.Phone)
	customer.Email = strings.TrimSpace(customer.Email)
	customer.AssignedTo = normalizeAssignee(customer.AssignedTo)

	if !customer.Status.Valid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidStatus, customer.Status)
	}

	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, err
	}

	s.scheduleFollowUp(ctx, *customer, previous)
	return customer, nil
}

// scheduleFollowUp never fails the customer write; errors are only logged.
func (s *CustomerService) scheduleFollowUp(ctx context.Context, customer domain.Customer, previous domain.CustomerStatus) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleForStatusChange(ctx, customer, previous); err != nil {
		logrus.WithError(err).WithField("customer_id", customer.ID).
			Errorf("[CUSTOMERS] Could not schedule follow-up for status %s", customer.Status)
	}
}

func normalizeAssignee(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
