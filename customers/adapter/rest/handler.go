package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/AzielCF/az-crm/customers/domain"
	followupDomain "github.com/AzielCF/az-crm/followup/domain"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// CustomerUsecase es lo que el handler necesita del servicio de clientes
type CustomerUsecase interface {
	Create(ctx context.Context, request domain.CreateCustomerRequest) (*domain.Customer, error)
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	List(ctx context.Context, filter domain.CustomerFilter) ([]*domain.Customer, error)
	Update(ctx context.Context, id string, request domain.UpdateCustomerRequest) (*domain.Customer, error)
}

// FollowUpHistory lists what was scheduled for a customer.
type FollowUpHistory interface {
	ListCustomerFollowUps(ctx context.Context, customerID string) ([]*followupDomain.Task, []*followupDomain.Event, error)
}

// CustomerHandler maneja las peticiones REST para clientes
type CustomerHandler struct {
	service  CustomerUsecase
	followUp FollowUpHistory
}

// NewCustomerHandler crea una nueva instancia del handler. followUp puede ser nil.
func NewCustomerHandler(service CustomerUsecase, followUp FollowUpHistory) *CustomerHandler {
	return &CustomerHandler{service: service, followUp: followUp}
}

// RegisterRoutes registra las rutas de clientes en el router de Fiber
func (h *CustomerHandler) RegisterRoutes(router fiber.Router) {
	customers := router.Group("/customers")

	customers.Get("/", h.ListCustomers)
	customers.Post("/", h.CreateCustomer)
	customers.Get("/:id", h.GetCustomer)
	customers.Patch("/:id", h.UpdateCustomer)
	customers.Put("/:id", h.UpdateCustomer)
	customers.Get("/:id/follow-ups", h.GetFollowUps)
}

func (h *CustomerHandler) ListCustomers(c *fiber.Ctx) error {
	var query listCustomersQuery
	if err := c.QueryParser(&query); err != nil {
		panic(pkgError.ValidationError("invalid query parameters"))
	}
	if query.Status != "" && !domain.CustomerStatus(query.Status).Valid() {
		panic(pkgError.ValidationError("status: must be a valid value."))
	}

	customers, err := h.service.List(c.UserContext(), query.filter())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  http.StatusOK,
		Code:    "SUCCESS",
		Message: "Customers retrieved",
		Results: customers,
	})
}

func (h *CustomerHandler) CreateCustomer(c *fiber.Ctx) error {
	var request domain.CreateCustomerRequest
	if err := c.BodyParser(&request); err != nil {
		panic(pkgError.ValidationError("invalid request body"))
	}

	customer, err := h.service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(translateError(err))

	return c.Status(http.StatusCreated).JSON(utils.ResponseData{
		Status:  http.StatusCreated,
		Code:    "SUCCESS",
		Message: "Customer created",
		Results: customer,
	})
}

func (h *CustomerHandler) GetCustomer(c *fiber.Ctx) error {
	customer, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(translateError(err))

	return c.JSON(utils.ResponseData{
		Status:  http.StatusOK,
		Code:    "SUCCESS",
		Message: "Customer retrieved",
		Results: customer,
	})
}

// UpdateCustomer acepta cambios parciales; un cambio de estado reprograma el seguimiento
func (h *CustomerHandler) UpdateCustomer(c *fiber.Ctx) error {
	var request domain.UpdateCustomerRequest
	if err := c.BodyParser(&request); err != nil {
		panic(pkgError.ValidationError("invalid request body"))
	}

	customer, err := h.service.Update(c.UserContext(), c.Params("id"), request)
	utils.PanicIfNeeded(translateError(err))

	return c.JSON(utils.ResponseData{
		Status:  http.StatusOK,
		Code:    "SUCCESS",
		Message: "Customer updated",
		Results: customer,
	})
}

func (h *CustomerHandler) GetFollowUps(c *fiber.Ctx) error {
	customer, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(translateError(err))

	result := CustomerFollowUps{
		Customer: customer,
		Tasks:    []*followupDomain.Task{},
		Events:   []*followupDomain.Event{},
	}
	if h.followUp != nil {
		tasks, events, err := h.followUp.ListCustomerFollowUps(c.UserContext(), customer.ID)
		utils.PanicIfNeeded(err)
		if tasks != nil {
			result.Tasks = tasks
		}
		if events != nil {
			result.Events = events
		}
	}

	return c.JSON(utils.ResponseData{
		Status:  http.StatusOK,
		Code:    "SUCCESS",
		Message: "Customer follow-ups retrieved",
		Results: result,
	})
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrCustomerNotFound):
		return pkgError.NotFoundError(err.Error())
	case errors.Is(err, domain.ErrInvalidStatus):
		return pkgError.ValidationError(err.Error())
	}
	return err
}
