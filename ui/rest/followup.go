package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	followupApp "github.com/AzielCF/az-crm/followup/application"
	"github.com/AzielCF/az-crm/followup/domain"
	messagingDomain "github.com/AzielCF/az-crm/messaging/domain"
	pkgError "github.com/AzielCF/az-crm/pkg/error"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/AzielCF/az-crm/validations"
	"github.com/gofiber/fiber/v2"
)

// FollowUpUsecase is the part of the scheduler exposed over HTTP.
type FollowUpUsecase interface {
	AutomationEnabled() bool
	Tick(ctx context.Context) (followupApp.TickReport, error)
	ListEvents(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error)
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	UpdateEventStatus(ctx context.Context, id string, status domain.EventStatus, notes *string) (*domain.Event, error)
}

// HealthProbes are the optional checks reported by /health. Any field may be nil.
type HealthProbes struct {
	Channels func() []messagingDomain.ChannelKind
	SMTP     func(ctx context.Context) error
	TickLock func(ctx context.Context) (string, error)
}

type FollowUp struct {
	Service FollowUpUsecase
	Probes  HealthProbes
}

func InitRestFollowUp(app fiber.Router, service FollowUpUsecase, probes HealthProbes) FollowUp {
	handler := FollowUp{Service: service, Probes: probes}

	group := app.Group("/follow-up")
	group.Get("/events", handler.ListEvents)
	group.Get("/events/:id", handler.GetEvent)
	group.Patch("/events/:id/status", handler.UpdateEventStatus)
	group.Post("/tick", handler.Tick)
	group.Get("/health", handler.Health)

	return handler
}

func (h *FollowUp) ListEvents(c *fiber.Ctx) error {
	var request domain.ListEventsRequest
	if err := c.QueryParser(&request); err != nil {
		panic(pkgError.ValidationError("invalid query parameters"))
	}
	utils.PanicIfNeeded(validations.ValidateListEvents(c.UserContext(), request))

	events, err := h.Service.ListEvents(c.UserContext(), request.Filter())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  http.StatusOK,
		Code:    "SUCCESS",
		Message: "Follow-up events retrieved",
		Results: events,
	})
}

func (h *FollowUp) GetEvent(c *fiber.Ctx) error {
	event, err := h.Service.GetEvent(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(translateFollowUpError(err))

	return c.JSON(utils.ResponseData{
		Status:  http.StatusOK,
		Code:    "SUCCESS",
		Message: "Follow-up event retrieved",
		Results: event,
	})
}

func (h *FollowUp) UpdateEventStatus(c *fiber.Ctx) error {
	var request domain.UpdateEventStatusRequest
	if err := c.BodyParser(&request); err != nil {
		panic(pkgError.ValidationError("invalid request body"))
	}
	request.Status = strings.ToUpper(strings.TrimSpace(request.Status))
	utils.PanicIfNeeded(validations.ValidateUpdateEventStatus(c.UserContext(), request))

	event, err := h.Service.UpdateEventStatus(c.UserContext(), c.Params("id"), domain.EventStatus(request.Status), request.Notes)
	utils.PanicIfNeeded(translateFollowUpError(err))

	return c.JSON(utils.ResponseData{
		Status:  http.StatusOK,
		Code:    "SUCCESS",
		Message: "Follow-up event updated",
		Results: event,
	})
}

// Tick runs one scheduling pass on demand, outside the poller.
func (h *FollowUp) Tick(c *fiber.Ctx) error {
	report, err := h.Service.Tick(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  http.StatusOK,
		Code:    "SUCCESS",
		Message: "Follow-up tick executed",
		Results: report,
	})
}

func (h *FollowUp) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
	defer cancel()

	results := fiber.Map{
		"automation": h.Service.AutomationEnabled(),
		"checked_at": time.Now().UTC(),
	}
	if h.Probes.Channels != nil {
		results["channels"] = h.Probes.Channels()
	}
	healthy := true
	if h.Probes.SMTP != nil {
		if err := h.Probes.SMTP(ctx); err != nil {
			healthy = false
			results["smtp"] = fiber.Map{"ok": false, "error": err.Error()}
		} else {
			results["smtp"] = fiber.Map{"ok": true}
		}
	}
	if h.Probes.TickLock != nil {
		holder, err := h.Probes.TickLock(ctx)
		if err != nil {
			healthy = false
			results["tick_lock"] = fiber.Map{"ok": false, "error": err.Error()}
		} else {
			results["tick_lock"] = fiber.Map{"ok": true, "holder": holder}
		}
	}

	status, code, message := http.StatusOK, "SUCCESS", "Follow-up subsystem healthy"
	if !healthy {
		status, code, message = http.StatusServiceUnavailable, "DEGRADED", "Follow-up subsystem degraded"
	}
	return c.Status(status).JSON(utils.ResponseData{
		Status:  status,
		Code:    code,
		Message: message,
		Results: results,
	})
}

func translateFollowUpError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrEventNotFound):
		return pkgError.NotFoundError(err.Error())
	case errors.Is(err, domain.ErrInvalidEventStatus):
		return pkgError.ValidationError(err.Error())
	}
	return err
}
