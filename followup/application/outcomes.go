package application

import (
	"context"

	"github.com/AzielCF/az-crm/followup/domain"
	messagingDomain "github.com/AzielCF/az-crm/messaging/domain"
	"github.com/sirupsen/logrus"
)

// OutcomePublisher forwards task outcomes to other systems (a message broker).
type OutcomePublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

func (s *Scheduler) publishOutcome(ctx context.Context, task *domain.Task, channel messagingDomain.ChannelKind) {
	if s.cfg.Outcomes == nil {
		return
	}
	outcome := domain.TaskOutcome{
		TaskID:     task.ID,
		EventID:    task.EventID,
		CustomerID: task.CustomerID,
		Trigger:    task.TriggerStatus,
		TemplateID: task.TemplateID,
		Status:     task.Status,
		Channel:    channel,
		Reason:     task.LastError,
		Attempts:   task.Attempts,
		At:         s.now(),
	}
	if task.ProcessedAt != nil {
		outcome.At = *task.ProcessedAt
	}
	if err := s.cfg.Outcomes.Publish(ctx, outcome.RoutingKey(), outcome); err != nil {
		logrus.WithError(err).WithField("task_id", task.ID).Warn("[FOLLOWUP] Could not publish task outcome")
	}
}
