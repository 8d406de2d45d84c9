package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/AzielCF/az-crm/followup/domain"
	messagingDomain "github.com/AzielCF/az-crm/messaging/domain"
	"github.com/AzielCF/az-crm/pkg/timeutils"
	"github.com/sirupsen/logrus"
)

const unnamedCustomer = "Unnamed customer"

// notifyManualEvent tells the assignee an event is waiting for them. Send
// failures are only logged.
func (s *Scheduler) notifyManualEvent(ctx context.Context, event *domain.Event) {
	assignee := event.Customer.AssignedTo
	recipient := s.directory.NotificationEmail(assignee)
	if recipient == "" {
		logrus.Warnf("[FOLLOWUP] No notification email for assignee %s (event %s)", messagingDomain.NormalizeAssignee(assignee), event.ID)
		return
	}

	name := orText(event.Customer.FullName(), unnamedCustomer)
	status := orText(event.TriggerStatus.Label(), "No status")

	lines := []string{
		fmt.Sprintf("Hi %s,", messagingDomain.DisplayName(assignee)),
		"",
		"A manual follow-up is ready to be handled.",
		"",
		"• Customer: " + name,
		"• Triggered by: " + status,
		"• Product: " + orText(event.Customer.Product, "Not specified"),
		"• Suggested channels: " + channelList(event.Channels),
		fmt.Sprintf("• Scheduled for: %s (%s)",
			timeutils.FormatDateTime(event.ScheduledFor, s.cfg.Location),
			timeutils.Relative(event.ScheduledFor, s.now())),
	}
	if event.ReadyAt != nil {
		lines = append(lines, "• Ready since: "+timeutils.FormatClock(*event.ReadyAt, s.cfg.Location))
	}
	if contact := contactLine(event.Customer, event.ContactHint); contact != "" {
		lines = append(lines, "• Contact: "+contact)
	}
	lines = append(lines,
		"",
		"Suggested message:",
		"",
		event.Message,
		"",
		"Once the message is sent, remember to update the follow-up in the CRM.",
	)

	payload := messagingDomain.MessagePayload{
		Recipient: recipient,
		Subject:   fmt.Sprintf("[Manual follow-up] %s • %s", name, status),
		Body:      strings.Join(lines, "\n"),
		Metadata: map[string]string{
			messagingDomain.MetaEventID:    event.ID,
			messagingDomain.MetaCustomerID: event.CustomerID,
			messagingDomain.MetaTemplateID: string(event.TemplateID),
			messagingDomain.MetaAssignee:   messagingDomain.NormalizeAssignee(assignee),
		},
	}
	if err := s.sendInternal(ctx, payload); err != nil {
		logrus.WithError(err).Errorf("[FOLLOWUP] Could not notify %s about event %s", recipient, event.ID)
		return
	}
	logrus.Infof("[FOLLOWUP] Manual follow-up notification sent to %s for event %s", recipient, event.ID)
}

// escalate reports a terminal task failure to the assignee. Send failures are only logged.
func (s *Scheduler) escalate(ctx context.Context, task *domain.Task, customer domain.CustomerSnapshot, attempted string) {
	recipient := s.directory.NotificationEmail(customer.AssignedTo)
	if recipient == "" {
		logrus.Warnf("[FOLLOWUP] No escalation email for task %s", task.ID)
		return
	}

	name := orText(customer.FullName(), unnamedCustomer)
	status := orText(task.TriggerStatus.Label(), "No status")
	outcome := "failed"
	if task.Status == domain.TaskSkipped {
		outcome = "skipped"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", messagingDomain.DisplayName(customer.AssignedTo))
	fmt.Fprintf(&b, "The automatic follow-up for %s %s and needs manual handling.\n\n", name, outcome)
	fmt.Fprintf(&b, "• Customer: %s (%s)\n", name, task.CustomerID)
	fmt.Fprintf(&b, "• Triggered by: %s\n", status)
	fmt.Fprintf(&b, "• Template: %s\n", task.TemplateID)
	fmt.Fprintf(&b, "• Reason: %s\n", task.LastError)
	fmt.Fprintf(&b, "• Attempts: %d\n", task.Attempts)
	if contact := contactLine(customer, ""); contact != "" {
		fmt.Fprintf(&b, "• Contact: %s\n", contact)
	}
	if attempted != "" {
		b.WriteString("\nMessage that was attempted:\n\n")
		b.WriteString(attempted)
		b.WriteString("\n")
	}

	payload := messagingDomain.MessagePayload{
		Recipient: recipient,
		Subject:   fmt.Sprintf("[Follow-up %s] %s • %s", outcome, name, status),
		Body:      b.String(),
		Metadata: map[string]string{
			messagingDomain.MetaTaskID:     task.ID,
			messagingDomain.MetaEventID:    task.EventID,
			messagingDomain.MetaCustomerID: task.CustomerID,
			messagingDomain.MetaTemplateID: string(task.TemplateID),
			messagingDomain.MetaAssignee:   messagingDomain.NormalizeAssignee(customer.AssignedTo),
		},
	}
	if err := s.sendInternal(ctx, payload); err != nil {
		logrus.WithError(err).Errorf("[FOLLOWUP] Could not escalate task %s to %s", task.ID, recipient)
	}
}

func (s *Scheduler) sendInternal(ctx context.Context, payload messagingDomain.MessagePayload) error {
	if !s.gateway.Has(messagingDomain.ChannelInternalEmail) {
		return fmt.Errorf("channel %s is not configured", messagingDomain.ChannelInternalEmail)
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
	defer cancel()
	return s.gateway.Dispatch(sendCtx, messagingDomain.ChannelInternalEmail, payload)
}

func channelList(kinds []messagingDomain.ChannelKind) string {
	if len(kinds) == 0 {
		return "Decided at send time"
	}
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, strings.ToLower(strings.ReplaceAll(string(k), "_", " ")))
	}
	return strings.Join(out, ", ")
}

func contactLine(c domain.CustomerSnapshot, hint string) string {
	var parts []string
	if c.Phone != "" {
		parts = append(parts, "Tel: "+c.Phone)
	}
	if c.Email != "" {
		parts = append(parts, "Email: "+c.Email)
	}
	if hint != "" && hint != c.Phone && hint != c.Email {
		parts = append(parts, hint)
	}
	return strings.Join(parts, " · ")
}

func orText(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
