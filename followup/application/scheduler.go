package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	customerDomain "github.com/AzielCF/az-crm/customers/domain"
	"github.com/AzielCF/az-crm/followup/domain"
	messagingDomain "github.com/AzielCF/az-crm/messaging/domain"
	"github.com/sirupsen/logrus"
)

const (
	TaskBatchSize       = 20
	EventBatchSize      = 50
	TransientRetryDelay = 5 * time.Minute

	defaultDispatchTimeout = 30 * time.Second
)

// SchedulerConfig holds the runtime switches of the scheduler.
type SchedulerConfig struct {
	AutomationEnabled bool
	DispatchTimeout   time.Duration
	// Location is used to print dates in notifications.
	Location *time.Location
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
	// Outcomes receives every terminal task outcome. Optional.
	Outcomes OutcomePublisher
}

// TickReport summarises one tick.
type TickReport struct {
	Automation     bool `json:"automation"`
	TasksProcessed int  `json:"tasks_processed"`
	EventsPromoted int  `json:"events_promoted"`
}

// Scheduler turns customer status changes into follow-up events and tasks
// and drives them to completion on every tick.
type Scheduler struct {
	tasks     domain.TaskRepository
	events    domain.EventRepository
	customers domain.CustomerReader
	gateway   messagingDomain.Dispatcher
	rules     *domain.RuleTable
	resolver  *ContactResolver
	templates *TemplateCatalog
	directory *messagingDomain.AssigneeDirectory
	cfg       SchedulerConfig
	now       func() time.Time
}

// NewScheduler wires the scheduler. rules is expected to be built once at startup.
func NewScheduler(
	tasks domain.TaskRepository,
	events domain.EventRepository,
	customers domain.CustomerReader,
	gateway messagingDomain.Dispatcher,
	rules *domain.RuleTable,
	resolver *ContactResolver,
	templates *TemplateCatalog,
	directory *messagingDomain.AssigneeDirectory,
	cfg SchedulerConfig,
) *Scheduler {
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = defaultDispatchTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		tasks:     tasks,
		events:    events,
		customers: customers,
		gateway:   gateway,
		rules:     rules,
		resolver:  resolver,
		templates: templates,
		directory: directory,
		cfg:       cfg,
		now:       func() time.Time { return now().UTC() },
	}
}

// AutomationEnabled reports whether due tasks are dispatched automatically.
func (s *Scheduler) AutomationEnabled() bool {
	return s.cfg.AutomationEnabled
}

// ScheduleForStatusChange supersedes the customer's open follow-ups and
// schedules the one matching the new status, if any.
func (s *Scheduler) ScheduleForStatusChange(ctx context.Context, customer customerDomain.Customer, previous customerDomain.CustomerStatus) error {
	if customer.Status == "" || customer.Status == previous {
		return nil
	}

	now := s.now()
	log := logrus.WithFields(logrus.Fields{"customer_id": customer.ID, "status": customer.Status})

	cancelledTasks, err := s.tasks.CancelPendingForCustomer(ctx, customer.ID, domain.ReasonStatusChanged, now)
	if err != nil {
		return fmt.Errorf("cancel pending tasks: %w", err)
	}
	cancelledEvents, err := s.events.CancelOpenForCustomer(ctx, customer.ID, domain.NoteStatusChanged, now)
	if err != nil {
		return fmt.Errorf("cancel open events: %w", err)
	}
	if cancelledTasks > 0 || cancelledEvents > 0 {
		log.Infof("[FOLLOWUP] Superseded %d task(s) and %d event(s)", cancelledTasks, cancelledEvents)
	}

	rule, ok := s.rules.Rule(customer.Status)
	if !ok {
		log.Debug("[FOLLOWUP] No follow-up rule for status")
		return nil
	}

	message, err := s.templates.Body(rule.TemplateID, customer)
	if err != nil {
		return err
	}

	if len(rule.DeliveryOptions) == 0 {
		log.Warnf("[FOLLOWUP] Rule %s has no delivery options, event left for manual handling", rule.TemplateID)
	}
	automated := s.cfg.AutomationEnabled && len(rule.DeliveryOptions) > 0

	var hint string
	if contact, ok := s.resolver.Resolve(customer, rule.DeliveryOptions); ok {
		hint = contact.Value
	}

	executeAt := now.Add(rule.Delay)
	event := &domain.Event{
		CustomerID:    customer.ID,
		Customer:      domain.SnapshotOf(customer),
		TriggerStatus: customer.Status,
		TemplateID:    rule.TemplateID,
		Message:       message,
		Channels:      channelKinds(rule.DeliveryOptions),
		ContactHint:   hint,
		ScheduledFor:  executeAt,
		Status:        domain.EventScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if !automated {
		event.Notes = domain.NoteManualHandling
	}
	if err := s.events.Create(ctx, event); err != nil {
		return fmt.Errorf("create follow-up event: %w", err)
	}

	if !automated {
		log.Infof("[FOLLOWUP] Event %s scheduled for manual handling at %s", event.ID, executeAt.Format(time.RFC3339))
		return nil
	}

	task := &domain.Task{
		CustomerID:      customer.ID,
		EventID:         event.ID,
		ExecuteAt:       executeAt,
		TriggerStatus:   customer.Status,
		TemplateID:      rule.TemplateID,
		DeliveryOptions: rule.DeliveryOptions,
		Status:          domain.TaskPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return fmt.Errorf("create follow-up task: %w", err)
	}
	if err := s.events.LinkTask(ctx, event.ID, task.ID, now); err != nil {
		// Sin link el tick promovería el evento y además enviaría la tarea.
		if _, cancelErr := s.tasks.CancelPendingForCustomer(ctx, customer.ID, domain.ReasonLinkFailed, now); cancelErr != nil {
			log.WithError(cancelErr).Errorf("[FOLLOWUP] Could not cancel unlinked task %s", task.ID)
		}
		return fmt.Errorf("link task %s to event %s: %w", task.ID, event.ID, err)
	}

	log.Infof("[FOLLOWUP] Scheduled %s (task %s, event %s) at %s", rule.TemplateID, task.ID, event.ID, executeAt.Format(time.RFC3339))
	return nil
}

// Tick runs one pass. With automation on it processes due tasks and then
// promotes the due events no task will resolve; with automation off it
// promotes every due event.
func (s *Scheduler) Tick(ctx context.Context) (TickReport, error) {
	report := TickReport{Automation: s.cfg.AutomationEnabled}

	var taskErr error
	if s.cfg.AutomationEnabled {
		report.TasksProcessed, taskErr = s.ProcessDueTasks(ctx)
		if taskErr != nil {
			logrus.WithError(taskErr).Error("[FOLLOWUP] Due task processing failed, promoting manual events anyway")
		}
	}

	promoted, err := s.PromoteDueEvents(ctx, s.cfg.AutomationEnabled)
	report.EventsPromoted = promoted
	return report, errors.Join(taskErr, err)
}

// ProcessDueTasks claims and resolves up to TaskBatchSize due tasks, one
// at a time, oldest first.
func (s *Scheduler) ProcessDueTasks(ctx context.Context) (int, error) {
	due, err := s.tasks.ListDue(ctx, s.now(), TaskBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list due tasks: %w", err)
	}

	processed := 0
	for _, task := range due {
		if ctx.Err() != nil {
			break
		}

		claimed, err := s.tasks.Claim(ctx, task.ID, s.now())
		if err != nil {
			logrus.WithError(err).Errorf("[FOLLOWUP] Could not claim task %s", task.ID)
			continue
		}
		if !claimed {
			logrus.Debugf("[FOLLOWUP] Task %s was claimed or cancelled elsewhere", task.ID)
			continue
		}

		task.Status = domain.TaskProcessing
		task.Attempts++
		s.processTask(ctx, task)
		processed++
	}
	return processed, nil
}

func (s *Scheduler) processTask(ctx context.Context, task *domain.Task) {
	customer, err := s.customers.GetByID(ctx, task.CustomerID)
	switch {
	case errors.Is(err, customerDomain.ErrCustomerNotFound):
		s.finish(ctx, task, nil, domain.TaskFailed, domain.ReasonCustomerNotFound, "")
		return
	case err != nil:
		// store caído: se reintenta como un canal no disponible
		s.requeue(ctx, task, fmt.Errorf("load customer: %w", err))
		return
	}

	contact, ok := s.resolver.Resolve(*customer, task.DeliveryOptions)
	if !ok {
		s.finish(ctx, task, customer, domain.TaskSkipped, domain.ReasonNoCompatibleContact, "")
		return
	}

	body, err := s.templates.Body(task.TemplateID, *customer)
	if err != nil {
		s.finish(ctx, task, customer, domain.TaskFailed, err.Error(), "")
		return
	}

	payload := messagingDomain.MessagePayload{
		Recipient: contact.Value,
		Body:      body,
		Subject:   s.templates.Subject(task.TemplateID),
		Metadata: map[string]string{
			messagingDomain.MetaCustomerID:   customer.ID,
			messagingDomain.MetaCustomerName: customer.FullName(),
			messagingDomain.MetaTemplateID:   string(task.TemplateID),
			messagingDomain.MetaAssignee:     messagingDomain.NormalizeAssignee(customer.AssignedTo),
			messagingDomain.MetaTaskID:       task.ID,
			messagingDomain.MetaEventID:      task.EventID,
		},
	}
	if contact.Channel == messagingDomain.ChannelWhatsAppAPI {
		payload.Template = s.templates.ChatTemplate(task.TemplateID)
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
	err = s.gateway.Dispatch(dispatchCtx, contact.Channel, payload)
	cancel()

	switch {
	case err == nil:
		s.markSent(ctx, task, contact)
	case messagingDomain.IsTransient(err):
		s.requeue(ctx, task, err)
	default:
		s.finish(ctx, task, customer, domain.TaskFailed, err.Error(), body)
	}
}

func (s *Scheduler) markSent(ctx context.Context, task *domain.Task, contact ResolvedContact) {
	now := s.now()
	if err := s.tasks.MarkSent(ctx, task.ID, contact.OptionIndex, now); err != nil {
		logrus.WithError(err).Errorf("[FOLLOWUP] Could not mark task %s as sent", task.ID)
		return
	}
	idx := contact.OptionIndex
	task.Status = domain.TaskSent
	task.SelectedOptionIndex = &idx
	task.LastError = ""
	task.ProcessedAt = &now

	logrus.WithFields(logrus.Fields{
		"task_id":     task.ID,
		"customer_id": task.CustomerID,
		"channel":     contact.Channel,
	}).Info("[FOLLOWUP] Follow-up sent")
	s.syncEvent(ctx, task, now)
	s.publishOutcome(ctx, task, contact.Channel)
}

// requeue puts the task back without consuming the attempt. There is no
// cap on how many times this happens; transient_retries keeps the count.
func (s *Scheduler) requeue(ctx context.Context, task *domain.Task, cause error) {
	now := s.now()
	next := now.Add(TransientRetryDelay)
	if err := s.tasks.Requeue(ctx, task.ID, next, cause.Error(), now); err != nil {
		logrus.WithError(err).Errorf("[FOLLOWUP] Could not requeue task %s", task.ID)
		return
	}
	logrus.WithFields(logrus.Fields{
		"task_id":           task.ID,
		"transient_retries": task.TransientRetries + 1,
		"next_attempt":      next.Format(time.RFC3339),
	}).WithError(cause).Warn("[FOLLOWUP] Temporary failure, task requeued")
}

// finish stamps a FAILED/SKIPPED outcome, mirrors it on the event and tells the assignee.
func (s *Scheduler) finish(ctx context.Context, task *domain.Task, customer *customerDomain.Customer, status domain.TaskStatus, reason, attempted string) {
	now := s.now()
	if err := s.tasks.MarkFinished(ctx, task.ID, status, reason, now); err != nil {
		logrus.WithError(err).Errorf("[FOLLOWUP] Could not mark task %s as %s", task.ID, status)
		return
	}
	task.Status = status
	task.LastError = reason
	task.ProcessedAt = &now

	logrus.WithFields(logrus.Fields{
		"task_id":     task.ID,
		"customer_id": task.CustomerID,
		"status":      status,
	}).Warnf("[FOLLOWUP] Follow-up not delivered: %s", reason)

	event, mirrored := s.syncEvent(ctx, task, now)
	s.publishOutcome(ctx, task, "")
	if event != nil && !mirrored {
		logrus.WithFields(logrus.Fields{
			"task_id":  task.ID,
			"event_id": event.ID,
			"status":   event.Status,
		}).Info("[FOLLOWUP] Event already closed, escalation skipped")
		return
	}

	var snapshot domain.CustomerSnapshot
	switch {
	case customer != nil:
		snapshot = domain.SnapshotOf(*customer)
	case event != nil:
		snapshot = event.Customer
	}
	if attempted == "" && event != nil {
		attempted = event.Message
	}
	s.escalate(ctx, task, snapshot, attempted)
}

// syncEvent applies the task outcome to its event while the event is still
// open. mirrored is false when a status change or an operator closed it first;
// the returned event is then the stored one.
func (s *Scheduler) syncEvent(ctx context.Context, task *domain.Task, at time.Time) (*domain.Event, bool) {
	if task.EventID == "" {
		return nil, false
	}
	projection, ok := domain.ProjectTaskOutcome(*task)
	if !ok {
		return nil, false
	}
	event, mirrored, err := s.events.SetStatusFrom(ctx, task.EventID, domain.OpenEventStatuses, projection.Status, &projection.Notes, at)
	if err != nil {
		logrus.WithError(err).Errorf("[FOLLOWUP] Could not sync event %s with task %s", task.EventID, task.ID)
		return nil, false
	}
	return event, mirrored
}

// PromoteDueEvents flips due SCHEDULED events to READY and notifies the
// assignee of each one. withoutTask skips events a task will resolve.
func (s *Scheduler) PromoteDueEvents(ctx context.Context, withoutTask bool) (int, error) {
	now := s.now()
	due, err := s.events.ListDueScheduled(ctx, now, withoutTask, EventBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list due events: %w", err)
	}

	promoted := 0
	for _, event := range due {
		ok, err := s.events.PromoteToReady(ctx, event.ID, now)
		if err != nil {
			logrus.WithError(err).Errorf("[FOLLOWUP] Could not promote event %s", event.ID)
			continue
		}
		if !ok {
			continue
		}
		event.Status = domain.EventReady
		event.ReadyAt = &now
		promoted++
		s.notifyManualEvent(ctx, event)
	}
	if promoted > 0 {
		logrus.Infof("[FOLLOWUP] %d follow-up event(s) ready for manual handling", promoted)
	}
	return promoted, nil
}

// ListEvents returns events for the operator list. Statuses default to the open ones.
func (s *Scheduler) ListEvents(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	if len(filter.Statuses) == 0 {
		filter.Statuses = domain.OpenEventStatuses
	}
	return s.events.List(ctx, filter)
}

func (s *Scheduler) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return s.events.GetByID(ctx, id)
}

// ListCustomerFollowUps returns every task and event recorded for a customer.
func (s *Scheduler) ListCustomerFollowUps(ctx context.Context, customerID string) ([]*domain.Task, []*domain.Event, error) {
	tasks, err := s.tasks.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}
	events, err := s.events.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}
	return tasks, events, nil
}

// UpdateEventStatus is the operator override. It never touches the task.
func (s *Scheduler) UpdateEventStatus(ctx context.Context, id string, status domain.EventStatus, notes *string) (*domain.Event, error) {
	if !status.ManualTarget() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidEventStatus, status)
	}
	event, err := s.events.SetStatus(ctx, id, status, notes, s.now())
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"event_id": id, "status": status}).Info("[FOLLOWUP] Event updated manually")
	return event, nil
}

func channelKinds(options []domain.DeliveryOption) []messagingDomain.ChannelKind {
	out := make([]messagingDomain.ChannelKind, 0, len(options))
	seen := make(map[messagingDomain.ChannelKind]bool, len(options))
	for _, opt := range options {
		if seen[opt.Channel] {
			continue
		}
		seen[opt.Channel] = true
		out = append(out, opt.Channel)
	}
	return out
}
