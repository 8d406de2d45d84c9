package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	customerDomain "github.com/AzielCF/az-crm/customers/domain"
	"github.com/AzielCF/az-crm/core/database"
	"github.com/AzielCF/az-crm/followup/domain"
	messagingDomain "github.com/AzielCF/az-crm/messaging/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) (*TaskGormRepository, *EventGormRepository) {
	t.Helper()
	db, err := database.OpenInMemory("followup-" + uuid.NewString())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	tasks := NewTaskGormRepository(db)
	events := NewEventGormRepository(db)
	ctx := context.Background()
	if err := tasks.InitSchema(ctx); err != nil {
		t.Fatalf("failed to init tasks: %v", err)
	}
	if err := events.InitSchema(ctx); err != nil {
		t.Fatalf("failed to init events: %v", err)
	}
	return tasks, events
}

func newTask(customerID string, executeAt time.Time) *domain.Task {
	return &domain.Task{
		CustomerID:      customerID,
		ExecuteAt:       executeAt,
		TriggerStatus:   customerDomain.StatusNoAnswer,
		TemplateID:      domain.TemplateNoResponse24h,
		DeliveryOptions: domain.DeliveryOptionsFor(true, true),
		CreatedAt:       baseTime,
	}
}

func newEvent(customerID, assignee string, scheduledFor time.Time, status domain.EventStatus) *domain.Event {
	return &domain.Event{
		CustomerID:    customerID,
		Customer:      domain.CustomerSnapshot{FirstName: "Ana", AssignedTo: assignee},
		TriggerStatus: customerDomain.StatusNoAnswer,
		TemplateID:    domain.TemplateNoResponse24h,
		Message:       "Hola Ana",
		Channels:      []messagingDomain.ChannelKind{messagingDomain.ChannelWhatsAppAPI},
		ScheduledFor:  scheduledFor,
		Status:        status,
		CreatedAt:     baseTime,
	}
}

func TestTask_CreateAndGetRoundTrip(t *testing.T) {
	tasks, _ := setupTestDB(t)
	ctx := context.Background()

	task := newTask("cust-1", baseTime.Add(24*time.Hour))
	task.EventID = "evt-1"
	require.NoError(t, tasks.Create(ctx, task))
	require.NotEmpty(t, task.ID)

	got, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPending, got.Status)
	assert.Equal(t, "evt-1", got.EventID)
	assert.True(t, got.ExecuteAt.Equal(baseTime.Add(24*time.Hour)))
	assert.Equal(t, task.DeliveryOptions, got.DeliveryOptions)
	assert.Nil(t, got.SelectedOptionIndex)

	_, err = tasks.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTask_ListDueOrderAndLimit(t *testing.T) {
	tasks, _ := setupTestDB(t)
	ctx := context.Background()

	late := newTask("c1", baseTime.Add(-1*time.Minute))
	early := newTask("c2", baseTime.Add(-2*time.Hour))
	future := newTask("c3", baseTime.Add(time.Minute))
	exact := newTask("c4", baseTime)
	for _, task := range []*domain.Task{late, early, future, exact} {
		require.NoError(t, tasks.Create(ctx, task))
	}

	due, err := tasks.ListDue(ctx, baseTime, 20)
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, []string{early.ID, late.ID, exact.ID}, []string{due[0].ID, due[1].ID, due[2].ID})

	due, err = tasks.ListDue(ctx, baseTime, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, early.ID, due[0].ID)
}

func TestTask_ClaimOnlyOnce(t *testing.T) {
	tasks, _ := setupTestDB(t)
	ctx := context.Background()

	task := newTask("cust-1", baseTime)
	require.NoError(t, tasks.Create(ctx, task))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := tasks.Claim(ctx, task.ID, baseTime)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)

	got, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)

	due, err := tasks.ListDue(ctx, baseTime, 20)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestTask_RequeueRestoresAttempts(t *testing.T) {
	tasks, _ := setupTestDB(t)
	ctx := context.Background()

	task := newTask("cust-1", baseTime)
	require.NoError(t, tasks.Create(ctx, task))

	ok, err := tasks.Claim(ctx, task.ID, baseTime)
	require.NoError(t, err)
	require.True(t, ok)

	next := baseTime.Add(5 * time.Minute)
	require.NoError(t, tasks.Requeue(ctx, task.ID, next, "transport temporarily unavailable", baseTime))

	got, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPending, got.Status)
	assert.Equal(t, 0, got.Attempts)
	assert.Equal(t, 1, got.TransientRetries)
	assert.True(t, got.ExecuteAt.Equal(next))
	assert.Equal(t, "transport temporarily unavailable", got.LastError)
}

func TestTask_ResolveRequiresProcessing(t *testing.T) {
	tasks, _ := setupTestDB(t)
	ctx := context.Background()

	task := newTask("cust-1", baseTime)
	require.NoError(t, tasks.Create(ctx, task))

	err := tasks.MarkSent(ctx, task.ID, 0, baseTime)
	assert.ErrorIs(t, err, domain.ErrStaleTransition)

	_, err = tasks.Claim(ctx, task.ID, baseTime)
	require.NoError(t, err)
	require.NoError(t, tasks.MarkSent(ctx, task.ID, 1, baseTime))

	got, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskSent, got.Status)
	require.NotNil(t, got.SelectedOptionIndex)
	assert.Equal(t, 1, *got.SelectedOptionIndex)
	require.NotNil(t, got.ProcessedAt)

	assert.ErrorIs(t, tasks.MarkFinished(ctx, task.ID, domain.TaskFailed, "late", baseTime), domain.ErrStaleTransition)
	assert.Error(t, tasks.MarkFinished(ctx, task.ID, domain.TaskSent, "", baseTime))
}

func TestTask_CancelPendingForCustomer(t *testing.T) {
	tasks, _ := setupTestDB(t)
	ctx := context.Background()

	pending := newTask("cust-1", baseTime.Add(time.Hour))
	processing := newTask("cust-1", baseTime)
	other := newTask("cust-2", baseTime.Add(time.Hour))
	for _, task := range []*domain.Task{pending, processing, other} {
		require.NoError(t, tasks.Create(ctx, task))
	}
	_, err := tasks.Claim(ctx, processing.ID, baseTime)
	require.NoError(t, err)

	n, err := tasks.CancelPendingForCustomer(ctx, "cust-1", domain.ReasonStatusChanged, baseTime)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _ := tasks.GetByID(ctx, pending.ID)
	assert.Equal(t, domain.TaskCancelled, got.Status)
	assert.NotNil(t, got.CancelledAt)
	assert.Equal(t, domain.ReasonStatusChanged, got.LastError)

	got, _ = tasks.GetByID(ctx, processing.ID)
	assert.Equal(t, domain.TaskProcessing, got.Status)

	got, _ = tasks.GetByID(ctx, other.ID)
	assert.Equal(t, domain.TaskPending, got.Status)

	ok, err := tasks.Claim(ctx, pending.ID, baseTime.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "a cancelled task must not be claimable")
}

func TestEvent_ListFilters(t *testing.T) {
	_, events := setupTestDB(t)
	ctx := context.Background()

	e1 := newEvent("c1", "DENIS", baseTime.Add(2*time.Hour), domain.EventScheduled)
	e2 := newEvent("c2", "MARTIN", baseTime.Add(1*time.Hour), domain.EventReady)
	e3 := newEvent("c3", "DENIS", baseTime, domain.EventCompleted)
	e4 := newEvent("c4", "DENIS", baseTime.Add(-time.Hour), domain.EventReady)
	for _, e := range []*domain.Event{e1, e2, e3, e4} {
		require.NoError(t, events.Create(ctx, e))
	}

	open := []domain.EventStatus{domain.EventScheduled, domain.EventReady}

	got, err := events.List(ctx, domain.EventFilter{Statuses: open})
	require.NoError(t, err)
	assert.Equal(t, []string{e4.ID, e2.ID, e1.ID}, eventIDs(got))

	got, err = events.List(ctx, domain.EventFilter{Statuses: open, Assignee: "denis"})
	require.NoError(t, err)
	assert.Equal(t, []string{e4.ID, e1.ID}, eventIDs(got))

	got, err = events.List(ctx, domain.EventFilter{Statuses: open, Assignee: "ALL", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{e4.ID}, eventIDs(got))

	got, err = events.List(ctx, domain.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, []messagingDomain.ChannelKind{messagingDomain.ChannelWhatsAppAPI}, got[0].Channels)
}

func TestEvent_PromoteIsConditional(t *testing.T) {
	_, events := setupTestDB(t)
	ctx := context.Background()

	due := newEvent("c1", "DENIS", baseTime.Add(-time.Minute), domain.EventScheduled)
	notDue := newEvent("c2", "DENIS", baseTime.Add(time.Minute), domain.EventScheduled)
	ready := newEvent("c3", "DENIS", baseTime.Add(-time.Hour), domain.EventReady)
	for _, e := range []*domain.Event{due, notDue, ready} {
		require.NoError(t, events.Create(ctx, e))
	}

	list, err := events.ListDueScheduled(ctx, baseTime, false, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{due.ID}, eventIDs(list))

	require.NoError(t, events.LinkTask(ctx, due.ID, "task-1", baseTime))
	list, err = events.ListDueScheduled(ctx, baseTime, true, 50)
	require.NoError(t, err)
	assert.Empty(t, list)

	ok, err := events.PromoteToReady(ctx, due.ID, baseTime)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = events.PromoteToReady(ctx, due.ID, baseTime)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := events.GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventReady, got.Status)
	require.NotNil(t, got.ReadyAt)
	assert.True(t, got.ReadyAt.Equal(baseTime))
}

func TestEvent_SetStatusAndLink(t *testing.T) {
	_, events := setupTestDB(t)
	ctx := context.Background()

	e := newEvent("c1", "DENIS", baseTime, domain.EventReady)
	e.Notes = "original"
	require.NoError(t, events.Create(ctx, e))

	require.NoError(t, events.LinkTask(ctx, e.ID, "task-1", baseTime))
	assert.ErrorIs(t, events.LinkTask(ctx, "missing", "task-1", baseTime), domain.ErrEventNotFound)

	got, err := events.SetStatus(ctx, e.ID, domain.EventCompleted, nil, baseTime)
	require.NoError(t, err)
	assert.Equal(t, domain.EventCompleted, got.Status)
	assert.Equal(t, "original", got.Notes)
	assert.Equal(t, "task-1", got.TaskID)
	require.NotNil(t, got.CompletedAt)

	notes := "called by phone"
	got, err = events.SetStatus(ctx, e.ID, domain.EventCancelled, &notes, baseTime)
	require.NoError(t, err)
	assert.Equal(t, "called by phone", got.Notes)
	require.NotNil(t, got.CancelledAt)

	_, err = events.SetStatus(ctx, "missing", domain.EventReady, nil, baseTime)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	_, err = events.SetStatus(ctx, e.ID, "DONE", nil, baseTime)
	assert.ErrorIs(t, err, domain.ErrInvalidEventStatus)
}

func TestEvent_SetStatusFromIsConditional(t *testing.T) {
	_, events := setupTestDB(t)
	ctx := context.Background()

	e := newEvent("c1", "DENIS", baseTime, domain.EventScheduled)
	require.NoError(t, events.Create(ctx, e))

	n, err := events.CancelOpenForCustomer(ctx, "c1", domain.NoteStatusChanged, baseTime)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	notes := "Automatic send failed: recipient blocked"
	got, applied, err := events.SetStatusFrom(ctx, e.ID, domain.OpenEventStatuses, domain.EventReady, &notes, baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, applied)
	require.NotNil(t, got)
	assert.Equal(t, domain.EventCancelled, got.Status)
	assert.Equal(t, domain.NoteStatusChanged, got.Notes)
	assert.Nil(t, got.ReadyAt)

	open := newEvent("c2", "DENIS", baseTime, domain.EventScheduled)
	require.NoError(t, events.Create(ctx, open))
	got, applied, err = events.SetStatusFrom(ctx, open.ID, domain.OpenEventStatuses, domain.EventReady, &notes, baseTime)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, domain.EventReady, got.Status)
	assert.Equal(t, notes, got.Notes)

	_, _, err = events.SetStatusFrom(ctx, "missing", domain.OpenEventStatuses, domain.EventReady, nil, baseTime)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestEvent_CancelOpenForCustomer(t *testing.T) {
	_, events := setupTestDB(t)
	ctx := context.Background()

	scheduled := newEvent("c1", "DENIS", baseTime, domain.EventScheduled)
	ready := newEvent("c1", "DENIS", baseTime, domain.EventReady)
	completed := newEvent("c1", "DENIS", baseTime, domain.EventCompleted)
	other := newEvent("c2", "DENIS", baseTime, domain.EventScheduled)
	for _, e := range []*domain.Event{scheduled, ready, completed, other} {
		require.NoError(t, events.Create(ctx, e))
	}

	n, err := events.CancelOpenForCustomer(ctx, "c1", domain.NoteStatusChanged, baseTime)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := events.ListByCustomer(ctx, "c1")
	require.NoError(t, err)
	statuses := map[string]domain.EventStatus{}
	for _, e := range list {
		statuses[e.ID] = e.Status
	}
	assert.Equal(t, domain.EventCancelled, statuses[scheduled.ID])
	assert.Equal(t, domain.EventCancelled, statuses[ready.ID])
	assert.Equal(t, domain.EventCompleted, statuses[completed.ID])

	got, _ := events.GetByID(ctx, other.ID)
	assert.Equal(t, domain.EventScheduled, got.Status)
}

func eventIDs(events []*domain.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}
