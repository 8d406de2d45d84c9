package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AzielCF/az-crm/followup/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventGormRepository struct {
	db *gorm.DB
}

func NewEventGormRepository(db *gorm.DB) *EventGormRepository {
	return &EventGormRepository{db: db}
}

func (r *EventGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&eventModel{})
}

func (r *EventGormRepository) Create(ctx context.Context, event *domain.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = event.CreatedAt
	}
	if event.Status == "" {
		event.Status = domain.EventScheduled
	}

	model, err := toEventModel(event)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *EventGormRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var m eventModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return fromEventModel(m)
}

// List returns events matching filter, earliest scheduled first.
func (r *EventGormRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	query := r.db.WithContext(ctx).Model(&eventModel{})

	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", eventStatusStrings(filter.Statuses))
	}

	if assignee := strings.ToUpper(strings.TrimSpace(filter.Assignee)); assignee != "" && assignee != "ALL" {
		query = query.Where("customer_assigned_to = ?", assignee)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultEventListLimit
	}
	if limit > domain.MaxEventListLimit {
		limit = domain.MaxEventListLimit
	}

	var models []eventModel
	if err := query.Order("scheduled_for ASC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	return fromEventModels(models)
}

func (r *EventGormRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Event, error) {
	var models []eventModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return fromEventModels(models)
}

func (r *EventGormRepository) ListDueScheduled(ctx context.Context, now time.Time, withoutTask bool, limit int) ([]*domain.Event, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", string(domain.EventScheduled), now.UTC())
	if withoutTask {
		query = query.Where("(follow_up_task_id = '' OR follow_up_task_id IS NULL)")
	}

	var models []eventModel
	if err := query.
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return fromEventModels(models)
}

func (r *EventGormRepository) LinkTask(ctx context.Context, eventID, taskID string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&eventModel{}).
		Where("id = ?", eventID).
		Updates(map[string]any{
			"follow_up_task_id": taskID,
			"updated_at":        at.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *EventGormRepository) PromoteToReady(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&eventModel{}).
		Where("id = ? AND status = ?", id, string(domain.EventScheduled)).
		Updates(map[string]any{
			"status":     string(domain.EventReady),
			"ready_at":   at.UTC(),
			"updated_at": at.UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *EventGormRepository) SetStatus(ctx context.Context, id string, status domain.EventStatus, notes *string, at time.Time) (*domain.Event, error) {
	event, applied, err := r.applyStatus(ctx, id, nil, status, notes, at)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}

// SetStatusFrom applies status only while the event is in one of from.
// applied is false, with the stored event, when it already moved on.
func (r *EventGormRepository) SetStatusFrom(ctx context.Context, id string, from []domain.EventStatus, status domain.EventStatus, notes *string, at time.Time) (*domain.Event, bool, error) {
	if len(from) == 0 {
		return nil, false, fmt.Errorf("set status from: empty source statuses")
	}
	event, applied, err := r.applyStatus(ctx, id, from, status, notes, at)
	if err != nil || applied {
		return event, applied, err
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (r *EventGormRepository) applyStatus(ctx context.Context, id string, from []domain.EventStatus, status domain.EventStatus, notes *string, at time.Time) (*domain.Event, bool, error) {
	if !status.Valid() {
		return nil, false, fmt.Errorf("%w: %s", domain.ErrInvalidEventStatus, status)
	}

	updates := map[string]any{
		"status":     string(status),
		"updated_at": at.UTC(),
	}
	switch status {
	case domain.EventReady:
		updates["ready_at"] = at.UTC()
	case domain.EventCompleted:
		updates["completed_at"] = at.UTC()
	case domain.EventCancelled:
		updates["cancelled_at"] = at.UTC()
	}
	if notes != nil {
		updates["notes"] = *notes
	}

	query := r.db.WithContext(ctx).Model(&eventModel{}).Where("id = ?", id)
	if len(from) > 0 {
		query = query.Where("status IN ?", eventStatusStrings(from))
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}
	event, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return event, true, nil
}

func (r *EventGormRepository) CancelOpenForCustomer(ctx context.Context, customerID, notes string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&eventModel{}).
		Where("customer_id = ? AND status IN ?", customerID, eventStatusStrings(domain.OpenEventStatuses)).
		Updates(map[string]any{
			"status":       string(domain.EventCancelled),
			"cancelled_at": at.UTC(),
			"notes":        notes,
			"updated_at":   at.UTC(),
		})
	return result.RowsAffected, result.Error
}

func fromEventModels(models []eventModel) ([]*domain.Event, error) {
	out := make([]*domain.Event, 0, len(models))
	for _, m := range models {
		e, err := fromEventModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func eventStatusStrings(statuses []domain.EventStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, string(st))
	}
	return out
}
