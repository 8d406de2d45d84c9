package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AzielCF/az-crm/followup/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskGormRepository stores follow-up tasks. All transitions are
// compare-and-swap updates on the status column.
type TaskGormRepository struct {
	db *gorm.DB
}

func NewTaskGormRepository(db *gorm.DB) *TaskGormRepository {
	return &TaskGormRepository{db: db}
}

func (r *TaskGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&taskModel{})
}

func (r *TaskGormRepository) Create(ctx context.Context, task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	if task.Status == "" {
		task.Status = domain.TaskPending
	}

	model, err := toTaskModel(task)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *TaskGormRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var m taskModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return fromTaskModel(m)
}

func (r *TaskGormRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Task, error) {
	var models []taskModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return fromTaskModels(models)
}

// ListDue returns PENDING tasks due at now, oldest first.
func (r *TaskGormRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	var models []taskModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND execute_at <= ?", string(domain.TaskPending), now.UTC()).
		Order("execute_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return fromTaskModels(models)
}

func (r *TaskGormRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&taskModel{}).
		Where("id = ? AND status = ?", id, string(domain.TaskPending)).
		Updates(map[string]any{
			"status":     string(domain.TaskProcessing),
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": now.UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *TaskGormRepository) MarkSent(ctx context.Context, id string, optionIndex int, at time.Time) error {
	return r.finishProcessing(ctx, id, map[string]any{
		"status":                string(domain.TaskSent),
		"selected_option_index": optionIndex,
		"last_error":            "",
		"processed_at":          at.UTC(),
		"updated_at":            at.UTC(),
	})
}

func (r *TaskGormRepository) MarkFinished(ctx context.Context, id string, status domain.TaskStatus, reason string, at time.Time) error {
	if status != domain.TaskFailed && status != domain.TaskSkipped {
		return fmt.Errorf("mark finished: unexpected status %s", status)
	}
	return r.finishProcessing(ctx, id, map[string]any{
		"status":       string(status),
		"last_error":   reason,
		"processed_at": at.UTC(),
		"updated_at":   at.UTC(),
	})
}

func (r *TaskGormRepository) Requeue(ctx context.Context, id string, executeAt time.Time, reason string, at time.Time) error {
	return r.finishProcessing(ctx, id, map[string]any{
		"status":            string(domain.TaskPending),
		"execute_at":        executeAt.UTC(),
		"attempts":          gorm.Expr("CASE WHEN attempts > 0 THEN attempts - 1 ELSE 0 END"),
		"transient_retries": gorm.Expr("transient_retries + 1"),
		"last_error":        reason,
		"updated_at":        at.UTC(),
	})
}

func (r *TaskGormRepository) CancelPendingForCustomer(ctx context.Context, customerID, reason string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&taskModel{}).
		Where("customer_id = ? AND status = ?", customerID, string(domain.TaskPending)).
		Updates(map[string]any{
			"status":       string(domain.TaskCancelled),
			"last_error":   reason,
			"cancelled_at": at.UTC(),
			"updated_at":   at.UTC(),
		})
	return result.RowsAffected, result.Error
}

// finishProcessing applies updates only while the task is PROCESSING.
func (r *TaskGormRepository) finishProcessing(ctx context.Context, id string, updates map[string]any) error {
	result := r.db.WithContext(ctx).Model(&taskModel{}).
		Where("id = ? AND status = ?", id, string(domain.TaskProcessing)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task %s: %w", id, domain.ErrStaleTransition)
	}
	return nil
}

func fromTaskModels(models []taskModel) ([]*domain.Task, error) {
	out := make([]*domain.Task, 0, len(models))
	for _, m := range models {
		t, err := fromTaskModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
