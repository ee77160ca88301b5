package repository

import (
	"context"
	"database/sql"
	"time"

	"golang-sentiment-quant/internal/entity"

	"gorm.io/gorm"
)

// TaskScheduleRepository persists cron schedules and their run bookkeeping.
type TaskScheduleRepository interface {
	Create(ctx context.Context, schedule *entity.TaskSchedule) error
	FindByID(ctx context.Context, id uint) (*entity.TaskSchedule, error)
	FindAll(ctx context.Context) ([]entity.TaskSchedule, error)
	UpdateDefinition(ctx context.Context, schedule *entity.TaskSchedule) error
	RecordRun(ctx context.Context, id uint, ranAt time.Time, next time.Time) error
	Deactivate(ctx context.Context, id uint, ranAt time.Time) error
	Delete(ctx context.Context, id uint) error
	FindDue(ctx context.Context, now time.Time) ([]entity.TaskSchedule, error)
}

// NewTaskScheduleRepository creates a new GORM-based task schedule repository.
func NewTaskScheduleRepository(db *gorm.DB) TaskScheduleRepository {
	return &taskScheduleRepository{db: db}
}

type taskScheduleRepository struct {
	db *gorm.DB
}

// Create creates a new task schedule.
func (r *taskScheduleRepository) Create(ctx context.Context, schedule *entity.TaskSchedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

// FindByID retrieves a task schedule by its ID.
func (r *taskScheduleRepository) FindByID(ctx context.Context, id uint) (*entity.TaskSchedule, error) {
	var schedule entity.TaskSchedule
	if err := r.db.WithContext(ctx).First(&schedule, id).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindAll retrieves all task schedules.
func (r *taskScheduleRepository) FindAll(ctx context.Context) ([]entity.TaskSchedule, error) {
	var schedules []entity.TaskSchedule
	if err := r.db.WithContext(ctx).Order("id asc").Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// UpdateDefinition writes the cron expression, active flag and next run of a schedule.
// The job it belongs to and its last run are left alone.
func (r *taskScheduleRepository) UpdateDefinition(ctx context.Context, schedule *entity.TaskSchedule) error {
	return r.updateColumns(ctx, schedule.ID, map[string]interface{}{
		"cron_expression": schedule.CronExpression,
		"is_active":       schedule.IsActive,
		"next_execution":  schedule.NextExecution,
	})
}

// RecordRun stamps a published run and moves the schedule to its next slot.
func (r *taskScheduleRepository) RecordRun(ctx context.Context, id uint, ranAt time.Time, next time.Time) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"last_execution": sql.NullTime{Time: ranAt, Valid: true},
		"next_execution": sql.NullTime{Time: next, Valid: true},
	})
}

// Deactivate stamps a published run and stops the schedule from firing again.
func (r *taskScheduleRepository) Deactivate(ctx context.Context, id uint, ranAt time.Time) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"last_execution": sql.NullTime{Time: ranAt, Valid: true},
		"is_active":      false,
	})
}

func (r *taskScheduleRepository) updateColumns(ctx context.Context, id uint, columns map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&entity.TaskSchedule{}).Where("id = ?", id).Updates(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a task schedule by its ID.
func (r *taskScheduleRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&entity.TaskSchedule{}, id).Error
}

// FindDue returns active schedules that never ran or whose next execution is due.
func (r *taskScheduleRepository) FindDue(ctx context.Context, now time.Time) ([]entity.TaskSchedule, error) {
	var schedules []entity.TaskSchedule
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND (next_execution IS NULL OR next_execution <= ?)", true, now).
		Order("id asc").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}
