package repository

import (
	"context"
	"database/sql"
	"time"

	"golang-sentiment-quant/internal/entity"

	"gorm.io/gorm"
)

// TaskExecutionHistoryRepository stores one row per enqueued run, scheduled or manual.
type TaskExecutionHistoryRepository interface {
	Create(ctx context.Context, history *entity.TaskExecutionHistory) error
	FindByID(ctx context.Context, id uint) (*entity.TaskExecutionHistory, error)
	FindAll(ctx context.Context, limit int) ([]entity.TaskExecutionHistory, error)
	FindAllByJobID(ctx context.Context, jobID uint, limit int) ([]entity.TaskExecutionHistory, error)
	MarkPublishFailed(ctx context.Context, id uint, failedAt time.Time, reason string) error
}

// NewTaskExecutionHistoryRepository creates a new GORM-based task execution history repository.
func NewTaskExecutionHistoryRepository(db *gorm.DB) TaskExecutionHistoryRepository {
	return &taskExecutionHistoryRepository{db: db}
}

type taskExecutionHistoryRepository struct {
	db *gorm.DB
}

// Create creates a new task execution history record.
func (r *taskExecutionHistoryRepository) Create(ctx context.Context, history *entity.TaskExecutionHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

// FindByID retrieves a task execution history record by its ID.
func (r *taskExecutionHistoryRepository) FindByID(ctx context.Context, id uint) (*entity.TaskExecutionHistory, error) {
	var history entity.TaskExecutionHistory
	if err := r.db.WithContext(ctx).First(&history, id).Error; err != nil {
		return nil, err
	}
	return &history, nil
}

// FindAll retrieves the most recent task execution history records.
func (r *taskExecutionHistoryRepository) FindAll(ctx context.Context, limit int) ([]entity.TaskExecutionHistory, error) {
	var histories []entity.TaskExecutionHistory
	if err := r.db.WithContext(ctx).Order("started_at desc, id desc").Limit(limit).Find(&histories).Error; err != nil {
		return nil, err
	}
	return histories, nil
}

// FindAllByJobID retrieves the most recent task execution history records for a specific job.
func (r *taskExecutionHistoryRepository) FindAllByJobID(ctx context.Context, jobID uint, limit int) ([]entity.TaskExecutionHistory, error) {
	var histories []entity.TaskExecutionHistory
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Order("started_at desc, id desc").Limit(limit).Find(&histories).Error; err != nil {
		return nil, err
	}
	return histories, nil
}

// MarkPublishFailed closes a run that never reached the stream.
func (r *taskExecutionHistoryRepository) MarkPublishFailed(ctx context.Context, id uint, failedAt time.Time, reason string) error {
	result := r.db.WithContext(ctx).
		Model(&entity.TaskExecutionHistory{}).
		Where("id = ? AND status = ?", id, entity.StatusRunning).
		Updates(map[string]interface{}{
			"status":        entity.StatusFailed,
			"completed_at":  sql.NullTime{Time: failedAt, Valid: true},
			"error_message": sql.NullString{String: reason, Valid: true},
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
