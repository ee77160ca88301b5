package repository

import (
	"context"

	"golang-sentiment-quant/internal/entity"

	"gorm.io/gorm"
)

// TaskExecutionHistoryRepository records the outcome of executed tasks.
type TaskExecutionHistoryRepository interface {
	MarkFinished(ctx context.Context, history *entity.TaskExecutionHistory) error
}

// NewTaskExecutionHistoryRepository creates a new GORM-based task execution history repository.
func NewTaskExecutionHistoryRepository(db *gorm.DB) TaskExecutionHistoryRepository {
	return &taskExecutionHistoryRepository{db: db}
}

type taskExecutionHistoryRepository struct {
	db *gorm.DB
}

// MarkFinished writes the terminal status, completion time, output and error of a run.
// The row written by the scheduler keeps its job, schedule and start time.
func (r *taskExecutionHistoryRepository) MarkFinished(ctx context.Context, history *entity.TaskExecutionHistory) error {
	result := r.db.WithContext(ctx).
		Model(&entity.TaskExecutionHistory{}).
		Where("id = ?", history.ID).
		Updates(map[string]interface{}{
			"status":        history.Status,
			"completed_at":  history.CompletedAt,
			"output":        history.Output,
			"error_message": history.ErrorMessage,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
