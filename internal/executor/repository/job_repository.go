package repository

import (
	"context"

	"golang-sentiment-quant/internal/entity"

	"gorm.io/gorm"
)

// JobRepository loads the jobs referenced by queued tasks.
type JobRepository interface {
	FindForExecution(ctx context.Context, id uint) (*entity.Job, error)
}

// NewJobRepository creates a new GORM-based job repository.
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

type jobRepository struct {
	db *gorm.DB
}

// FindForExecution loads the columns a strategy needs. Schedules are not preloaded.
// A missing job yields gorm.ErrRecordNotFound.
func (r *jobRepository) FindForExecution(ctx context.Context, id uint) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).
		Select("id", "name", "type", "payload", "timeout").
		Where("id = ?", id).
		Take(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}
