package repository

import (
	"context"

	"golang-sentiment-quant/internal/entity"

	"gorm.io/gorm"
)

// BacktestRepository defines data operations on stored backtest runs.
type BacktestRepository interface {
	Create(ctx context.Context, result *entity.BacktestResult) error
	FindByUser(ctx context.Context, userID uint, limit int) ([]entity.BacktestResult, error)
	FindByID(ctx context.Context, userID, id uint) (*entity.BacktestResult, error)
	Delete(ctx context.Context, userID, id uint) (bool, error)
}

// NewBacktestRepository creates a new GORM-based backtest repository.
func NewBacktestRepository(db *gorm.DB) BacktestRepository {
	return &backtestRepository{db: db}
}

type backtestRepository struct {
	db *gorm.DB
}

func (r *backtestRepository) Create(ctx context.Context, result *entity.BacktestResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

// FindByUser returns the user's newest runs.
func (r *backtestRepository) FindByUser(ctx context.Context, userID uint, limit int) ([]entity.BacktestResult, error) {
	var results []entity.BacktestResult
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// FindByID only returns runs owned by the user.
func (r *backtestRepository) FindByID(ctx context.Context, userID, id uint) (*entity.BacktestResult, error) {
	var result entity.BacktestResult
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a run owned by the user and reports whether one existed.
func (r *backtestRepository) Delete(ctx context.Context, userID, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&entity.BacktestResult{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
