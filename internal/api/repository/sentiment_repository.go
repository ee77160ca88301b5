package repository

import (
	"context"
	"time"

	"golang-sentiment-quant/internal/entity"

	"gorm.io/gorm"
)

// SentimentRepository defines read access to scores and daily aggregates.
type SentimentRepository interface {
	FindScoresSince(ctx context.Context, securityIDs []uint, since time.Time) ([]entity.SentimentScore, error)
	FindRecentScores(ctx context.Context, securityID uint, limit int) ([]entity.SentimentScore, error)
	FindDailyBetween(ctx context.Context, start, end time.Time) ([]entity.DailySentimentAggregate, error)
	FindDailyBySecurity(ctx context.Context, securityID uint, since time.Time) ([]entity.DailySentimentAggregate, error)
}

// NewSentimentRepository creates a new GORM-based sentiment repository.
func NewSentimentRepository(db *gorm.DB) SentimentRepository {
	return &sentimentRepository{db: db}
}

type sentimentRepository struct {
	db *gorm.DB
}

// FindScoresSince fetches the scores of all given securities in a single query.
func (r *sentimentRepository) FindScoresSince(ctx context.Context, securityIDs []uint, since time.Time) ([]entity.SentimentScore, error) {
	if len(securityIDs) == 0 {
		return nil, nil
	}
	var scores []entity.SentimentScore
	err := r.db.WithContext(ctx).
		Where("security_id IN ? AND analyzed_at >= ?", securityIDs, since.UTC()).
		Find(&scores).Error
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// FindRecentScores returns the newest scores of a security with their articles.
func (r *sentimentRepository) FindRecentScores(ctx context.Context, securityID uint, limit int) ([]entity.SentimentScore, error) {
	var scores []entity.SentimentScore
	err := r.db.WithContext(ctx).
		Preload("Article").
		Where("security_id = ?", securityID).
		Order("analyzed_at desc").
		Limit(limit).
		Find(&scores).Error
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// FindDailyBetween returns every aggregate dated within [start, end].
func (r *sentimentRepository) FindDailyBetween(ctx context.Context, start, end time.Time) ([]entity.DailySentimentAggregate, error) {
	var rows []entity.DailySentimentAggregate
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", start.UTC(), end.UTC()).
		Order("date asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindDailyBySecurity returns a security's aggregates from since onwards, oldest first.
func (r *sentimentRepository) FindDailyBySecurity(ctx context.Context, securityID uint, since time.Time) ([]entity.DailySentimentAggregate, error) {
	var rows []entity.DailySentimentAggregate
	err := r.db.WithContext(ctx).
		Where("security_id = ? AND date >= ?", securityID, since.UTC()).
		Order("date asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
