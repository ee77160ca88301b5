package repository

import (
	"context"
	"fmt"
	"time"

	"golang-sentiment-quant/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyMover is a daily aggregate joined with its security, used for alerting.
type DailyMover struct {
	SecurityID        uint
	Symbol            string
	Name              string
	WeightedSentiment float64
	ArticleCount      int
}

// SentimentRepository defines the score and daily aggregate operations of the ingestion jobs.
type SentimentRepository interface {
	FindScoresBetween(ctx context.Context, from, to time.Time) ([]entity.SentimentScore, error)
	UpsertDaily(ctx context.Context, rows []entity.DailySentimentAggregate) error
	FindMovers(ctx context.Context, date time.Time, threshold float64) ([]DailyMover, error)
}

// NewSentimentRepository creates a new GORM-based sentiment repository.
func NewSentimentRepository(db *gorm.DB) SentimentRepository {
	return &sentimentRepository{db: db}
}

type sentimentRepository struct {
	db *gorm.DB
}

// FindScoresBetween returns the scores analyzed in [from, to).
func (r *sentimentRepository) FindScoresBetween(ctx context.Context, from, to time.Time) ([]entity.SentimentScore, error) {
	var scores []entity.SentimentScore
	err := r.db.WithContext(ctx).
		Where("analyzed_at >= ? AND analyzed_at < ?", from.UTC(), to.UTC()).
		Order("security_id asc").
		Find(&scores).Error
	return scores, err
}

// UpsertDaily writes each aggregate with its own statement so readers never see a half-applied day.
func (r *sentimentRepository) UpsertDaily(ctx context.Context, rows []entity.DailySentimentAggregate) error {
	for i := range rows {
		err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "security_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"avg_sentiment", "weighted_sentiment", "article_count",
				"positive_count", "negative_count", "neutral_count",
			}),
		}).Create(&rows[i]).Error
		if err != nil {
			return fmt.Errorf("upsert daily sentiment for security %d: %w", rows[i].SecurityID, err)
		}
	}
	return nil
}

// FindMovers returns the securities whose weighted sentiment on date exceeds threshold in magnitude.
func (r *sentimentRepository) FindMovers(ctx context.Context, date time.Time, threshold float64) ([]DailyMover, error) {
	var movers []DailyMover
	err := r.db.WithContext(ctx).
		Table("daily_sentiment AS d").
		Select("d.security_id, s.symbol, s.name, d.weighted_sentiment, d.article_count").
		Joins("JOIN securities s ON s.id = d.security_id").
		Where("d.date = ? AND ABS(d.weighted_sentiment) > ?", date.UTC(), threshold).
		Order("s.symbol asc").
		Scan(&movers).Error
	return movers, err
}
