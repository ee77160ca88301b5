package repository

import (
	"context"
	"fmt"

	"golang-sentiment-quant/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArticleRepository defines the interface for news article persistence used by the ingestion jobs.
type ArticleRepository interface {
	ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error)
	CreateIgnoreConflict(ctx context.Context, articles []entity.Article) (int64, error)
	FindUnprocessed(ctx context.Context, limit int) ([]entity.Article, error)
	SaveScores(ctx context.Context, articleID uint, scores []entity.SentimentScore) error
}

// NewArticleRepository creates a new instance of ArticleRepository.
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

type articleRepository struct {
	db *gorm.DB
}

// ExistingURLs reports which of the given urls are already stored.
func (r *articleRepository) ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(urls) == 0 {
		return existing, nil
	}

	var found []string
	if err := r.db.WithContext(ctx).Model(&entity.Article{}).
		Where("url IN ?", urls).
		Pluck("url", &found).Error; err != nil {
		return nil, err
	}
	for _, u := range found {
		existing[u] = true
	}
	return existing, nil
}

// CreateIgnoreConflict inserts articles, skipping urls that already exist, and returns the inserted count.
func (r *articleRepository) CreateIgnoreConflict(ctx context.Context, articles []entity.Article) (int64, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoNothing: true,
	}).Create(&articles)
	return res.RowsAffected, res.Error
}

// FindUnprocessed returns the most recently scraped articles that have not been scored yet.
func (r *articleRepository) FindUnprocessed(ctx context.Context, limit int) ([]entity.Article, error) {
	var articles []entity.Article
	err := r.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("scraped_at DESC").
		Limit(limit).
		Find(&articles).Error
	return articles, err
}

// SaveScores stores the article's score rows and marks it processed in one transaction.
// An article that mentions no tracked security is still marked processed.
func (r *articleRepository) SaveScores(ctx context.Context, articleID uint, scores []entity.SentimentScore) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(scores) > 0 {
			for i := range scores {
				scores[i].ArticleID = articleID
			}
			if err := tx.Create(&scores).Error; err != nil {
				return fmt.Errorf("insert sentiment_scores error: %w", err)
			}
		}
		res := tx.Model(&entity.Article{}).Where("id = ?", articleID).Update("processed", true)
		if res.Error != nil {
			return fmt.Errorf("mark article processed error: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
