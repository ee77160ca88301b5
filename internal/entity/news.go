package entity

import (
	"time"
)

// Article is a scraped news item. Only Processed changes after it has been scored.
type Article struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Source      string     `json:"source"`
	Title       string     `gorm:"not null" json:"title"`
	Content     string     `json:"content"`
	URL         string     `gorm:"unique;not null" json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ScrapedAt   time.Time  `gorm:"not null" json:"scraped_at"`
	Processed   bool       `gorm:"default:false;index" json:"processed"`
}

func (Article) TableName() string {
	return "news_articles"
}

// SentimentLabel is the discrete class assigned by the classifier.
type SentimentLabel string

const (
	LabelPositive SentimentLabel = "positive"
	LabelNegative SentimentLabel = "negative"
	LabelNeutral  SentimentLabel = "neutral"
)

// SentimentScore is one (article, mentioned security) score. Every row of an article shares its raw score.
type SentimentScore struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ArticleID  uint           `gorm:"not null;index" json:"article_id"`
	SecurityID uint           `gorm:"not null;index" json:"security_id"`
	Label      SentimentLabel `gorm:"column:sentiment;not null" json:"sentiment"`
	Confidence float64        `gorm:"not null" json:"confidence"`
	RawScore   float64        `gorm:"not null" json:"raw_score"`
	AnalyzedAt time.Time      `gorm:"not null;index" json:"analyzed_at"`

	Article *Article `gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE" json:"article,omitempty"`
}

func (SentimentScore) TableName() string {
	return "sentiment_scores"
}

// DailySentimentAggregate folds one day of scores for a security. Unique per (security_id, date).
type DailySentimentAggregate struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	SecurityID        uint      `gorm:"not null;uniqueIndex:idx_daily_security_date" json:"security_id"`
	Date              time.Time `gorm:"type:date;not null;uniqueIndex:idx_daily_security_date" json:"date"`
	AvgSentiment      float64   `json:"avg_sentiment"`
	WeightedSentiment float64   `json:"weighted_sentiment"`
	ArticleCount      int       `json:"article_count"`
	PositiveCount     int       `json:"positive_count"`
	NegativeCount     int       `json:"negative_count"`
	NeutralCount      int       `json:"neutral_count"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (DailySentimentAggregate) TableName() string {
	return "daily_sentiment"
}
