package dto

import (
	"time"

	"golang-sentiment-quant/internal/analytics"
)

// SentimentListResponse lists live sentiment for every active security.
type SentimentListResponse struct {
	Sentiments []analytics.Sentiment `json:"sentiments"`
	Total      int                   `json:"total"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

type SecuritySummary struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector,omitempty"`
}

// RecentScore is a scored article mention.
type RecentScore struct {
	Sentiment  string    `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	RawScore   float64   `json:"raw_score"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	Title      string    `json:"title"`
	URL        string    `json:"url,omitempty"`
}

// SecuritySentimentResponse is the WSS detail for one security.
type SecuritySentimentResponse struct {
	Stock        SecuritySummary  `json:"stock"`
	WSS          float64          `json:"wss"`
	ArticleCount int              `json:"article_count"`
	Signal       analytics.Signal `json:"signal"`
	Days         int              `json:"days"`
	RecentScores []RecentScore    `json:"recent_scores"`
}

type DailySentiment struct {
	Date              string  `json:"date"`
	AvgSentiment      float64 `json:"avg_sentiment"`
	WeightedSentiment float64 `json:"weighted_sentiment"`
	ArticleCount      int     `json:"article_count"`
	PositiveCount     int     `json:"positive_count"`
	NegativeCount     int     `json:"negative_count"`
	NeutralCount      int     `json:"neutral_count"`
}

// SentimentHistoryResponse holds the daily aggregates of one security.
type SentimentHistoryResponse struct {
	Symbol  string           `json:"symbol"`
	Days    int              `json:"days"`
	History []DailySentiment `json:"history"`
}
