package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang-sentiment-quant/internal/analytics"
	"golang-sentiment-quant/internal/api/dto"
	"golang-sentiment-quant/internal/api/repository"
	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/utils"

	"gorm.io/gorm"
)

const recentScoresLimit = 20

// SentimentService exposes the WSS aggregator to callers.
type SentimentService interface {
	GetWSS(ctx context.Context, securityID uint, days int) (analytics.WSS, error)
	GetAllSentiments(ctx context.Context) ([]analytics.Sentiment, error)
	GetSecuritySentiment(ctx context.Context, symbol string, days int) (*dto.SecuritySentimentResponse, error)
	GetHistory(ctx context.Context, symbol string, days int) (*dto.SentimentHistoryResponse, error)
}

// NewSentimentService creates a new sentiment service.
func NewSentimentService(
	securityRepo repository.SecurityRepository,
	sentimentRepo repository.SentimentRepository,
	cfg analytics.Config,
	log *logger.Logger,
) SentimentService {
	return &sentimentService{
		securityRepo:  securityRepo,
		sentimentRepo: sentimentRepo,
		cfg:           cfg,
		logger:        log,
		now:           utils.NowUTC,
	}
}

type sentimentService struct {
	securityRepo  repository.SecurityRepository
	sentimentRepo repository.SentimentRepository
	cfg           analytics.Config
	logger        *logger.Logger
	now           func() time.Time
}

func (s *sentimentService) lookback(days int) int {
	if days <= 0 {
		return s.cfg.LookbackDays
	}
	return days
}

// GetWSS computes the weighted sentiment score of an already resolved security.
func (s *sentimentService) GetWSS(ctx context.Context, securityID uint, days int) (analytics.WSS, error) {
	days = s.lookback(days)
	now := s.now()
	rows, err := s.sentimentRepo.FindScoresSince(ctx, []uint{securityID}, now.AddDate(0, 0, -days))
	if err != nil {
		return analytics.WSS{}, fmt.Errorf("failed to load sentiment scores: %w", err)
	}
	return analytics.ComputeWSS(toScorePoints(rows), now, days), nil
}

// GetAllSentiments computes WSS for every active security from one batch query.
func (s *sentimentService) GetAllSentiments(ctx context.Context) ([]analytics.Sentiment, error) {
	securities, err := s.securityRepo.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load securities: %w", err)
	}

	refs := make([]analytics.SecurityRef, 0, len(securities))
	ids := make([]uint, 0, len(securities))
	for _, sec := range securities {
		refs = append(refs, analytics.SecurityRef{ID: sec.ID, Symbol: sec.Symbol, Name: sec.Name})
		ids = append(ids, sec.ID)
	}

	days := s.cfg.LookbackDays
	now := s.now()
	rows, err := s.sentimentRepo.FindScoresSince(ctx, ids, now.AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("failed to load sentiment scores: %w", err)
	}

	sentiments := analytics.BuildSentiments(refs, toScorePoints(rows), now, days)
	s.logger.Debug("Computed sentiments", logger.IntField("securities", len(sentiments)), logger.IntField("scores", len(rows)))
	return sentiments, nil
}

// GetSecuritySentiment returns WSS plus the most recent scored mentions of one security.
func (s *sentimentService) GetSecuritySentiment(ctx context.Context, symbol string, days int) (*dto.SecuritySentimentResponse, error) {
	sec, err := s.findSecurity(ctx, symbol)
	if err != nil {
		return nil, err
	}
	days = s.lookback(days)

	wss, err := s.GetWSS(ctx, sec.ID, days)
	if err != nil {
		return nil, err
	}

	rows, err := s.sentimentRepo.FindRecentScores(ctx, sec.ID, recentScoresLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent scores: %w", err)
	}
	recent := make([]dto.RecentScore, 0, len(rows))
	for _, r := range rows {
		item := dto.RecentScore{
			Sentiment:  string(r.Label),
			Confidence: r.Confidence,
			RawScore:   r.RawScore,
			AnalyzedAt: r.AnalyzedAt,
		}
		if r.Article != nil {
			item.Title = r.Article.Title
			item.URL = r.Article.URL
		}
		recent = append(recent, item)
	}

	return &dto.SecuritySentimentResponse{
		Stock:        dto.SecuritySummary{Symbol: sec.Symbol, Name: sec.Name, Sector: sec.Sector},
		WSS:          wss.WSS,
		ArticleCount: wss.ArticleCount,
		Signal:       analytics.SignalFor(wss.WSS),
		Days:         days,
		RecentScores: recent,
	}, nil
}

// GetHistory returns the daily aggregates of one security over the last days days (default 30).
func (s *sentimentService) GetHistory(ctx context.Context, symbol string, days int) (*dto.SentimentHistoryResponse, error) {
	sec, err := s.findSecurity(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 30
	}

	since := utils.StartOfDay(s.now()).AddDate(0, 0, -days)
	rows, err := s.sentimentRepo.FindDailyBySecurity(ctx, sec.ID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentiment history: %w", err)
	}

	history := make([]dto.DailySentiment, 0, len(rows))
	for _, r := range rows {
		history = append(history, dto.DailySentiment{
			Date:              utils.FormatDate(r.Date),
			AvgSentiment:      r.AvgSentiment,
			WeightedSentiment: r.WeightedSentiment,
			ArticleCount:      r.ArticleCount,
			PositiveCount:     r.PositiveCount,
			NegativeCount:     r.NegativeCount,
			NeutralCount:      r.NeutralCount,
		})
	}
	return &dto.SentimentHistoryResponse{Symbol: sec.Symbol, Days: days, History: history}, nil
}

func (s *sentimentService) findSecurity(ctx context.Context, symbol string) (*entity.Security, error) {
	sec, err := s.securityRepo.FindBySymbol(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSecurityNotFound
		}
		return nil, fmt.Errorf("failed to load security: %w", err)
	}
	return sec, nil
}

func toScorePoints(rows []entity.SentimentScore) []analytics.ScorePoint {
	points := make([]analytics.ScorePoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, analytics.ScorePoint{
			SecurityID: r.SecurityID,
			RawScore:   r.RawScore,
			AnalyzedAt: r.AnalyzedAt,
		})
	}
	return points
}
