package service

import (
	"context"
	"testing"
	"time"

	"golang-sentiment-quant/internal/analytics"
	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestSentimentService(secRepo *mockSecurityRepository, sentRepo *mockSentimentRepository) *sentimentService {
	svc := NewSentimentService(secRepo, sentRepo, analytics.DefaultConfig(), logger.NewNop()).(*sentimentService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestGetAllSentimentsUsesOneBatchQuery(t *testing.T) {
	secRepo := new(mockSecurityRepository)
	sentRepo := new(mockSentimentRepository)
	svc := newTestSentimentService(secRepo, sentRepo)

	secRepo.On("FindActive", mock.Anything).Return([]entity.Security{
		{ID: 1, Symbol: "AAPL", Name: "Apple Inc."},
		{ID: 2, Symbol: "MSFT", Name: "Microsoft Corporation"},
	}, nil)
	sentRepo.On("FindScoresSince", mock.Anything, []uint{1, 2}, fixedNow.AddDate(0, 0, -7)).Return([]entity.SentimentScore{
		{SecurityID: 1, RawScore: 0.6, AnalyzedAt: fixedNow.Add(-2 * time.Hour)},
	}, nil).Once()

	sentiments, err := svc.GetAllSentiments(context.Background())
	require.NoError(t, err)
	require.Len(t, sentiments, 2)

	assert.Equal(t, "AAPL", sentiments[0].Symbol)
	assert.InDelta(t, 0.6, sentiments[0].WSS, 1e-12)
	assert.Equal(t, 1, sentiments[0].ArticleCount)
	assert.Equal(t, analytics.SignalBullish, sentiments[0].Signal)

	assert.Equal(t, "MSFT", sentiments[1].Symbol)
	assert.Equal(t, 0.0, sentiments[1].WSS)
	assert.Equal(t, analytics.SignalNeutral, sentiments[1].Signal)

	sentRepo.AssertNumberOfCalls(t, "FindScoresSince", 1)
}

func TestGetWSSWithoutScores(t *testing.T) {
	sentRepo := new(mockSentimentRepository)
	svc := newTestSentimentService(new(mockSecurityRepository), sentRepo)

	sentRepo.On("FindScoresSince", mock.Anything, []uint{9}, fixedNow.AddDate(0, 0, -3)).Return([]entity.SentimentScore{}, nil)

	wss, err := svc.GetWSS(context.Background(), 9, 3)
	require.NoError(t, err)
	assert.Equal(t, analytics.WSS{}, wss)
}

func TestGetSecuritySentiment(t *testing.T) {
	secRepo := new(mockSecurityRepository)
	sentRepo := new(mockSentimentRepository)
	svc := newTestSentimentService(secRepo, sentRepo)

	secRepo.On("FindBySymbol", mock.Anything, "NVDA").Return(&entity.Security{ID: 3, Symbol: "NVDA", Name: "NVIDIA Corporation", Sector: "Technology"}, nil)
	sentRepo.On("FindScoresSince", mock.Anything, []uint{3}, mock.Anything).Return([]entity.SentimentScore{
		{SecurityID: 3, RawScore: -0.4, AnalyzedAt: fixedNow.Add(-time.Hour)},
	}, nil)
	sentRepo.On("FindRecentScores", mock.Anything, uint(3), 20).Return([]entity.SentimentScore{
		{SecurityID: 3, Label: entity.LabelNegative, Confidence: 0.8, RawScore: -0.4, AnalyzedAt: fixedNow.Add(-time.Hour),
			Article: &entity.Article{Title: "Chip export limits widen", URL: "https://example.com/a"}},
	}, nil)

	resp, err := svc.GetSecuritySentiment(context.Background(), " nvda ", 0)
	require.NoError(t, err)
	assert.Equal(t, "NVDA", resp.Stock.Symbol)
	assert.Equal(t, 7, resp.Days)
	assert.InDelta(t, -0.4, resp.WSS, 1e-12)
	assert.Equal(t, analytics.SignalBearish, resp.Signal)
	require.Len(t, resp.RecentScores, 1)
	assert.Equal(t, "Chip export limits widen", resp.RecentScores[0].Title)
	assert.Equal(t, "negative", resp.RecentScores[0].Sentiment)
}

func TestGetSecuritySentimentUnknownSymbol(t *testing.T) {
	secRepo := new(mockSecurityRepository)
	svc := newTestSentimentService(secRepo, new(mockSentimentRepository))

	secRepo.On("FindBySymbol", mock.Anything, "ZZZ").Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.GetSecuritySentiment(context.Background(), "zzz", 7)
	assert.ErrorIs(t, err, ErrSecurityNotFound)
}

func TestGetHistoryDefaultsToThirtyDays(t *testing.T) {
	secRepo := new(mockSecurityRepository)
	sentRepo := new(mockSentimentRepository)
	svc := newTestSentimentService(secRepo, sentRepo)

	secRepo.On("FindBySymbol", mock.Anything, "TSLA").Return(&entity.Security{ID: 4, Symbol: "TSLA"}, nil)
	since := time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)
	sentRepo.On("FindDailyBySecurity", mock.Anything, uint(4), since).Return([]entity.DailySentimentAggregate{
		{SecurityID: 4, Date: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), AvgSentiment: 0.2, WeightedSentiment: 0.2, ArticleCount: 2, PositiveCount: 1, NeutralCount: 1},
	}, nil)

	resp, err := svc.GetHistory(context.Background(), "TSLA", 0)
	require.NoError(t, err)
	assert.Equal(t, 30, resp.Days)
	require.Len(t, resp.History, 1)
	assert.Equal(t, "2024-03-09", resp.History[0].Date)
	assert.Equal(t, 2, resp.History[0].ArticleCount)
}
