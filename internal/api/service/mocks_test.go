package service

import (
	"context"
	"time"

	"golang-sentiment-quant/internal/analytics"
	"golang-sentiment-quant/internal/api/dto"
	"golang-sentiment-quant/internal/api/repository"
	"golang-sentiment-quant/internal/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockSecurityRepository struct{ mock.Mock }

func (m *mockSecurityRepository) FindActive(ctx context.Context) ([]entity.Security, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Security), args.Error(1)
}

func (m *mockSecurityRepository) FindBySymbol(ctx context.Context, symbol string) (*entity.Security, error) {
	args := m.Called(ctx, symbol)
	if v := args.Get(0); v != nil {
		return v.(*entity.Security), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSecurityRepository) FindBySymbols(ctx context.Context, symbols []string) ([]entity.Security, error) {
	args := m.Called(ctx, symbols)
	return args.Get(0).([]entity.Security), args.Error(1)
}

type mockSentimentRepository struct{ mock.Mock }

func (m *mockSentimentRepository) FindScoresSince(ctx context.Context, securityIDs []uint, since time.Time) ([]entity.SentimentScore, error) {
	args := m.Called(ctx, securityIDs, since)
	return args.Get(0).([]entity.SentimentScore), args.Error(1)
}

func (m *mockSentimentRepository) FindRecentScores(ctx context.Context, securityID uint, limit int) ([]entity.SentimentScore, error) {
	args := m.Called(ctx, securityID, limit)
	return args.Get(0).([]entity.SentimentScore), args.Error(1)
}

func (m *mockSentimentRepository) FindDailyBetween(ctx context.Context, start, end time.Time) ([]entity.DailySentimentAggregate, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).([]entity.DailySentimentAggregate), args.Error(1)
}

func (m *mockSentimentRepository) FindDailyBySecurity(ctx context.Context, securityID uint, since time.Time) ([]entity.DailySentimentAggregate, error) {
	args := m.Called(ctx, securityID, since)
	return args.Get(0).([]entity.DailySentimentAggregate), args.Error(1)
}

type mockPortfolioRepository struct{ mock.Mock }

func (m *mockPortfolioRepository) FindHoldings(ctx context.Context, userID uint) ([]entity.Holding, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]entity.Holding), args.Error(1)
}

func (m *mockPortfolioRepository) CountHoldings(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPortfolioRepository) CommitRebalance(ctx context.Context, userID uint, writes []repository.HoldingWrite) error {
	return m.Called(ctx, userID, writes).Error(0)
}

func (m *mockPortfolioRepository) Initialize(ctx context.Context, userID uint, writes []repository.HoldingWrite) error {
	return m.Called(ctx, userID, writes).Error(0)
}

func (m *mockPortfolioRepository) FindTransactions(ctx context.Context, userID uint, limit int) ([]entity.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]entity.Transaction), args.Error(1)
}

func (m *mockPortfolioRepository) CountTransactions(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPortfolioRepository) InitialCapital(ctx context.Context, userID uint) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type mockBacktestRepository struct{ mock.Mock }

func (m *mockBacktestRepository) Create(ctx context.Context, result *entity.BacktestResult) error {
	return m.Called(ctx, result).Error(0)
}

func (m *mockBacktestRepository) FindByUser(ctx context.Context, userID uint, limit int) ([]entity.BacktestResult, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]entity.BacktestResult), args.Error(1)
}

func (m *mockBacktestRepository) FindByID(ctx context.Context, userID, id uint) (*entity.BacktestResult, error) {
	args := m.Called(ctx, userID, id)
	if v := args.Get(0); v != nil {
		return v.(*entity.BacktestResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBacktestRepository) Delete(ctx context.Context, userID, id uint) (bool, error) {
	args := m.Called(ctx, userID, id)
	return args.Bool(0), args.Error(1)
}

type mockSentimentService struct{ mock.Mock }

func (m *mockSentimentService) GetWSS(ctx context.Context, securityID uint, days int) (analytics.WSS, error) {
	args := m.Called(ctx, securityID, days)
	return args.Get(0).(analytics.WSS), args.Error(1)
}

func (m *mockSentimentService) GetAllSentiments(ctx context.Context) ([]analytics.Sentiment, error) {
	args := m.Called(ctx)
	return args.Get(0).([]analytics.Sentiment), args.Error(1)
}

func (m *mockSentimentService) GetSecuritySentiment(ctx context.Context, symbol string, days int) (*dto.SecuritySentimentResponse, error) {
	args := m.Called(ctx, symbol, days)
	if v := args.Get(0); v != nil {
		return v.(*dto.SecuritySentimentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSentimentService) GetHistory(ctx context.Context, symbol string, days int) (*dto.SentimentHistoryResponse, error) {
	args := m.Called(ctx, symbol, days)
	if v := args.Get(0); v != nil {
		return v.(*dto.SentimentHistoryResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, eventType string, data map[string]interface{}) error {
	return m.Called(ctx, eventType, data).Error(0)
}
