package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-sentiment-quant/internal/analytics"
	"golang-sentiment-quant/internal/api/repository"
	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/pkg/common"
	"golang-sentiment-quant/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type portfolioFixture struct {
	portfolioRepo *mockPortfolioRepository
	securityRepo  *mockSecurityRepository
	sentimentSvc  *mockSentimentService
	publisher     *mockPublisher
	svc           *portfolioService
}

func newPortfolioFixture() *portfolioFixture {
	f := &portfolioFixture{
		portfolioRepo: new(mockPortfolioRepository),
		securityRepo:  new(mockSecurityRepository),
		sentimentSvc:  new(mockSentimentService),
		publisher:     new(mockPublisher),
	}
	f.svc = NewPortfolioService(f.portfolioRepo, f.securityRepo, f.sentimentSvc, f.publisher, nil,
		analytics.DefaultConfig(), logger.NewNop()).(*portfolioService)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func neutralSentiments(symbols ...string) []analytics.Sentiment {
	out := make([]analytics.Sentiment, 0, len(symbols))
	for i, s := range symbols {
		out = append(out, analytics.Sentiment{SecurityID: uint(i + 1), Symbol: s, Signal: analytics.SignalNeutral})
	}
	return out
}

func holding(id uint, symbol string, value float64) entity.Holding {
	return entity.Holding{
		UserID:       1,
		SecurityID:   id,
		CurrentValue: value,
		Security:     &entity.Security{ID: id, Symbol: symbol},
	}
}

func skewedHoldings() []entity.Holding {
	return []entity.Holding{
		holding(1, "A", 4500),
		holding(2, "B", 2500),
		holding(3, "C", 1500),
		holding(4, "D", 1500),
	}
}

func TestRebalanceDryRunDoesNotMutate(t *testing.T) {
	f := newPortfolioFixture()
	f.portfolioRepo.On("FindHoldings", mock.Anything, uint(1)).Return(skewedHoldings(), nil)
	f.sentimentSvc.On("GetAllSentiments", mock.Anything).Return(neutralSentiments("A", "B", "C", "D"), nil)

	resp, err := f.svc.Rebalance(context.Background(), 1, true)
	require.NoError(t, err)

	assert.True(t, resp.DryRun)
	assert.Empty(t, resp.Error)
	assert.InDelta(t, 10000, resp.PortfolioValue, 1e-9)
	require.Len(t, resp.Trades, 3)
	assert.Equal(t, "A", resp.Trades[0].Symbol)
	assert.Equal(t, "sell", resp.Trades[0].Type)
	assert.InDelta(t, 2000, resp.Trades[0].TradeValue, 1e-6)
	assert.Equal(t, "45.00%", resp.Trades[0].CurrentWeight)
	assert.Equal(t, "25.00%", resp.Trades[0].TargetWeight)
	assert.Equal(t, "buy", resp.Trades[1].Type)
	assert.Equal(t, "buy", resp.Trades[2].Type)

	f.portfolioRepo.AssertNotCalled(t, "CommitRebalance", mock.Anything, mock.Anything, mock.Anything)
	f.securityRepo.AssertNotCalled(t, "FindBySymbols", mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestRebalanceCommitsTrades(t *testing.T) {
	f := newPortfolioFixture()
	f.portfolioRepo.On("FindHoldings", mock.Anything, uint(1)).Return(skewedHoldings(), nil)
	f.sentimentSvc.On("GetAllSentiments", mock.Anything).Return(neutralSentiments("A", "B", "C", "D"), nil)
	f.securityRepo.On("FindBySymbols", mock.Anything, []string{"A", "C", "D"}).Return([]entity.Security{
		{ID: 1, Symbol: "A"}, {ID: 3, Symbol: "C"}, {ID: 4, Symbol: "D"},
	}, nil)

	var writes []repository.HoldingWrite
	f.portfolioRepo.On("CommitRebalance", mock.Anything, uint(1), mock.Anything).
		Run(func(args mock.Arguments) { writes = args.Get(2).([]repository.HoldingWrite) }).
		Return(nil)
	f.publisher.On("Publish", mock.Anything, common.EventRebalanced, mock.Anything).Return(nil)

	resp, err := f.svc.Rebalance(context.Background(), 1, false)
	require.NoError(t, err)
	assert.False(t, resp.DryRun)
	assert.Equal(t, "Rebalance executed", resp.Message)

	require.Len(t, writes, 3)
	sell := writes[0]
	assert.Equal(t, entity.TransactionSell, sell.Transaction.Type)
	assert.Equal(t, uint(1), sell.Transaction.SecurityID)
	assert.Equal(t, "Rebalance: WSS: 0.000 (neutral)", sell.Transaction.Reason)
	assert.True(t, sell.Transaction.TotalValue.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, fixedNow, sell.Transaction.ExecutedAt)
	assert.InDelta(t, 0.25, sell.Holding.Weight, 1e-12)
	assert.InDelta(t, 2500, sell.Holding.CurrentValue, 1e-9)

	for _, w := range writes[1:] {
		assert.Equal(t, entity.TransactionBuy, w.Transaction.Type)
		assert.InDelta(t, 0.25, w.Holding.Weight, 1e-12)
	}
	f.publisher.AssertExpectations(t)
}

func TestRebalanceCommitFailureSurfaces(t *testing.T) {
	f := newPortfolioFixture()
	f.portfolioRepo.On("FindHoldings", mock.Anything, uint(1)).Return(skewedHoldings(), nil)
	f.sentimentSvc.On("GetAllSentiments", mock.Anything).Return(neutralSentiments("A", "B", "C", "D"), nil)
	f.securityRepo.On("FindBySymbols", mock.Anything, mock.Anything).Return([]entity.Security{{ID: 1, Symbol: "A"}}, nil)
	f.portfolioRepo.On("CommitRebalance", mock.Anything, uint(1), mock.Anything).Return(errors.New("deadlock detected"))

	_, err := f.svc.Rebalance(context.Background(), 1, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestRebalanceEmptyPortfolio(t *testing.T) {
	f := newPortfolioFixture()
	f.portfolioRepo.On("FindHoldings", mock.Anything, uint(1)).Return([]entity.Holding{}, nil)
	f.sentimentSvc.On("GetAllSentiments", mock.Anything).Return(neutralSentiments("A", "B"), nil)

	resp, err := f.svc.Rebalance(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, analytics.ErrEmptyPortfolio, resp.Error)
	assert.Empty(t, resp.Trades)
	f.portfolioRepo.AssertNotCalled(t, "CommitRebalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestInitializePortfolio(t *testing.T) {
	f := newPortfolioFixture()
	f.portfolioRepo.On("CountHoldings", mock.Anything, uint(1)).Return(int64(0), nil)
	f.sentimentSvc.On("GetAllSentiments", mock.Anything).Return(neutralSentiments("A", "B", "C", "D"), nil)
	f.securityRepo.On("FindBySymbols", mock.Anything, []string{"A", "B", "C", "D"}).Return([]entity.Security{
		{ID: 1, Symbol: "A"}, {ID: 2, Symbol: "B"}, {ID: 3, Symbol: "C"}, {ID: 4, Symbol: "D"},
	}, nil)

	var writes []repository.HoldingWrite
	f.portfolioRepo.On("Initialize", mock.Anything, uint(1), mock.Anything).
		Run(func(args mock.Arguments) { writes = args.Get(2).([]repository.HoldingWrite) }).
		Return(nil)

	resp, err := f.svc.InitializePortfolio(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultInitialCapital, resp.InitialCapital)
	assert.Len(t, resp.Weights, 4)

	require.Len(t, writes, 4)
	var total float64
	for _, w := range writes {
		assert.Equal(t, entity.TransactionBuy, w.Transaction.Type)
		assert.Equal(t, "Initial portfolio allocation", w.Transaction.Reason)
		assert.Equal(t, fixedNow, w.Transaction.ExecutedAt)
		assert.InDelta(t, 2500, w.Holding.CurrentValue, 1e-9)
		total += w.Holding.Weight
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestInitializePortfolioRejectsExisting(t *testing.T) {
	f := newPortfolioFixture()
	f.portfolioRepo.On("CountHoldings", mock.Anything, uint(1)).Return(int64(2), nil)

	_, err := f.svc.InitializePortfolio(context.Background(), 1, 5000)
	assert.ErrorIs(t, err, ErrPortfolioExists)
	f.portfolioRepo.AssertNotCalled(t, "Initialize", mock.Anything, mock.Anything, mock.Anything)
}

func TestInitializePortfolioRejectsNegativeCapital(t *testing.T) {
	f := newPortfolioFixture()
	_, err := f.svc.InitializePortfolio(context.Background(), 1, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetPerformance(t *testing.T) {
	f := newPortfolioFixture()
	f.portfolioRepo.On("FindHoldings", mock.Anything, uint(1)).Return([]entity.Holding{
		holding(1, "A", 6000), holding(2, "B", 4500),
	}, nil)
	f.portfolioRepo.On("InitialCapital", mock.Anything, uint(1)).Return(decimal.NewFromInt(10000), nil)
	f.portfolioRepo.On("CountTransactions", mock.Anything, uint(1)).Return(int64(4), nil)

	resp, err := f.svc.GetPerformance(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 10500, resp.CurrentValue, 1e-9)
	assert.InDelta(t, 10000, resp.InitialValue, 1e-9)
	assert.InDelta(t, 5.0, resp.TotalReturn, 1e-9)
	assert.Equal(t, int64(4), resp.Transactions)
	assert.Equal(t, 2, resp.Holdings)
}

func TestGetTransactionsDefaultLimit(t *testing.T) {
	f := newPortfolioFixture()
	f.portfolioRepo.On("FindTransactions", mock.Anything, uint(1), 50).Return([]entity.Transaction{
		{ID: 7, Type: entity.TransactionBuy, Shares: 1, Price: decimal.NewFromFloat(2500), TotalValue: decimal.NewFromFloat(2500),
			Reason: "Initial portfolio allocation", Security: &entity.Security{Symbol: "A", Name: "Alpha"}},
	}, nil)

	txns, err := f.svc.GetTransactions(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "2500.0000", txns[0].Price)
	assert.Equal(t, "2500.00", txns[0].TotalValue)
	assert.Equal(t, "A", txns[0].Symbol)
}
