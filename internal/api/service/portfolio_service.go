package service

import (
	"context"
	"fmt"
	"time"

	"golang-sentiment-quant/internal/analytics"
	"golang-sentiment-quant/internal/api/dto"
	"golang-sentiment-quant/internal/api/repository"
	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/pkg/common"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/metrics"
	"golang-sentiment-quant/pkg/utils"

	"github.com/shopspring/decimal"
)

const (
	DefaultInitialCapital   = 10000.0
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500

	initialAllocationReason = "Initial portfolio allocation"
)

// PortfolioService drives target weights, rebalancing and the ledger of one user.
type PortfolioService interface {
	GetPortfolio(ctx context.Context, userID uint) (*dto.PortfolioResponse, error)
	InitializePortfolio(ctx context.Context, userID uint, capital float64) (*dto.InitializeResponse, error)
	Rebalance(ctx context.Context, userID uint, dryRun bool) (*dto.RebalanceResponse, error)
	GetPerformance(ctx context.Context, userID uint) (*dto.PerformanceResponse, error)
	GetTransactions(ctx context.Context, userID uint, limit int) ([]dto.TransactionResponse, error)
}

// NewPortfolioService creates a new portfolio service.
func NewPortfolioService(
	portfolioRepo repository.PortfolioRepository,
	securityRepo repository.SecurityRepository,
	sentimentSvc SentimentService,
	publisher common.Publisher,
	registry *metrics.Registry,
	cfg analytics.Config,
	log *logger.Logger,
) PortfolioService {
	if publisher == nil {
		publisher = common.NopPublisher{}
	}
	return &portfolioService{
		portfolioRepo: portfolioRepo,
		securityRepo:  securityRepo,
		sentimentSvc:  sentimentSvc,
		publisher:     publisher,
		metrics:       registry,
		cfg:           cfg,
		logger:        log,
		now:           utils.NowUTC,
	}
}

type portfolioService struct {
	portfolioRepo repository.PortfolioRepository
	securityRepo  repository.SecurityRepository
	sentimentSvc  SentimentService
	publisher     common.Publisher
	metrics       *metrics.Registry
	cfg           analytics.Config
	logger        *logger.Logger
	now           func() time.Time
}

// GetPortfolio lists the user's holdings with their stored sentiment signal.
func (s *portfolioService) GetPortfolio(ctx context.Context, userID uint) (*dto.PortfolioResponse, error) {
	holdings, err := s.portfolioRepo.FindHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	resp := &dto.PortfolioResponse{Holdings: make([]dto.HoldingResponse, 0, len(holdings))}
	var lastUpdated time.Time
	for _, h := range holdings {
		item := dto.HoldingResponse{
			Shares:         h.Shares,
			CurrentValue:   h.CurrentValue,
			Weight:         h.Weight * 100,
			SentimentScore: h.SentimentScore,
			Signal:         analytics.SignalFor(h.SentimentScore),
		}
		if h.Security != nil {
			item.Symbol = h.Security.Symbol
			item.Name = h.Security.Name
		}
		resp.Holdings = append(resp.Holdings, item)
		resp.Summary.TotalValue += h.CurrentValue
		if h.UpdatedAt.After(lastUpdated) {
			lastUpdated = h.UpdatedAt
		}
	}
	resp.Summary.HoldingsCount = len(holdings)
	if !lastUpdated.IsZero() {
		resp.Summary.LastUpdated = &lastUpdated
	}
	return resp, nil
}

// InitializePortfolio allocates capital across the target weights. A user that already holds positions is rejected.
func (s *portfolioService) InitializePortfolio(ctx context.Context, userID uint, capital float64) (*dto.InitializeResponse, error) {
	if capital < 0 {
		return nil, fmt.Errorf("%w: initial capital must be positive", ErrInvalidInput)
	}
	if capital == 0 {
		capital = DefaultInitialCapital
	}

	count, err := s.portfolioRepo.CountHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count holdings: %w", err)
	}
	if count > 0 {
		return nil, ErrPortfolioExists
	}

	sentiments, err := s.sentimentSvc.GetAllSentiments(ctx)
	if err != nil {
		return nil, err
	}
	weights := analytics.CalculateTargetWeights(sentiments, s.cfg)

	symbols := make([]string, 0, len(sentiments))
	for _, sent := range sentiments {
		symbols = append(symbols, sent.Symbol)
	}
	ids, err := s.resolveSymbols(ctx, symbols)
	if err != nil {
		return nil, err
	}

	executedAt := s.now()
	writes := make([]repository.HoldingWrite, 0, len(weights))
	for _, sent := range sentiments {
		weight, ok := weights[sent.Symbol]
		if !ok {
			continue
		}
		securityID, ok := ids[sent.Symbol]
		if !ok {
			s.logger.Warn("Skipping unknown security during initialization", logger.StringField("symbol", sent.Symbol))
			continue
		}
		value := capital * weight
		price := analytics.ApproximatePrice(value)
		writes = append(writes, repository.HoldingWrite{
			Transaction: entity.Transaction{
				UserID:     userID,
				SecurityID: securityID,
				Type:       entity.TransactionBuy,
				Shares:     value / price,
				Price:      decimal.NewFromFloat(price).Round(4),
				TotalValue: decimal.NewFromFloat(value).Round(2),
				Reason:     initialAllocationReason,
				ExecutedAt: executedAt,
			},
			Holding: entity.Holding{
				UserID:         userID,
				SecurityID:     securityID,
				Shares:         value / price,
				CurrentValue:   value,
				Weight:         weight,
				SentimentScore: sent.WSS,
			},
		})
	}

	if err := s.portfolioRepo.Initialize(ctx, userID, writes); err != nil {
		return nil, fmt.Errorf("failed to initialize portfolio: %w", err)
	}

	s.logger.Info("Portfolio initialized",
		logger.Field("user_id", userID),
		logger.Float64Field("initial_capital", capital),
		logger.IntField("holdings", len(writes)))

	return &dto.InitializeResponse{
		Message:        "Portfolio initialized",
		InitialCapital: capital,
		Weights:        weights,
	}, nil
}

// Rebalance diffs holdings against target weights. Unless dryRun is set the trades are
// committed atomically. An empty portfolio is reported in the response, not as an error.
func (s *portfolioService) Rebalance(ctx context.Context, userID uint, dryRun bool) (*dto.RebalanceResponse, error) {
	holdings, err := s.portfolioRepo.FindHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	positions := make([]analytics.Position, 0, len(holdings))
	for _, h := range holdings {
		if h.Security == nil {
			continue
		}
		positions = append(positions, analytics.Position{
			SecurityID:   h.SecurityID,
			Symbol:       h.Security.Symbol,
			CurrentValue: h.CurrentValue,
		})
	}

	sentiments, err := s.sentimentSvc.GetAllSentiments(ctx)
	if err != nil {
		return nil, err
	}

	plan := analytics.PlanRebalance(positions, sentiments, s.cfg)
	if plan.Error != "" {
		return &dto.RebalanceResponse{Error: plan.Error, Trades: []dto.TradeResponse{}, DryRun: dryRun}, nil
	}

	trades := make([]dto.TradeResponse, 0, len(plan.Trades))
	for _, t := range plan.Trades {
		trades = append(trades, toTradeResponse(t))
		s.metrics.TradePlanned(string(t.Type), dryRun)
	}

	resp := &dto.RebalanceResponse{
		Message:        "Rebalance preview (no trades executed)",
		PortfolioValue: plan.PortfolioValue,
		CurrentWeights: plan.CurrentWeights,
		TargetWeights:  plan.TargetWeights,
		Trades:         trades,
		DryRun:         dryRun,
	}
	if dryRun {
		return resp, nil
	}

	if len(plan.Trades) > 0 {
		if err := s.commit(ctx, userID, plan); err != nil {
			return nil, err
		}
	}
	resp.Message = "Rebalance executed"

	s.logger.Info("Portfolio rebalanced",
		logger.Field("user_id", userID),
		logger.Float64Field("portfolio_value", plan.PortfolioValue),
		logger.IntField("trades", len(plan.Trades)))
	if err := s.publisher.Publish(ctx, common.EventRebalanced, map[string]interface{}{
		"user_id": userID,
		"trades":  len(plan.Trades),
	}); err != nil {
		s.logger.Warn("Failed to publish rebalance event", logger.ErrorField(err))
	}
	return resp, nil
}

func (s *portfolioService) commit(ctx context.Context, userID uint, plan analytics.RebalancePlan) error {
	symbols := make([]string, 0, len(plan.Trades))
	for _, t := range plan.Trades {
		symbols = append(symbols, t.Symbol)
	}
	ids, err := s.resolveSymbols(ctx, symbols)
	if err != nil {
		return err
	}

	executedAt := s.now()
	writes := make([]repository.HoldingWrite, 0, len(plan.Trades))
	for _, t := range plan.Trades {
		securityID, ok := ids[t.Symbol]
		if !ok {
			s.logger.Warn("Skipping trade for unknown security", logger.StringField("symbol", t.Symbol))
			continue
		}
		price := analytics.ApproximatePrice(t.TradeValue)
		txType := entity.TransactionBuy
		if t.Type == analytics.TradeSell {
			txType = entity.TransactionSell
		}
		writes = append(writes, repository.HoldingWrite{
			Transaction: entity.Transaction{
				UserID:     userID,
				SecurityID: securityID,
				Type:       txType,
				Shares:     t.TradeValue / price,
				Price:      decimal.NewFromFloat(price).Round(4),
				TotalValue: decimal.NewFromFloat(t.TradeValue).Round(2),
				Reason:     "Rebalance: " + tradeReason(t),
				ExecutedAt: executedAt,
			},
			Holding: entity.Holding{
				UserID:         userID,
				SecurityID:     securityID,
				Shares:         t.TradeValue / price,
				CurrentValue:   plan.PortfolioValue * t.TargetWeight,
				Weight:         t.TargetWeight,
				SentimentScore: t.WSS,
			},
		})
	}

	if err := s.portfolioRepo.CommitRebalance(ctx, userID, writes); err != nil {
		return fmt.Errorf("failed to commit rebalance: %w", err)
	}
	return nil
}

// GetPerformance compares current holdings value with the capital of the first buy batch.
func (s *portfolioService) GetPerformance(ctx context.Context, userID uint) (*dto.PerformanceResponse, error) {
	holdings, err := s.portfolioRepo.FindHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	var current float64
	for _, h := range holdings {
		current += h.CurrentValue
	}

	initial, err := s.portfolioRepo.InitialCapital(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial capital: %w", err)
	}
	count, err := s.portfolioRepo.CountTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	initialValue := initial.InexactFloat64()
	var totalReturn float64
	if initialValue > 0 {
		totalReturn = decimal.NewFromFloat((current - initialValue) / initialValue * 100).Round(2).InexactFloat64()
	}

	return &dto.PerformanceResponse{
		CurrentValue: current,
		InitialValue: initialValue,
		TotalReturn:  totalReturn,
		Transactions: count,
		Holdings:     len(holdings),
	}, nil
}

// GetTransactions returns the newest ledger entries, 50 by default.
func (s *portfolioService) GetTransactions(ctx context.Context, userID uint, limit int) ([]dto.TransactionResponse, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	txns, err := s.portfolioRepo.FindTransactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	out := make([]dto.TransactionResponse, 0, len(txns))
	for _, t := range txns {
		item := dto.TransactionResponse{
			ID:         t.ID,
			Type:       string(t.Type),
			Shares:     t.Shares,
			Price:      t.Price.StringFixed(4),
			TotalValue: t.TotalValue.StringFixed(2),
			Reason:     t.Reason,
			ExecutedAt: t.ExecutedAt,
		}
		if t.Security != nil {
			item.Symbol = t.Security.Symbol
			item.StockName = t.Security.Name
		}
		out = append(out, item)
	}
	return out, nil
}

// resolveSymbols maps symbols to security ids. Unknown symbols are left out.
func (s *portfolioService) resolveSymbols(ctx context.Context, symbols []string) (map[string]uint, error) {
	securities, err := s.securityRepo.FindBySymbols(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve securities: %w", err)
	}
	ids := make(map[string]uint, len(securities))
	for _, sec := range securities {
		ids[sec.Symbol] = sec.ID
	}
	return ids, nil
}

func tradeReason(t analytics.Trade) string {
	return fmt.Sprintf("WSS: %.3f (%s)", t.WSS, t.Signal)
}

func toTradeResponse(t analytics.Trade) dto.TradeResponse {
	return dto.TradeResponse{
		Symbol:        t.Symbol,
		Type:          string(t.Type),
		CurrentWeight: fmt.Sprintf("%.2f%%", t.CurrentWeight*100),
		TargetWeight:  fmt.Sprintf("%.2f%%", t.TargetWeight*100),
		TradeValue:    decimal.NewFromFloat(t.TradeValue).Round(2).InexactFloat64(),
		Sentiment:     t.WSS,
		Signal:        t.Signal,
		Reason:        tradeReason(t),
	}
}
