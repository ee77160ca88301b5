package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang-sentiment-quant/internal/analytics"
	"golang-sentiment-quant/internal/api/dto"
	"golang-sentiment-quant/internal/api/repository"
	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/pkg/common"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/metrics"
	"golang-sentiment-quant/pkg/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultBacktestName  = "Sentiment Strategy Backtest"
	defaultBacktestStart = "2020-01-01"
	backtestListLimit    = 20
)

// BacktestService runs and stores historical sentiment simulations.
type BacktestService interface {
	RunBacktest(ctx context.Context, userID uint, req *dto.RunBacktestRequest) (*dto.RunBacktestResponse, error)
	ListBacktests(ctx context.Context, userID uint) ([]dto.BacktestResponse, error)
	GetBacktest(ctx context.Context, userID, id uint) (*dto.BacktestDetailResponse, error)
	DeleteBacktest(ctx context.Context, userID, id uint) error
}

// NewBacktestService creates a new backtest service.
func NewBacktestService(
	backtestRepo repository.BacktestRepository,
	sentimentRepo repository.SentimentRepository,
	publisher common.Publisher,
	registry *metrics.Registry,
	portfolioCfg analytics.Config,
	backtestCfg analytics.BacktestConfig,
	log *logger.Logger,
) BacktestService {
	if publisher == nil {
		publisher = common.NopPublisher{}
	}
	return &backtestService{
		backtestRepo:  backtestRepo,
		sentimentRepo: sentimentRepo,
		publisher:     publisher,
		metrics:       registry,
		portfolioCfg:  portfolioCfg,
		backtestCfg:   backtestCfg,
		logger:        log,
		now:           utils.NowUTC,
	}
}

type backtestService struct {
	backtestRepo  repository.BacktestRepository
	sentimentRepo repository.SentimentRepository
	publisher     common.Publisher
	metrics       *metrics.Registry
	portfolioCfg  analytics.Config
	backtestCfg   analytics.BacktestConfig
	logger        *logger.Logger
	now           func() time.Time
}

type backtestRunConfig struct {
	Strategy  string                   `json:"strategy"`
	Rebalance string                   `json:"rebalance"`
	Portfolio analytics.Config         `json:"portfolio"`
	Model     analytics.BacktestConfig `json:"model"`
}

// RunBacktest simulates the date range over stored daily aggregates and persists the run.
func (s *backtestService) RunBacktest(ctx context.Context, userID uint, req *dto.RunBacktestRequest) (*dto.RunBacktestResponse, error) {
	start, end, err := s.parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	capital := req.InitialCapital
	if capital < 0 {
		return nil, fmt.Errorf("%w: initial capital must be positive", ErrInvalidInput)
	}
	if capital == 0 {
		capital = DefaultInitialCapital
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultBacktestName
	}

	rows, err := s.sentimentRepo.FindDailyBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily sentiment: %w", err)
	}
	values := make([]analytics.DailyValue, 0, len(rows))
	for _, r := range rows {
		values = append(values, analytics.DailyValue{Date: r.Date, WeightedSentiment: r.WeightedSentiment})
	}

	outcome, err := analytics.Simulate(start, end, capital, analytics.AverageByDate(values), s.backtestCfg)
	if err != nil {
		return nil, err
	}

	cfgJSON, err := json.Marshal(backtestRunConfig{
		Strategy:  "sentiment_weighted",
		Rebalance: "monthly",
		Portfolio: s.portfolioCfg,
		Model:     s.backtestCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode backtest config: %w", err)
	}
	curveJSON, err := json.Marshal(outcome.EquityCurve)
	if err != nil {
		return nil, fmt.Errorf("failed to encode equity curve: %w", err)
	}

	result := &entity.BacktestResult{
		RunID:             uuid.New(),
		UserID:            userID,
		Name:              name,
		StartDate:         start,
		EndDate:           end,
		InitialCapital:    capital,
		FinalValue:        outcome.FinalValue,
		TotalReturn:       outcome.TotalReturn,
		CAGR:              outcome.CAGR,
		SharpeRatio:       outcome.SharpeRatio,
		MaxDrawdown:       outcome.MaxDrawdown,
		Alpha:             outcome.Alpha,
		MonthsSimulated:   outcome.MonthsSimulated,
		SentimentDataUsed: outcome.SentimentDataUsed,
		DataPoints:        outcome.DataPoints,
		Config:            datatypes.JSON(cfgJSON),
		EquityCurve:       datatypes.JSON(curveJSON),
	}
	if err := s.backtestRepo.Create(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save backtest: %w", err)
	}

	s.metrics.BacktestCompleted()
	s.logger.Info("Backtest completed",
		logger.StringField("run_id", result.RunID.String()),
		logger.IntField("months", outcome.MonthsSimulated),
		logger.BoolField("sentiment_data_used", outcome.SentimentDataUsed),
		logger.Float64Field("final_value", outcome.FinalValue))
	if err := s.publisher.Publish(ctx, common.EventBacktestCompleted, map[string]interface{}{
		"run_id":       result.RunID.String(),
		"total_return": outcome.TotalReturn,
	}); err != nil {
		s.logger.Warn("Failed to publish backtest event", logger.ErrorField(err))
	}

	return &dto.RunBacktestResponse{
		Message:     "Backtest completed",
		Backtest:    toBacktestResponse(result),
		EquityCurve: outcome.EquityCurve,
	}, nil
}

func (s *backtestService) parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	if startStr == "" {
		startStr = defaultBacktestStart
	}
	start, err := utils.ParseDate(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	end := utils.StartOfDay(s.now())
	if endStr != "" {
		end, err = utils.ParseDate(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return start, end, nil
}

// ListBacktests returns the user's latest runs.
func (s *backtestService) ListBacktests(ctx context.Context, userID uint) ([]dto.BacktestResponse, error) {
	results, err := s.backtestRepo.FindByUser(ctx, userID, backtestListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list backtests: %w", err)
	}
	out := make([]dto.BacktestResponse, 0, len(results))
	for i := range results {
		out = append(out, toBacktestResponse(&results[i]))
	}
	return out, nil
}

func (s *backtestService) GetBacktest(ctx context.Context, userID, id uint) (*dto.BacktestDetailResponse, error) {
	result, err := s.backtestRepo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBacktestNotFound
		}
		return nil, fmt.Errorf("failed to load backtest: %w", err)
	}
	var curve []analytics.EquityPoint
	if len(result.EquityCurve) > 0 {
		if err := json.Unmarshal(result.EquityCurve, &curve); err != nil {
			s.logger.Warn("Stored equity curve is unreadable", logger.Field("backtest_id", id), logger.ErrorField(err))
		}
	}
	return &dto.BacktestDetailResponse{Backtest: toBacktestResponse(result), EquityCurve: curve}, nil
}

// DeleteBacktest removes a run. Removal by its owner is the only mutation a stored run allows.
func (s *backtestService) DeleteBacktest(ctx context.Context, userID, id uint) error {
	deleted, err := s.backtestRepo.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete backtest: %w", err)
	}
	if !deleted {
		return ErrBacktestNotFound
	}
	return nil
}

func toBacktestResponse(r *entity.BacktestResult) dto.BacktestResponse {
	return dto.BacktestResponse{
		ID:                r.ID,
		RunID:             r.RunID.String(),
		Name:              r.Name,
		StartDate:         utils.FormatDate(r.StartDate),
		EndDate:           utils.FormatDate(r.EndDate),
		InitialCapital:    r.InitialCapital,
		FinalValue:        r.FinalValue,
		TotalReturn:       r.TotalReturn,
		CAGR:              r.CAGR,
		SharpeRatio:       r.SharpeRatio,
		MaxDrawdown:       r.MaxDrawdown,
		Alpha:             r.Alpha,
		MonthsSimulated:   r.MonthsSimulated,
		SentimentDataUsed: r.SentimentDataUsed,
		DataPoints:        r.DataPoints,
		Config:            json.RawMessage(r.Config),
		CreatedAt:         r.CreatedAt,
	}
}
