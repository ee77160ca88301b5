package dto

import (
	"encoding/json"
	"time"

	"golang-sentiment-quant/internal/analytics"
)

// RunBacktestRequest uses YYYY-MM-DD dates. Empty dates default to 2020-01-01 and today.
type RunBacktestRequest struct {
	Name           string  `json:"name"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	InitialCapital float64 `json:"initial_capital"`
}

type BacktestResponse struct {
	ID                uint            `json:"id"`
	RunID             string          `json:"run_id"`
	Name              string          `json:"name"`
	StartDate         string          `json:"start_date"`
	EndDate           string          `json:"end_date"`
	InitialCapital    float64         `json:"initial_capital"`
	FinalValue        float64         `json:"final_value"`
	TotalReturn       float64         `json:"total_return"`
	CAGR              float64         `json:"cagr"`
	SharpeRatio       float64         `json:"sharpe_ratio"`
	MaxDrawdown       float64         `json:"max_drawdown"`
	Alpha             float64         `json:"alpha"`
	MonthsSimulated   int             `json:"months_simulated"`
	SentimentDataUsed bool            `json:"sentiment_data_used"`
	DataPoints        int             `json:"data_points"`
	Config            json.RawMessage `json:"config,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

type RunBacktestResponse struct {
	Message     string                  `json:"message"`
	Backtest    BacktestResponse        `json:"backtest"`
	EquityCurve []analytics.EquityPoint `json:"equity_curve"`
}

type BacktestDetailResponse struct {
	Backtest    BacktestResponse        `json:"backtest"`
	EquityCurve []analytics.EquityPoint `json:"equity_curve"`
}
