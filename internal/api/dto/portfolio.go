package dto

import (
	"time"

	"golang-sentiment-quant/internal/analytics"
)

type HoldingResponse struct {
	Symbol         string           `json:"symbol"`
	Name           string           `json:"name"`
	Shares         float64          `json:"shares"`
	CurrentValue   float64          `json:"current_value"`
	Weight         float64          `json:"weight"`
	SentimentScore float64          `json:"sentiment_score"`
	Signal         analytics.Signal `json:"signal"`
}

type PortfolioSummary struct {
	TotalValue    float64    `json:"total_value"`
	HoldingsCount int        `json:"holdings_count"`
	LastUpdated   *time.Time `json:"last_updated"`
}

// PortfolioResponse lists holdings; weight is expressed in percent.
type PortfolioResponse struct {
	Holdings []HoldingResponse `json:"holdings"`
	Summary  PortfolioSummary  `json:"summary"`
}

type InitializeRequest struct {
	InitialCapital float64 `json:"initial_capital"`
}

type InitializeResponse struct {
	Message        string             `json:"message"`
	InitialCapital float64            `json:"initial_capital"`
	Weights        map[string]float64 `json:"weights"`
}

type RebalanceRequest struct {
	DryRun *bool `json:"dry_run"`
}

// TradeResponse mirrors analytics.Trade with human readable weights.
type TradeResponse struct {
	Symbol        string           `json:"symbol"`
	Type          string           `json:"type"`
	CurrentWeight string           `json:"current_weight"`
	TargetWeight  string           `json:"target_weight"`
	TradeValue    float64          `json:"trade_value"`
	Sentiment     float64          `json:"sentiment"`
	Signal        analytics.Signal `json:"signal"`
	Reason        string           `json:"reason"`
}

type RebalanceResponse struct {
	Message        string             `json:"message"`
	PortfolioValue float64            `json:"portfolio_value"`
	CurrentWeights map[string]float64 `json:"current_weights"`
	TargetWeights  map[string]float64 `json:"target_weights"`
	Trades         []TradeResponse    `json:"trades"`
	DryRun         bool               `json:"dry_run"`
	Error          string             `json:"error,omitempty"`
}

type PerformanceResponse struct {
	CurrentValue float64 `json:"current_value"`
	InitialValue float64 `json:"initial_value"`
	TotalReturn  float64 `json:"total_return"`
	Transactions int64   `json:"transactions"`
	Holdings     int     `json:"holdings"`
}

type TransactionResponse struct {
	ID         uint      `json:"id"`
	Symbol     string    `json:"symbol"`
	StockName  string    `json:"stock_name"`
	Type       string    `json:"type"`
	Shares     float64   `json:"shares"`
	Price      string    `json:"price"`
	TotalValue string    `json:"total_value"`
	Reason     string    `json:"reason"`
	ExecutedAt time.Time `json:"executed_at"`
}
