package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BacktestResult is the persisted summary of one simulation run.
type BacktestResult struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	RunID             uuid.UUID      `gorm:"type:uuid;unique;not null" json:"run_id"`
	UserID            uint           `gorm:"not null;index" json:"user_id"`
	Name              string         `json:"name"`
	StartDate         time.Time      `gorm:"type:date;not null" json:"start_date"`
	EndDate           time.Time      `gorm:"type:date;not null" json:"end_date"`
	InitialCapital    float64        `gorm:"not null" json:"initial_capital"`
	FinalValue        float64        `json:"final_value"`
	TotalReturn       float64        `json:"total_return"`
	CAGR              float64        `gorm:"column:cagr" json:"cagr"`
	SharpeRatio       float64        `json:"sharpe_ratio"`
	MaxDrawdown       float64        `json:"max_drawdown"`
	Alpha             float64        `json:"alpha"`
	MonthsSimulated   int            `json:"months_simulated"`
	SentimentDataUsed bool           `json:"sentiment_data_used"`
	DataPoints        int            `json:"data_points"`
	Config            datatypes.JSON `json:"config"`
	EquityCurve       datatypes.JSON `json:"equity_curve"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (BacktestResult) TableName() string {
	return "backtest_results"
}
