package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a user's position in one security. Weight only changes on initialize or rebalance.
type Holding struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_holding_user_security" json:"user_id"`
	SecurityID     uint      `gorm:"not null;uniqueIndex:idx_holding_user_security" json:"security_id"`
	Shares         float64   `gorm:"not null" json:"shares"`
	CurrentValue   float64   `gorm:"not null" json:"current_value"`
	Weight         float64   `gorm:"not null" json:"weight"`
	SentimentScore float64   `json:"sentiment_score"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Security *Security `gorm:"foreignKey:SecurityID" json:"security,omitempty"`
}

func (Holding) TableName() string {
	return "portfolio_holdings"
}

type TransactionType string

const (
	TransactionBuy  TransactionType = "buy"
	TransactionSell TransactionType = "sell"
)

// Transaction is an append-only ledger entry.
type Transaction struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"not null;index" json:"user_id"`
	SecurityID uint            `gorm:"not null" json:"security_id"`
	Type       TransactionType `gorm:"not null" json:"type"`
	Shares     float64         `gorm:"not null" json:"shares"`
	Price      decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"price"`
	TotalValue decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_value"`
	Reason     string          `json:"reason"`
	ExecutedAt time.Time       `gorm:"not null;index" json:"executed_at"`

	Security *Security `gorm:"foreignKey:SecurityID" json:"security,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}
