package repository

import (
	"context"

	"golang-sentiment-quant/internal/entity"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HoldingWrite pairs a ledger entry with the holding state it produces.
type HoldingWrite struct {
	Transaction entity.Transaction
	Holding     entity.Holding
}

// PortfolioRepository defines data operations on holdings and the transaction ledger.
type PortfolioRepository interface {
	FindHoldings(ctx context.Context, userID uint) ([]entity.Holding, error)
	CountHoldings(ctx context.Context, userID uint) (int64, error)
	CommitRebalance(ctx context.Context, userID uint, writes []HoldingWrite) error
	Initialize(ctx context.Context, userID uint, writes []HoldingWrite) error
	FindTransactions(ctx context.Context, userID uint, limit int) ([]entity.Transaction, error)
	CountTransactions(ctx context.Context, userID uint) (int64, error)
	InitialCapital(ctx context.Context, userID uint) (decimal.Decimal, error)
}

// NewPortfolioRepository creates a new GORM-based portfolio repository.
func NewPortfolioRepository(db *gorm.DB) PortfolioRepository {
	return &portfolioRepository{db: db}
}

type portfolioRepository struct {
	db *gorm.DB
}

// FindHoldings returns a user's holdings with their securities, largest first.
func (r *portfolioRepository) FindHoldings(ctx context.Context, userID uint) ([]entity.Holding, error) {
	var holdings []entity.Holding
	err := r.db.WithContext(ctx).
		Preload("Security").
		Where("user_id = ?", userID).
		Order("current_value desc").
		Find(&holdings).Error
	if err != nil {
		return nil, err
	}
	return holdings, nil
}

func (r *portfolioRepository) CountHoldings(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Holding{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CommitRebalance appends the trades and upserts the traded holdings in one transaction,
// then re-derives every holding weight of the user from current values so they sum to 1.
func (r *portfolioRepository) CommitRebalance(ctx context.Context, userID uint, writes []HoldingWrite) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range writes {
			w := writes[i]
			if err := tx.Create(&w.Transaction).Error; err != nil {
				return err
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "security_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"current_value", "weight", "sentiment_score", "updated_at"}),
			}).Create(&w.Holding).Error
			if err != nil {
				return err
			}
		}
		return normalizeWeights(tx, userID)
	})
}

// Initialize creates holdings (keeping any that already exist) and their buy transactions in one transaction.
func (r *portfolioRepository) Initialize(ctx context.Context, userID uint, writes []HoldingWrite) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range writes {
			w := writes[i]
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&w.Holding).Error; err != nil {
				return err
			}
			if err := tx.Create(&w.Transaction).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func normalizeWeights(tx *gorm.DB, userID uint) error {
	var holdings []entity.Holding
	if err := tx.Where("user_id = ?", userID).Find(&holdings).Error; err != nil {
		return err
	}
	var total float64
	for _, h := range holdings {
		total += h.CurrentValue
	}
	if total <= 0 {
		return nil
	}
	for _, h := range holdings {
		if err := tx.Model(&entity.Holding{}).Where("id = ?", h.ID).Update("weight", h.CurrentValue/total).Error; err != nil {
			return err
		}
	}
	return nil
}

// FindTransactions returns the newest ledger entries with their securities.
func (r *portfolioRepository) FindTransactions(ctx context.Context, userID uint, limit int) ([]entity.Transaction, error) {
	var txns []entity.Transaction
	err := r.db.WithContext(ctx).
		Preload("Security").
		Where("user_id = ?", userID).
		Order("executed_at desc, id desc").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *portfolioRepository) CountTransactions(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Transaction{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// InitialCapital sums the user's first batch of buys, those sharing the earliest executed_at.
// A user without buys has zero initial capital.
func (r *portfolioRepository) InitialCapital(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var first entity.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, entity.TransactionBuy).
		Order("executed_at asc").
		Limit(1).
		Find(&first).Error
	if err != nil {
		return decimal.Zero, err
	}
	if first.ID == 0 {
		return decimal.Zero, nil
	}

	var batch []entity.Transaction
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND executed_at = ?", userID, entity.TransactionBuy, first.ExecutedAt).
		Find(&batch).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, t := range batch {
		total = total.Add(t.TotalValue)
	}
	return total, nil
}
