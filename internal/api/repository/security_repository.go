package repository

import (
	"context"
	"strings"

	"golang-sentiment-quant/internal/entity"

	"gorm.io/gorm"
)

// SecurityRepository defines read access to tracked securities.
type SecurityRepository interface {
	FindActive(ctx context.Context) ([]entity.Security, error)
	FindBySymbol(ctx context.Context, symbol string) (*entity.Security, error)
	FindBySymbols(ctx context.Context, symbols []string) ([]entity.Security, error)
}

// NewSecurityRepository creates a new GORM-based security repository.
func NewSecurityRepository(db *gorm.DB) SecurityRepository {
	return &securityRepository{db: db}
}

type securityRepository struct {
	db *gorm.DB
}

// FindActive returns every active security ordered by id.
func (r *securityRepository) FindActive(ctx context.Context) ([]entity.Security, error) {
	var securities []entity.Security
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id asc").Find(&securities).Error; err != nil {
		return nil, err
	}
	return securities, nil
}

// FindBySymbol looks a security up by its upper-cased symbol.
func (r *securityRepository) FindBySymbol(ctx context.Context, symbol string) (*entity.Security, error) {
	var security entity.Security
	if err := r.db.WithContext(ctx).Where("symbol = ?", strings.ToUpper(symbol)).First(&security).Error; err != nil {
		return nil, err
	}
	return &security, nil
}

// FindBySymbols returns the securities matching any of the symbols. Unknown symbols are absent from the result.
func (r *securityRepository) FindBySymbols(ctx context.Context, symbols []string) ([]entity.Security, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	var securities []entity.Security
	if err := r.db.WithContext(ctx).Where("symbol IN ?", symbols).Find(&securities).Error; err != nil {
		return nil, err
	}
	return securities, nil
}
