package repository

import (
	"context"

	"golang-sentiment-quant/internal/entity"

	"gorm.io/gorm"
)

// SecurityRepository defines read access to the tracked securities and their keywords.
type SecurityRepository interface {
	FindActive(ctx context.Context) ([]entity.Security, error)
}

// NewSecurityRepository creates a new GORM-based security repository.
func NewSecurityRepository(db *gorm.DB) SecurityRepository {
	return &securityRepository{db: db}
}

type securityRepository struct {
	db *gorm.DB
}

func (r *securityRepository) FindActive(ctx context.Context) ([]entity.Security, error) {
	var securities []entity.Security
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id asc").Find(&securities).Error; err != nil {
		return nil, err
	}
	return securities, nil
}
