package entity

import (
	"time"

	"github.com/lib/pq"
)

// Security is a tracked ticker with the keywords used to tag news mentions.
type Security struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Symbol    string         `gorm:"unique;not null" json:"symbol"`
	Name      string         `gorm:"not null" json:"name"`
	Sector    string         `json:"sector"`
	Keywords  pq.StringArray `gorm:"type:text[]" json:"keywords"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (Security) TableName() string {
	return "securities"
}
