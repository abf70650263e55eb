// Package domain contains the tenant-scoped product catalog model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Product struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	BusinessID  snowflake.ID `gorm:"not null;index"`
	Name        string       `gorm:"type:text;not null"`
	Description string       `gorm:"type:text"`
	Price       int64        `gorm:"not null"`
	Category    string       `gorm:"type:text"`
	Available   bool         `gorm:"not null;default:true"`
	RetailerID  string       `gorm:"type:text"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }
