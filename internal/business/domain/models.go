// Package domain contains tenant configuration models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Business is one tenant's configuration. Mutated only by the admin flow.
type Business struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	AdminPhone      string       `gorm:"type:text;not null;uniqueIndex"`
	Name            string       `gorm:"type:text"`
	Hours           string       `gorm:"type:text"`
	Address         string       `gorm:"type:text"`
	HasDelivery     bool         `gorm:"not null;default:false"`
	HasPickup       bool         `gorm:"not null;default:false"`
	AcceptsCash     bool         `gorm:"not null;default:false"`
	AcceptsTransfer bool         `gorm:"not null;default:false"`
	AcceptsDeposit  bool         `gorm:"not null;default:false"`
	DepositPercent  int          `gorm:"not null;default:0"`
	Active          bool         `gorm:"not null;default:false"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Business) TableName() string { return "businesses" }

// DeliveryZone is one named zone with its delivery price. Zones are replaced
// as a set whenever the admin reconfigures them.
type DeliveryZone struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	BusinessID snowflake.ID `gorm:"not null;index"`
	Name       string       `gorm:"type:text;not null"`
	Price      int64        `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DeliveryZone) TableName() string { return "delivery_zones" }

// BankDetails holds the payout data shown to customers paying by transfer.
type BankDetails struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	BusinessID    snowflake.ID `gorm:"not null;uniqueIndex"`
	Alias         string       `gorm:"type:text;not null"`
	CBU           string       `gorm:"type:text;not null"`
	AccountHolder string       `gorm:"type:text;not null"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (BankDetails) TableName() string { return "bank_details" }
