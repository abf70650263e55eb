// Package domain contains the channel-identity to tenant binding.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Channel binds one messaging-channel identity (a phone number id) to the
// credentials and business that serve it.
type Channel struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	PhoneNumberID string        `gorm:"type:text;not null;uniqueIndex"`
	AccessToken   string        `gorm:"type:text;not null"`
	CatalogID     string        `gorm:"type:text"`
	BusinessID    *snowflake.ID `gorm:"index"`
	Active        bool          `gorm:"not null;default:true"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Channel) TableName() string { return "tenant_channels" }
