// Package domain contains admin identity, invite codes, and the persisted
// admin conversation state.
package domain

import (
	"regexp"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InviteCodePattern matches valid registration codes, case-insensitive.
var InviteCodePattern = regexp.MustCompile(`(?i)^REST-[A-Z0-9]{4}$`)

// Admin is the authorized configurer of exactly one business.
type Admin struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Phone        string       `gorm:"type:text;not null;uniqueIndex"`
	Name         string       `gorm:"type:text"`
	InviteCodeID snowflake.ID `gorm:"not null"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Admin) TableName() string { return "admins" }

// InviteCode is a single-use registration token, optionally bound to one
// channel identity. Consumed exactly once, atomically.
type InviteCode struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	Code          string       `gorm:"type:text;not null;uniqueIndex"`
	PhoneNumberID string       `gorm:"type:text"`
	UsedByPhone   *string      `gorm:"type:text"`
	UsedAt        *time.Time   `gorm:""`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (InviteCode) TableName() string { return "invite_codes" }

// State is the admin's current position in the onboarding/edit flow, plus
// scratch data for multi-message steps. One row per admin, overwritten on
// every step advance.
type State struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	Phone       string            `gorm:"type:text;not null;uniqueIndex"`
	CurrentStep string            `gorm:"type:text;not null"`
	BusinessID  snowflake.ID      `gorm:"not null;index"`
	Data        datatypes.JSONMap `gorm:""`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (State) TableName() string { return "admin_states" }
