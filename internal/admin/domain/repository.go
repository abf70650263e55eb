package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindAdminByPhone(ctx context.Context, db *gorm.DB, phone string) (*Admin, error)
	CreateAdmin(ctx context.Context, db *gorm.DB, admin *Admin) error

	FindInviteCode(ctx context.Context, db *gorm.DB, code string) (*InviteCode, error)
	CreateInviteCode(ctx context.Context, db *gorm.DB, invite *InviteCode) error
	// ClaimInviteCode marks the code used by phone only if it is still
	// unused, in a single guarded update. Returns ErrInviteAlreadyUsed when
	// another registration won the race.
	ClaimInviteCode(ctx context.Context, db *gorm.DB, codeID snowflake.ID, phone string) error

	FindState(ctx context.Context, db *gorm.DB, phone string) (*State, error)
	SaveState(ctx context.Context, db *gorm.DB, state *State) error
	DeleteState(ctx context.Context, db *gorm.DB, phone string) error
}
