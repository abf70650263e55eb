package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, businessID snowflake.ID, phone string) (*State, error)
	Save(ctx context.Context, db *gorm.DB, state *State) error
	Delete(ctx context.Context, db *gorm.DB, businessID snowflake.ID, phone string) error
}
