package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByBusiness(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (*Subscription, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]interface{}) error

	// IncrementUsage adds delta to the (business, metric, month) counter,
	// creating the row on first use.
	IncrementUsage(ctx context.Context, db *gorm.DB, businessID snowflake.ID, metric, month string, delta int) error
	Usage(ctx context.Context, db *gorm.DB, businessID snowflake.ID, metric, month string) (int, error)
}
