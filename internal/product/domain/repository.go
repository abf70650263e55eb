package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, products []Product) error
	FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*Product, error)
	FindByRetailerID(ctx context.Context, db *gorm.DB, businessID snowflake.ID, retailerID string) (*Product, error)
	FindAll(ctx context.Context, db *gorm.DB, businessID snowflake.ID) ([]Product, error)
	FindAvailable(ctx context.Context, db *gorm.DB, businessID snowflake.ID) ([]Product, error)
	SetAvailability(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID, available bool) error
	UpdatePrice(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID, price int64) error
	Delete(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) error
}
