package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrBusinessNotFound = errors.New("business_not_found")
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, business *Business) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Business, error)
	FindByAdminPhone(ctx context.Context, db *gorm.DB, adminPhone string) (*Business, error)
	FindFirstActive(ctx context.Context, db *gorm.DB) (*Business, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]interface{}) error

	ZonesByBusiness(ctx context.Context, db *gorm.DB, businessID snowflake.ID) ([]DeliveryZone, error)
	ReplaceZones(ctx context.Context, db *gorm.DB, businessID snowflake.ID, zones []DeliveryZone) error
	ZoneByID(ctx context.Context, db *gorm.DB, businessID, zoneID snowflake.ID) (*DeliveryZone, error)

	BankDetails(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (*BankDetails, error)
	UpsertBankDetails(ctx context.Context, db *gorm.DB, details *BankDetails) error
}
