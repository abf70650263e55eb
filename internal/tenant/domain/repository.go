package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, channel *Channel) error
	FindByPhoneNumberID(ctx context.Context, db *gorm.DB, phoneNumberID string) (*Channel, error)
	FindUnlinked(ctx context.Context, db *gorm.DB, phoneNumberID string) (*Channel, error)
	LinkBusiness(ctx context.Context, db *gorm.DB, phoneNumberID string, businessID snowflake.ID) error
}
