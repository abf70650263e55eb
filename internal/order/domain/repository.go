package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Create assigns the next per-business order number and inserts the row
	// in one transaction.
	Create(ctx context.Context, db *gorm.DB, order *Order) error
	FindByNumber(ctx context.Context, db *gorm.DB, businessID snowflake.ID, orderNumber int) (*Order, error)
	FindByClientAndNumber(ctx context.Context, db *gorm.DB, businessID snowflake.ID, clientPhone string, orderNumber int) (*Order, error)
	FindPending(ctx context.Context, db *gorm.DB, businessID snowflake.ID) ([]Order, error)
	FindSince(ctx context.Context, db *gorm.DB, businessID snowflake.ID, since time.Time) ([]Order, error)
	CountSince(ctx context.Context, db *gorm.DB, businessID snowflake.ID, since time.Time) (int64, error)
	UpdateOrderStatus(ctx context.Context, db *gorm.DB, businessID snowflake.ID, orderNumber int, status OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, db *gorm.DB, businessID snowflake.ID, orderNumber int, status PaymentStatus) error
}
