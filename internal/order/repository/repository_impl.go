package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var max int
		err := tx.Model(&domain.Order{}).
			Where("business_id = ?", order.BusinessID).
			Select("COALESCE(MAX(order_number), 0)").
			Scan(&max).Error
		if err != nil {
			return err
		}
		order.OrderNumber = max + 1
		return tx.Create(order).Error
	})
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, businessID snowflake.ID, orderNumber int) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Where("business_id = ? AND order_number = ?", businessID, orderNumber).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repo) FindByClientAndNumber(ctx context.Context, db *gorm.DB, businessID snowflake.ID, clientPhone string, orderNumber int) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Where("business_id = ? AND client_phone = ? AND order_number = ?", businessID, clientPhone, orderNumber).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repo) FindPending(ctx context.Context, db *gorm.DB, businessID snowflake.ID) ([]domain.Order, error) {
	var orders []domain.Order
	err := db.WithContext(ctx).
		Where("business_id = ? AND order_status IN ?", businessID, []domain.OrderStatus{
			domain.StatusNew, domain.StatusPreparing, domain.StatusEnRoute,
		}).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) FindSince(ctx context.Context, db *gorm.DB, businessID snowflake.ID, since time.Time) ([]domain.Order, error) {
	var orders []domain.Order
	err := db.WithContext(ctx).
		Where("business_id = ? AND created_at >= ?", businessID, since).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) CountSince(ctx context.Context, db *gorm.DB, businessID snowflake.ID, since time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("business_id = ? AND created_at >= ?", businessID, since).
		Count(&count).Error
	return count, err
}

func (r *repo) UpdateOrderStatus(ctx context.Context, db *gorm.DB, businessID snowflake.ID, orderNumber int, status domain.OrderStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("business_id = ? AND order_number = ?", businessID, orderNumber).
		Updates(map[string]interface{}{
			"order_status": status,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *repo) UpdatePaymentStatus(ctx context.Context, db *gorm.DB, businessID snowflake.ID, orderNumber int, status domain.PaymentStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("business_id = ? AND order_number = ?", businessID, orderNumber).
		Updates(map[string]interface{}{
			"payment_status": status,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
