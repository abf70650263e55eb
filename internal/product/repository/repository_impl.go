package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&products).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) FindByRetailerID(ctx context.Context, db *gorm.DB, businessID snowflake.ID, retailerID string) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).
		Where("business_id = ? AND retailer_id = ?", businessID, retailerID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB, businessID snowflake.ID) ([]domain.Product, error) {
	var items []domain.Product
	err := db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindAvailable(ctx context.Context, db *gorm.DB, businessID snowflake.ID) ([]domain.Product, error) {
	var items []domain.Product
	err := db.WithContext(ctx).
		Where("business_id = ? AND available = ?", businessID, true).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SetAvailability(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID, available bool) error {
	return db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("business_id = ? AND id = ?", businessID, id).
		Updates(map[string]interface{}{
			"available":  available,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repo) UpdatePrice(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID, price int64) error {
	return db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("business_id = ? AND id = ?", businessID, id).
		Updates(map[string]interface{}{
			"price":      price,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, businessID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, id).
		Delete(&domain.Product{}).Error
}
