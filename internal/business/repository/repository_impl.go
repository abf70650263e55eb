package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/internal/business/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, business *domain.Business) error {
	return db.WithContext(ctx).Create(business).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Business, error) {
	var b domain.Business
	err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) FindByAdminPhone(ctx context.Context, db *gorm.DB, adminPhone string) (*domain.Business, error) {
	var b domain.Business
	err := db.WithContext(ctx).Where("admin_phone = ?", adminPhone).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) FindFirstActive(ctx context.Context, db *gorm.DB) (*domain.Business, error) {
	var b domain.Business
	err := db.WithContext(ctx).Where("active = ?", true).Order("created_at ASC").First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).Model(&domain.Business{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrBusinessNotFound
	}
	return nil
}

func (r *repo) ZonesByBusiness(ctx context.Context, db *gorm.DB, businessID snowflake.ID) ([]domain.DeliveryZone, error) {
	var zones []domain.DeliveryZone
	err := db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at ASC").
		Find(&zones).Error
	if err != nil {
		return nil, err
	}
	return zones, nil
}

// ReplaceZones swaps the business's zone set atomically.
func (r *repo) ReplaceZones(ctx context.Context, db *gorm.DB, businessID snowflake.ID, zones []domain.DeliveryZone) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("business_id = ?", businessID).Delete(&domain.DeliveryZone{}).Error; err != nil {
			return err
		}
		if len(zones) == 0 {
			return nil
		}
		for i := range zones {
			zones[i].BusinessID = businessID
		}
		return tx.Create(&zones).Error
	})
}

func (r *repo) ZoneByID(ctx context.Context, db *gorm.DB, businessID, zoneID snowflake.ID) (*domain.DeliveryZone, error) {
	var zone domain.DeliveryZone
	err := db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, zoneID).
		First(&zone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *repo) BankDetails(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (*domain.BankDetails, error) {
	var details domain.BankDetails
	err := db.WithContext(ctx).Where("business_id = ?", businessID).First(&details).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &details, nil
}

func (r *repo) UpsertBankDetails(ctx context.Context, db *gorm.DB, details *domain.BankDetails) error {
	details.UpdatedAt = time.Now().UTC()
	existing, err := r.BankDetails(ctx, db, details.BusinessID)
	if err != nil {
		return err
	}
	if existing == nil {
		return db.WithContext(ctx).Create(details).Error
	}
	return db.WithContext(ctx).
		Model(&domain.BankDetails{}).
		Where("business_id = ?", details.BusinessID).
		Updates(map[string]interface{}{
			"alias":          details.Alias,
			"cbu":            details.CBU,
			"account_holder": details.AccountHolder,
			"updated_at":     details.UpdatedAt,
		}).Error
}
