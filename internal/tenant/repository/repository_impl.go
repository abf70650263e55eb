package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/internal/tenant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, channel *domain.Channel) error {
	return db.WithContext(ctx).Create(channel).Error
}

func (r *repo) FindByPhoneNumberID(ctx context.Context, db *gorm.DB, phoneNumberID string) (*domain.Channel, error) {
	var c domain.Channel
	err := db.WithContext(ctx).
		Where("phone_number_id = ? AND active = ?", phoneNumberID, true).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) FindUnlinked(ctx context.Context, db *gorm.DB, phoneNumberID string) (*domain.Channel, error) {
	var c domain.Channel
	err := db.WithContext(ctx).
		Where("phone_number_id = ? AND business_id IS NULL", phoneNumberID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) LinkBusiness(ctx context.Context, db *gorm.DB, phoneNumberID string, businessID snowflake.ID) error {
	res := db.WithContext(ctx).
		Model(&domain.Channel{}).
		Where("phone_number_id = ?", phoneNumberID).
		Updates(map[string]interface{}{
			"business_id": businessID,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrChannelNotFound
	}
	return nil
}
