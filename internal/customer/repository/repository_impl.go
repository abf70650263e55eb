package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, businessID snowflake.ID, phone string) (*domain.State, error) {
	var s domain.State
	err := db.WithContext(ctx).
		Where("business_id = ? AND phone = ?", businessID, phone).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, state *domain.State) error {
	existing, err := r.Find(ctx, db, state.BusinessID, state.Phone)
	if err != nil {
		return err
	}
	if existing != nil {
		state.ID = existing.ID
	}
	return db.WithContext(ctx).Save(state).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, businessID snowflake.ID, phone string) error {
	return db.WithContext(ctx).
		Where("business_id = ? AND phone = ?", businessID, phone).
		Delete(&domain.State{}).Error
}
