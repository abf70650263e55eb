package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/internal/admin/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindAdminByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Admin, error) {
	var a domain.Admin
	err := db.WithContext(ctx).Where("phone = ?", phone).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repo) CreateAdmin(ctx context.Context, db *gorm.DB, admin *domain.Admin) error {
	return db.WithContext(ctx).Create(admin).Error
}

func (r *repo) FindInviteCode(ctx context.Context, db *gorm.DB, code string) (*domain.InviteCode, error) {
	var invite domain.InviteCode
	err := db.WithContext(ctx).
		Where("UPPER(code) = ?", strings.ToUpper(code)).
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *repo) CreateInviteCode(ctx context.Context, db *gorm.DB, invite *domain.InviteCode) error {
	return db.WithContext(ctx).Create(invite).Error
}

func (r *repo) ClaimInviteCode(ctx context.Context, db *gorm.DB, codeID snowflake.ID, phone string) error {
	res := db.WithContext(ctx).
		Model(&domain.InviteCode{}).
		Where("id = ? AND used_by_phone IS NULL", codeID).
		Updates(map[string]interface{}{
			"used_by_phone": phone,
			"used_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrInviteAlreadyUsed
	}
	return nil
}

func (r *repo) FindState(ctx context.Context, db *gorm.DB, phone string) (*domain.State, error) {
	var s domain.State
	err := db.WithContext(ctx).Where("phone = ?", phone).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repo) SaveState(ctx context.Context, db *gorm.DB, state *domain.State) error {
	existing, err := r.FindState(ctx, db, state.Phone)
	if err != nil {
		return err
	}
	if existing != nil {
		state.ID = existing.ID
	}
	return db.WithContext(ctx).Save(state).Error
}

func (r *repo) DeleteState(ctx context.Context, db *gorm.DB, phone string) error {
	return db.WithContext(ctx).Where("phone = ?", phone).Delete(&domain.State{}).Error
}
