package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	genID *snowflake.Node
}

func Provide(genID *snowflake.Node) domain.Repository {
	return &repo{genID: genID}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Create(sub).Error
}

func (r *repo) FindByBusiness(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).Where("business_id = ?", businessID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	return db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) IncrementUsage(ctx context.Context, db *gorm.DB, businessID snowflake.ID, metric, month string, delta int) error {
	counter := domain.UsageCounter{
		ID:         r.genID.Generate(),
		BusinessID: businessID,
		Metric:     metric,
		Month:      month,
		Count:      delta,
		UpdatedAt:  time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "business_id"}, {Name: "metric"}, {Name: "month"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("count + ?", delta),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(&counter).Error
}

func (r *repo) Usage(ctx context.Context, db *gorm.DB, businessID snowflake.ID, metric, month string) (int, error) {
	var counter domain.UsageCounter
	err := db.WithContext(ctx).
		Where("business_id = ? AND metric = ? AND month = ?", businessID, metric, month).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Count, nil
}
