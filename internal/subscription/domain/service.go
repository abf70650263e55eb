package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/internal/config"
)

var (
	ErrNoSubscription      = errors.New("subscription_not_found")
	ErrUnknownPlan         = errors.New("unknown_plan")
	ErrSubscriptionExpired = errors.New("subscription_expired")
)

// Quota is the result of a limit check. Limit 0 means unlimited.
type Quota struct {
	Allowed bool
	Current int
	Limit   int
}

// Entitlement pairs the stored subscription with its resolved plan. Expired
// reflects both the status column and the clock.
type Entitlement struct {
	Subscription Subscription
	Plan         config.Plan
	Expired      bool
}

// Service gates every plan-dependent action. Entitlements are re-evaluated
// per action against the live clock; expiry is lazy, persisted on first read
// past the expiry date.
type Service interface {
	CreateTrial(ctx context.Context, businessID snowflake.ID) (Subscription, error)
	Current(ctx context.Context, businessID snowflake.ID) (Entitlement, error)

	HasAI(ctx context.Context, businessID snowflake.ID) (bool, error)
	HasAnalytics(ctx context.Context, businessID snowflake.ID) (bool, error)

	CheckOrderQuota(ctx context.Context, businessID snowflake.ID) (Quota, error)
	RecordOrder(ctx context.Context, businessID snowflake.ID) error
	CheckAnalyticsQuota(ctx context.Context, businessID snowflake.ID) (Quota, error)
	RecordAnalytics(ctx context.Context, businessID snowflake.ID) error
	CheckZoneQuota(ctx context.Context, businessID snowflake.ID, requested int) (Quota, error)

	ChangePlan(ctx context.Context, businessID snowflake.ID, slug string) (Entitlement, error)
	Renew(ctx context.Context, businessID snowflake.ID) (Subscription, error)
}
