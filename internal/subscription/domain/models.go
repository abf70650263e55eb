// Package domain contains the subscription record and monthly usage counters.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Usable reports whether the subscription grants access at all. Expiry is
// checked separately against the clock; this only looks at the status column.
func (s Status) Usable() bool {
	return s == StatusTrial || s == StatusActive
}

// Subscription is one business's plan assignment. At most one row per
// business; plan changes and renewals mutate it in place.
type Subscription struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	BusinessID snowflake.ID `gorm:"not null;uniqueIndex"`
	PlanSlug   string       `gorm:"type:text;not null"`
	Status     Status       `gorm:"type:text;not null"`
	StartedAt  time.Time    `gorm:"not null"`
	ExpiresAt  time.Time    `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Usage metrics counted per calendar month.
const (
	MetricOrders    = "orders"
	MetricAnalytics = "analytics"
)

// UsageCounter accumulates one metric for one business in one month. Month is
// the UTC calendar month in YYYY-MM form.
type UsageCounter struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	BusinessID snowflake.ID `gorm:"not null;uniqueIndex:ux_usage_business_metric_month"`
	Metric     string       `gorm:"type:text;not null;uniqueIndex:ux_usage_business_metric_month"`
	Month      string       `gorm:"type:text;not null;uniqueIndex:ux_usage_business_metric_month"`
	Count      int          `gorm:"not null;default:0"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (UsageCounter) TableName() string { return "usage_counters" }
