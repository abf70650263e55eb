package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/ordena/internal/clock"
	"github.com/smallbiznis/ordena/internal/config"
	"github.com/smallbiznis/ordena/internal/subscription/domain"
	"github.com/smallbiznis/ordena/internal/subscription/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.Subscription{}, &domain.UsageCounter{}))
	return db
}

func testPlanBook() config.PlanBook {
	return config.PlanBook{
		Plans: []config.Plan{
			{Slug: "basico", Name: "Básico", MaxOrdersPerMonth: 2, MaxDeliveryZones: 3},
			{Slug: "intermedio", Name: "Intermedio", MaxOrdersPerMonth: 5, MaxDeliveryZones: 10, AnalyticsPerMonth: 1, AIEnabled: true, Analytics: true},
			{Slug: "pro", Name: "Pro", AIEnabled: true, Analytics: true},
		},
		TrialOf:  "intermedio",
		TrialDay: 30,
	}
}

func newTestService(t *testing.T, db *gorm.DB) (domain.Service, *clock.FakeClock) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := New(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(node),
		Plans: config.NewStaticPlanBookHolder(testPlanBook()),
	})
	return svc, clk
}

func TestTrialGrantsTrialPlan(t *testing.T) {
	svc, clk := newTestService(t, newTestDB(t))
	ctx := context.Background()
	biz := snowflake.ID(100)

	sub, err := svc.CreateTrial(ctx, biz)
	require.NoError(t, err)
	assert.Equal(t, "intermedio", sub.PlanSlug)
	assert.Equal(t, domain.StatusTrial, sub.Status)
	assert.Equal(t, clk.Now().Add(30*24*time.Hour), sub.ExpiresAt)

	// Creating a second trial is a no-op.
	again, err := svc.CreateTrial(ctx, biz)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)

	ok, err := svc.HasAI(ctx, biz)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLazyExpiryIsPersisted(t *testing.T) {
	db := newTestDB(t)
	svc, clk := newTestService(t, db)
	ctx := context.Background()
	biz := snowflake.ID(100)

	_, err := svc.CreateTrial(ctx, biz)
	require.NoError(t, err)

	clk.Advance(31 * 24 * time.Hour)

	ent, err := svc.Current(ctx, biz)
	require.NoError(t, err)
	assert.True(t, ent.Expired)

	var stored domain.Subscription
	require.NoError(t, db.Where("business_id = ?", biz).First(&stored).Error)
	assert.Equal(t, domain.StatusExpired, stored.Status)

	ok, err := svc.HasAI(ctx, biz)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.CheckOrderQuota(ctx, biz)
	assert.ErrorIs(t, err, domain.ErrSubscriptionExpired)
}

func TestOrderQuotaIsMonthly(t *testing.T) {
	svc, clk := newTestService(t, newTestDB(t))
	ctx := context.Background()
	biz := snowflake.ID(100)

	_, err := svc.CreateTrial(ctx, biz)
	require.NoError(t, err)
	_, err = svc.ChangePlan(ctx, biz, "basico")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		quota, err := svc.CheckOrderQuota(ctx, biz)
		require.NoError(t, err)
		assert.True(t, quota.Allowed)
		require.NoError(t, svc.RecordOrder(ctx, biz))
	}

	quota, err := svc.CheckOrderQuota(ctx, biz)
	require.NoError(t, err)
	assert.False(t, quota.Allowed)
	assert.Equal(t, 2, quota.Current)
	assert.Equal(t, 2, quota.Limit)

	// Counters are per calendar month.
	clk.Advance(30 * 24 * time.Hour)
	quota, err = svc.CheckOrderQuota(ctx, biz)
	require.NoError(t, err)
	assert.True(t, quota.Allowed)
	assert.Equal(t, 0, quota.Current)
}

func TestZeroLimitMeansUnlimited(t *testing.T) {
	svc, _ := newTestService(t, newTestDB(t))
	ctx := context.Background()
	biz := snowflake.ID(100)

	_, err := svc.CreateTrial(ctx, biz)
	require.NoError(t, err)
	_, err = svc.ChangePlan(ctx, biz, "pro")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, svc.RecordOrder(ctx, biz))
	}

	quota, err := svc.CheckOrderQuota(ctx, biz)
	require.NoError(t, err)
	assert.True(t, quota.Allowed)
	assert.Equal(t, 0, quota.Limit)
}

func TestZoneQuota(t *testing.T) {
	svc, _ := newTestService(t, newTestDB(t))
	ctx := context.Background()
	biz := snowflake.ID(100)

	_, err := svc.CreateTrial(ctx, biz)
	require.NoError(t, err)
	_, err = svc.ChangePlan(ctx, biz, "basico")
	require.NoError(t, err)

	quota, err := svc.CheckZoneQuota(ctx, biz, 3)
	require.NoError(t, err)
	assert.True(t, quota.Allowed)

	quota, err = svc.CheckZoneQuota(ctx, biz, 4)
	require.NoError(t, err)
	assert.False(t, quota.Allowed)
}

func TestChangePlanRejectsUnknownSlug(t *testing.T) {
	svc, _ := newTestService(t, newTestDB(t))
	ctx := context.Background()
	biz := snowflake.ID(100)

	_, err := svc.CreateTrial(ctx, biz)
	require.NoError(t, err)

	_, err = svc.ChangePlan(ctx, biz, "platino")
	assert.ErrorIs(t, err, domain.ErrUnknownPlan)
}

func TestRenewExtendsFromExpiryWhenEarly(t *testing.T) {
	svc, _ := newTestService(t, newTestDB(t))
	ctx := context.Background()
	biz := snowflake.ID(100)

	created, err := svc.CreateTrial(ctx, biz)
	require.NoError(t, err)

	renewed, err := svc.Renew(ctx, biz)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, renewed.Status)
	assert.Equal(t, created.ExpiresAt.Add(30*24*time.Hour), renewed.ExpiresAt)
}

func TestRenewAfterLapseExtendsFromNow(t *testing.T) {
	svc, clk := newTestService(t, newTestDB(t))
	ctx := context.Background()
	biz := snowflake.ID(100)

	_, err := svc.CreateTrial(ctx, biz)
	require.NoError(t, err)

	clk.Advance(45 * 24 * time.Hour)

	renewed, err := svc.Renew(ctx, biz)
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(30*24*time.Hour), renewed.ExpiresAt)

	ent, err := svc.Current(ctx, biz)
	require.NoError(t, err)
	assert.False(t, ent.Expired)
}
