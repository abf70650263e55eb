package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/ordena/internal/clock"
	"github.com/smallbiznis/ordena/internal/observability/metrics"
	"github.com/smallbiznis/ordena/internal/order/domain"
	"github.com/smallbiznis/ordena/internal/order/repository"
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

	require.NoError(t, db.AutoMigrate(&domain.Order{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:    repository.Provide(),
		Metrics: metrics.NewWith(prometheus.NewRegistry()),
	})
}

func createOrder(t *testing.T, svc domain.Service, businessID snowflake.ID, phone string) domain.Order {
	t.Helper()
	order, err := svc.Create(context.Background(), domain.CreateOrderRequest{
		BusinessID:    businessID,
		ClientPhone:   phone,
		Items:         []domain.Item{{ProductID: "p1", Name: "Pizza Muzzarella", UnitPrice: 5500, Qty: 2}},
		PaymentMethod: domain.PayCash,
	})
	require.NoError(t, err)
	return order
}

func TestOrderNumbersArePerBusiness(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	bizA := snowflake.ID(100)
	bizB := snowflake.ID(200)

	assert.Equal(t, 1, createOrder(t, svc, bizA, "549111").OrderNumber)
	assert.Equal(t, 2, createOrder(t, svc, bizA, "549111").OrderNumber)
	assert.Equal(t, 1, createOrder(t, svc, bizB, "549222").OrderNumber)
}

func TestTenantIsolation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	bizA := snowflake.ID(100)
	bizB := snowflake.ID(200)
	createOrder(t, svc, bizA, "549111")

	_, err := svc.Get(context.Background(), bizB, 1)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	pendingB, err := svc.Pending(context.Background(), bizB)
	require.NoError(t, err)
	assert.Empty(t, pendingB)

	pendingA, err := svc.Pending(context.Background(), bizA)
	require.NoError(t, err)
	assert.Len(t, pendingA, 1)
}

func TestCreateComputesTotals(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	order, err := svc.Create(context.Background(), domain.CreateOrderRequest{
		BusinessID:  snowflake.ID(100),
		ClientPhone: "549111",
		Items: []domain.Item{
			{ProductID: "p1", Name: "Pizza Muzzarella", UnitPrice: 5500, Qty: 2},
			{ProductID: "p2", Name: "Coca Cola", UnitPrice: 2000, Qty: 1},
		},
		DeliveryPrice: 1500,
		PaymentMethod: domain.PayTransfer,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(13000), order.Subtotal)
	assert.Equal(t, int64(14500), order.GrandTotal)
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	biz := snowflake.ID(100)
	created := createOrder(t, svc, biz, "549111")

	order, already, err := svc.ConfirmPayment(context.Background(), biz, created.OrderNumber)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, domain.PaymentConfirmed, order.PaymentStatus)

	order, already, err = svc.ConfirmPayment(context.Background(), biz, created.OrderNumber)
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, domain.PaymentConfirmed, order.PaymentStatus)
}

func TestRejectIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	biz := snowflake.ID(100)
	created := createOrder(t, svc, biz, "549111")

	_, already, err := svc.Reject(context.Background(), biz, created.OrderNumber, "sin stock")
	require.NoError(t, err)
	assert.False(t, already)

	_, already, err = svc.Reject(context.Background(), biz, created.OrderNumber, "sin stock")
	require.NoError(t, err)
	assert.True(t, already)
}

func TestAdvanceStatusGuards(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	biz := snowflake.ID(100)
	created := createOrder(t, svc, biz, "549111")

	_, err := svc.AdvanceStatus(ctx, biz, created.OrderNumber, domain.StatusDelivered)
	require.NoError(t, err)

	_, err = svc.AdvanceStatus(ctx, biz, created.OrderNumber, domain.StatusPreparing)
	assert.ErrorIs(t, err, domain.ErrTerminalStatus)

	_, err = svc.AdvanceStatus(ctx, biz, created.OrderNumber, domain.OrderStatus("volando"))
	assert.Error(t, err)
}

func TestCancelForClientOnlyWhileNew(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	biz := snowflake.ID(100)
	created := createOrder(t, svc, biz, "549111")

	// Another customer cannot cancel it.
	_, err := svc.CancelForClient(ctx, biz, "549999", created.OrderNumber)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = svc.AdvanceStatus(ctx, biz, created.OrderNumber, domain.StatusPreparing)
	require.NoError(t, err)

	_, err = svc.CancelForClient(ctx, biz, "549111", created.OrderNumber)
	assert.ErrorIs(t, err, domain.ErrCancelNotAllowed)
}

func TestSalesSummary(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	biz := snowflake.ID(100)

	cash := createOrder(t, svc, biz, "549111")
	_, _, err := svc.ConfirmPayment(ctx, biz, cash.OrderNumber)
	require.NoError(t, err)

	transfer, err := svc.Create(ctx, domain.CreateOrderRequest{
		BusinessID:    biz,
		ClientPhone:   "549222",
		Items:         []domain.Item{{ProductID: "p2", Name: "Coca Cola", UnitPrice: 2000, Qty: 1}},
		PaymentMethod: domain.PayTransfer,
	})
	require.NoError(t, err)
	_, _, err = svc.ConfirmPayment(ctx, biz, transfer.OrderNumber)
	require.NoError(t, err)

	cancelled := createOrder(t, svc, biz, "549333")
	_, _, err = svc.Reject(ctx, biz, cancelled.OrderNumber, "")
	require.NoError(t, err)

	summary, err := svc.Sales(ctx, biz, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Cancelled)
	assert.Equal(t, 2, summary.Confirmed)
	assert.Equal(t, int64(13000), summary.TotalRevenue)
	assert.Equal(t, int64(11000), summary.CashRevenue)
	assert.Equal(t, int64(2000), summary.TransferRevenue)
}
