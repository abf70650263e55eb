package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	admindomain "github.com/smallbiznis/ordena/internal/admin/domain"
	adminrepo "github.com/smallbiznis/ordena/internal/admin/repository"
	bizdomain "github.com/smallbiznis/ordena/internal/business/domain"
	bizrepo "github.com/smallbiznis/ordena/internal/business/repository"
	"github.com/smallbiznis/ordena/internal/clock"
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

	require.NoError(t, db.AutoMigrate(
		&admindomain.Admin{},
		&admindomain.InviteCode{},
		&admindomain.State{},
		&bizdomain.Business{},
	))
	return db
}

func newRegistration(t *testing.T, db *gorm.DB) admindomain.Registration {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:    adminrepo.Provide(),
		BizRepo: bizrepo.Provide(),
	})
}

var seedInviteNode = func() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}()

func seedInvite(t *testing.T, db *gorm.DB, code, phoneNumberID string) admindomain.InviteCode {
	t.Helper()
	invite := admindomain.InviteCode{
		ID:            seedInviteNode.Generate(),
		Code:          code,
		PhoneNumberID: phoneNumberID,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, adminrepo.Provide().CreateInviteCode(context.Background(), db, &invite))
	return invite
}

func TestLooksLikeInvite(t *testing.T) {
	svc := newRegistration(t, newTestDB(t))

	assert.True(t, svc.LooksLikeInvite("REST-A1B2"))
	assert.True(t, svc.LooksLikeInvite("rest-a1b2"))
	assert.True(t, svc.LooksLikeInvite("  REST-9999 "))
	assert.False(t, svc.LooksLikeInvite("REST-A1B"))
	assert.False(t, svc.LooksLikeInvite("REST-A1B2C"))
	assert.False(t, svc.LooksLikeInvite("hola quiero registrarme"))
}

func TestRegisterProvisionsAdminBusinessAndState(t *testing.T) {
	db := newTestDB(t)
	svc := newRegistration(t, db)
	seedInvite(t, db, "REST-A1B2", "")

	res, err := svc.Register(context.Background(), admindomain.RegisterRequest{
		Phone: "549111",
		Name:  "Carla",
		Code:  "rest-a1b2",
	})
	require.NoError(t, err)

	assert.Equal(t, "549111", res.Admin.Phone)
	assert.Equal(t, admindomain.StepBusinessName, res.State.CurrentStep)
	assert.NotZero(t, res.Business.ID)

	var business bizdomain.Business
	require.NoError(t, db.Where("admin_phone = ?", "549111").First(&business).Error)
	assert.False(t, business.Active)
}

func TestInviteCodeIsSingleUse(t *testing.T) {
	db := newTestDB(t)
	svc := newRegistration(t, db)
	seedInvite(t, db, "REST-A1B2", "")

	_, err := svc.Register(context.Background(), admindomain.RegisterRequest{
		Phone: "549111",
		Code:  "REST-A1B2",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), admindomain.RegisterRequest{
		Phone: "549222",
		Code:  "REST-A1B2",
	})
	assert.ErrorIs(t, err, admindomain.ErrInviteAlreadyUsed)
}

func TestRegisterRejectsUnknownCode(t *testing.T) {
	svc := newRegistration(t, newTestDB(t))

	_, err := svc.Register(context.Background(), admindomain.RegisterRequest{
		Phone: "549111",
		Code:  "REST-ZZZZ",
	})
	assert.ErrorIs(t, err, admindomain.ErrInviteNotFound)
}

func TestRegisterRejectsWrongChannel(t *testing.T) {
	db := newTestDB(t)
	svc := newRegistration(t, db)
	seedInvite(t, db, "REST-A1B2", "111000")

	_, err := svc.Register(context.Background(), admindomain.RegisterRequest{
		Phone:         "549111",
		Code:          "REST-A1B2",
		PhoneNumberID: "222000",
	})
	assert.ErrorIs(t, err, admindomain.ErrInviteWrongChannel)
}

func TestRegisterRejectsSecondRegistrationSamePhone(t *testing.T) {
	db := newTestDB(t)
	svc := newRegistration(t, db)
	seedInvite(t, db, "REST-A1B2", "")
	seedInvite(t, db, "REST-C3D4", "")

	_, err := svc.Register(context.Background(), admindomain.RegisterRequest{
		Phone: "549111",
		Code:  "REST-A1B2",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), admindomain.RegisterRequest{
		Phone: "549111",
		Code:  "REST-C3D4",
	})
	assert.ErrorIs(t, err, admindomain.ErrAlreadyRegistered)
}
