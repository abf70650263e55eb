// Package seed provisions the minimum records a fresh deployment needs: a
// usable invite code and the default channel binding.
package seed

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	admindomain "github.com/smallbiznis/ordena/internal/admin/domain"
	"github.com/smallbiznis/ordena/internal/config"
	tenantdomain "github.com/smallbiznis/ordena/internal/tenant/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Run(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
	log = log.Named("seed")

	if err := ensureInviteCode(conn, cfg, genID, log); err != nil {
		return err
	}
	return ensureDefaultChannel(conn, cfg, genID, log)
}

// ensureInviteCode inserts the configured bootstrap invite code once. An
// already-consumed code is left alone.
func ensureInviteCode(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
	code := strings.ToUpper(strings.TrimSpace(cfg.SeedInviteCode))
	if code == "" {
		return nil
	}
	if !admindomain.InviteCodePattern.MatchString(code) {
		log.Warn("seed invite code does not match the expected shape, skipping",
			zap.String("code", code))
		return nil
	}

	var count int64
	if err := conn.Model(&admindomain.InviteCode{}).
		Where("UPPER(code) = ?", code).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	log.Info("seeding invite code", zap.String("code", code))
	return conn.Create(&admindomain.InviteCode{
		ID:   genID.Generate(),
		Code: code,
	}).Error
}

// ensureDefaultChannel records the deployment-wide channel credentials as a
// tenant binding so resolution works the same in single-tenant setups.
func ensureDefaultChannel(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
	if cfg.Channel.PhoneNumberID == "" || cfg.Channel.AccessToken == "" {
		return nil
	}

	var count int64
	if err := conn.Model(&tenantdomain.Channel{}).
		Where("phone_number_id = ?", cfg.Channel.PhoneNumberID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	log.Info("seeding default channel",
		zap.String("phone_number_id", cfg.Channel.PhoneNumberID))
	return conn.Create(&tenantdomain.Channel{
		ID:            genID.Generate(),
		PhoneNumberID: cfg.Channel.PhoneNumberID,
		AccessToken:   cfg.Channel.AccessToken,
		CatalogID:     cfg.Channel.CatalogID,
		Active:        true,
	}).Error
}
