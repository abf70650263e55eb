package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/internal/cache"
	"github.com/smallbiznis/ordena/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const channelTTL = 5 * time.Minute

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	cache cache.Cache[string, domain.Channel]
}

type ServiceParam struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

func New(p ServiceParam) domain.Resolver {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tenant.resolver"),
		repo:  p.Repo,
		cache: cache.NewTTLCache[string, domain.Channel](),
	}
}

// Resolve returns the channel binding for a phone number id, serving cached
// entries for up to five minutes before reading through to the store.
func (s *Service) Resolve(ctx context.Context, phoneNumberID string) (domain.Channel, bool, error) {
	key := cache.Key(phoneNumberID)
	if key == "" {
		return domain.Channel{}, false, nil
	}

	if cached, ok := s.cache.Get(key); ok {
		return cached, true, nil
	}

	channel, err := s.repo.FindByPhoneNumberID(ctx, s.db, phoneNumberID)
	if err != nil {
		return domain.Channel{}, false, err
	}
	if channel == nil {
		return domain.Channel{}, false, nil
	}

	s.cache.Set(key, *channel, channelTTL)
	return *channel, true, nil
}

// Invalidate drops the cached binding. Must be called synchronously whenever
// the channel's business link changes so a stale mapping cannot route a
// conversation to the wrong business.
func (s *Service) Invalidate(phoneNumberID string) {
	s.cache.Delete(cache.Key(phoneNumberID))
}

// Link attaches a business to a channel and invalidates the cached entry.
func (s *Service) Link(ctx context.Context, phoneNumberID string, businessID snowflake.ID) error {
	if err := s.repo.LinkBusiness(ctx, s.db, phoneNumberID, businessID); err != nil {
		return err
	}
	s.Invalidate(phoneNumberID)
	s.log.Info("channel linked",
		zap.String("phone_number_id", phoneNumberID),
		zap.String("business_id", businessID.String()),
	)
	return nil
}
