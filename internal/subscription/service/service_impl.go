package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/internal/clock"
	"github.com/smallbiznis/ordena/internal/config"
	"github.com/smallbiznis/ordena/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const renewalPeriod = 30 * 24 * time.Hour

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	plans *config.PlanBookHolder
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Plans *config.PlanBookHolder
}

func New(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		plans: p.Plans,
	}
}

func (s *Service) CreateTrial(ctx context.Context, businessID snowflake.ID) (domain.Subscription, error) {
	existing, err := s.repo.FindByBusiness(ctx, s.db, businessID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	book := s.plans.Get()
	trialDays := book.TrialDay
	if trialDays <= 0 {
		trialDays = 30
	}

	now := s.clock.Now()
	sub := domain.Subscription{
		ID:         s.genID.Generate(),
		BusinessID: businessID,
		PlanSlug:   book.TrialOf,
		Status:     domain.StatusTrial,
		StartedAt:  now,
		ExpiresAt:  now.Add(time.Duration(trialDays) * 24 * time.Hour),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, s.db, &sub); err != nil {
		return domain.Subscription{}, err
	}

	s.log.Info("trial started",
		zap.String("business_id", businessID.String()),
		zap.String("plan", sub.PlanSlug),
		zap.Time("expires_at", sub.ExpiresAt),
	)
	return sub, nil
}

// Current resolves the business's entitlement. A subscription found past its
// expiry date is flipped to expired and persisted before returning.
func (s *Service) Current(ctx context.Context, businessID snowflake.ID) (domain.Entitlement, error) {
	sub, err := s.repo.FindByBusiness(ctx, s.db, businessID)
	if err != nil {
		return domain.Entitlement{}, err
	}
	if sub == nil {
		return domain.Entitlement{}, domain.ErrNoSubscription
	}

	now := s.clock.Now()
	if sub.Status.Usable() && now.After(sub.ExpiresAt) {
		if err := s.repo.Update(ctx, s.db, sub.ID, map[string]interface{}{
			"status": domain.StatusExpired,
		}); err != nil {
			return domain.Entitlement{}, err
		}
		sub.Status = domain.StatusExpired
		s.log.Info("subscription lapsed",
			zap.String("business_id", businessID.String()),
			zap.Time("expired_at", sub.ExpiresAt),
		)
	}

	plan, ok := s.plans.Get().Find(sub.PlanSlug)
	if !ok {
		return domain.Entitlement{}, domain.ErrUnknownPlan
	}

	return domain.Entitlement{
		Subscription: *sub,
		Plan:         plan,
		Expired:      !sub.Status.Usable(),
	}, nil
}

func (s *Service) HasAI(ctx context.Context, businessID snowflake.ID) (bool, error) {
	ent, err := s.Current(ctx, businessID)
	if err != nil {
		return false, err
	}
	return !ent.Expired && ent.Plan.AIEnabled, nil
}

func (s *Service) HasAnalytics(ctx context.Context, businessID snowflake.ID) (bool, error) {
	ent, err := s.Current(ctx, businessID)
	if err != nil {
		return false, err
	}
	return !ent.Expired && ent.Plan.Analytics, nil
}

func (s *Service) CheckOrderQuota(ctx context.Context, businessID snowflake.ID) (domain.Quota, error) {
	return s.checkMonthly(ctx, businessID, domain.MetricOrders, func(p config.Plan) int {
		return p.MaxOrdersPerMonth
	})
}

func (s *Service) RecordOrder(ctx context.Context, businessID snowflake.ID) error {
	return s.repo.IncrementUsage(ctx, s.db, businessID, domain.MetricOrders, s.month(), 1)
}

func (s *Service) CheckAnalyticsQuota(ctx context.Context, businessID snowflake.ID) (domain.Quota, error) {
	return s.checkMonthly(ctx, businessID, domain.MetricAnalytics, func(p config.Plan) int {
		return p.AnalyticsPerMonth
	})
}

func (s *Service) RecordAnalytics(ctx context.Context, businessID snowflake.ID) error {
	return s.repo.IncrementUsage(ctx, s.db, businessID, domain.MetricAnalytics, s.month(), 1)
}

func (s *Service) CheckZoneQuota(ctx context.Context, businessID snowflake.ID, requested int) (domain.Quota, error) {
	ent, err := s.Current(ctx, businessID)
	if err != nil {
		return domain.Quota{}, err
	}
	if ent.Expired {
		return domain.Quota{Current: requested, Limit: ent.Plan.MaxDeliveryZones}, domain.ErrSubscriptionExpired
	}

	limit := ent.Plan.MaxDeliveryZones
	return domain.Quota{
		Allowed: limit == 0 || requested <= limit,
		Current: requested,
		Limit:   limit,
	}, nil
}

func (s *Service) ChangePlan(ctx context.Context, businessID snowflake.ID, slug string) (domain.Entitlement, error) {
	plan, ok := s.plans.Get().Find(slug)
	if !ok {
		return domain.Entitlement{}, domain.ErrUnknownPlan
	}

	sub, err := s.repo.FindByBusiness(ctx, s.db, businessID)
	if err != nil {
		return domain.Entitlement{}, err
	}
	if sub == nil {
		return domain.Entitlement{}, domain.ErrNoSubscription
	}

	now := s.clock.Now()
	if err := s.repo.Update(ctx, s.db, sub.ID, map[string]interface{}{
		"plan_slug":  plan.Slug,
		"status":     domain.StatusActive,
		"expires_at": now.Add(renewalPeriod),
	}); err != nil {
		return domain.Entitlement{}, err
	}

	sub.PlanSlug = plan.Slug
	sub.Status = domain.StatusActive
	sub.ExpiresAt = now.Add(renewalPeriod)

	s.log.Info("plan changed",
		zap.String("business_id", businessID.String()),
		zap.String("plan", plan.Slug),
	)
	return domain.Entitlement{Subscription: *sub, Plan: plan}, nil
}

func (s *Service) Renew(ctx context.Context, businessID snowflake.ID) (domain.Subscription, error) {
	sub, err := s.repo.FindByBusiness(ctx, s.db, businessID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if sub == nil {
		return domain.Subscription{}, domain.ErrNoSubscription
	}

	// Renewing early extends from the current expiry, renewing late extends
	// from now.
	now := s.clock.Now()
	from := sub.ExpiresAt
	if now.After(from) {
		from = now
	}

	if err := s.repo.Update(ctx, s.db, sub.ID, map[string]interface{}{
		"status":     domain.StatusActive,
		"expires_at": from.Add(renewalPeriod),
	}); err != nil {
		return domain.Subscription{}, err
	}

	sub.Status = domain.StatusActive
	sub.ExpiresAt = from.Add(renewalPeriod)
	return *sub, nil
}

func (s *Service) checkMonthly(ctx context.Context, businessID snowflake.ID, metric string, limitOf func(config.Plan) int) (domain.Quota, error) {
	ent, err := s.Current(ctx, businessID)
	if err != nil {
		return domain.Quota{}, err
	}

	used, err := s.repo.Usage(ctx, s.db, businessID, metric, s.month())
	if err != nil {
		return domain.Quota{}, err
	}

	limit := limitOf(ent.Plan)
	if ent.Expired {
		return domain.Quota{Current: used, Limit: limit}, domain.ErrSubscriptionExpired
	}
	return domain.Quota{
		Allowed: limit == 0 || used < limit,
		Current: used,
		Limit:   limit,
	}, nil
}

func (s *Service) month() string {
	return s.clock.Now().UTC().Format("2006-01")
}
