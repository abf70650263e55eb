package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/internal/admin/domain"
	bizdomain "github.com/smallbiznis/ordena/internal/business/domain"
	"github.com/smallbiznis/ordena/internal/clock"
	tenantdomain "github.com/smallbiznis/ordena/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	bizRepo  bizdomain.Repository
	resolver tenantdomain.Resolver
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	BizRepo  bizdomain.Repository
	Resolver tenantdomain.Resolver `optional:"true"`
}

func New(p ServiceParam) domain.Registration {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("admin.registration"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		bizRepo:  p.BizRepo,
		resolver: p.Resolver,
	}
}

func (s *Service) LooksLikeInvite(text string) bool {
	return domain.InviteCodePattern.MatchString(strings.TrimSpace(text))
}

func (s *Service) FindAdmin(ctx context.Context, phone string) (*domain.Admin, error) {
	return s.repo.FindAdminByPhone(ctx, s.db, phone)
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.RegisterResult, error) {
	code := strings.TrimSpace(req.Code)
	if !domain.InviteCodePattern.MatchString(code) {
		return domain.RegisterResult{}, domain.ErrInviteNotFound
	}

	existing, err := s.repo.FindAdminByPhone(ctx, s.db, req.Phone)
	if err != nil {
		return domain.RegisterResult{}, err
	}
	if existing != nil {
		return domain.RegisterResult{}, domain.ErrAlreadyRegistered
	}

	invite, err := s.repo.FindInviteCode(ctx, s.db, code)
	if err != nil {
		return domain.RegisterResult{}, err
	}
	if invite == nil {
		return domain.RegisterResult{}, domain.ErrInviteNotFound
	}
	if invite.UsedByPhone != nil {
		return domain.RegisterResult{}, domain.ErrInviteAlreadyUsed
	}
	if invite.PhoneNumberID != "" && req.PhoneNumberID != "" && invite.PhoneNumberID != req.PhoneNumberID {
		return domain.RegisterResult{}, domain.ErrInviteWrongChannel
	}

	now := s.clock.Now()
	business := bizdomain.Business{
		ID:         s.genID.Generate(),
		AdminPhone: req.Phone,
		Active:     false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	admin := domain.Admin{
		ID:           s.genID.Generate(),
		Phone:        req.Phone,
		Name:         req.Name,
		InviteCodeID: invite.ID,
		CreatedAt:    now,
	}
	state := domain.State{
		ID:          s.genID.Generate(),
		Phone:       req.Phone,
		CurrentStep: domain.StepBusinessName,
		BusinessID:  business.ID,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.ClaimInviteCode(ctx, tx, invite.ID, req.Phone); err != nil {
			return err
		}
		if err := s.bizRepo.Create(ctx, tx, &business); err != nil {
			return err
		}
		if err := s.repo.CreateAdmin(ctx, tx, &admin); err != nil {
			return err
		}
		return s.repo.SaveState(ctx, tx, &state)
	})
	if err != nil {
		return domain.RegisterResult{}, err
	}

	// Bind the inbound channel to the new business so later events resolve
	// straight to it. Registration already succeeded; failures here only log.
	if s.resolver != nil && req.PhoneNumberID != "" {
		if err := s.resolver.Link(ctx, req.PhoneNumberID, business.ID); err != nil {
			s.log.Warn("channel link after registration failed",
				zap.String("phone_number_id", req.PhoneNumberID),
				zap.Error(err),
			)
		}
	}

	s.log.Info("admin registered",
		zap.String("phone", req.Phone),
		zap.String("business_id", business.ID.String()),
		zap.String("invite_code", invite.Code),
	)
	return domain.RegisterResult{
		Admin:    admin,
		Business: domain.BusinessRef{ID: int64(business.ID)},
		State:    state,
	}, nil
}
