// Package adminflow runs the business onboarding wizard and, once it is
// complete, the administrator command surface.
package adminflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	admindomain "github.com/smallbiznis/ordena/internal/admin/domain"
	bizdomain "github.com/smallbiznis/ordena/internal/business/domain"
	"github.com/smallbiznis/ordena/internal/catalogsync"
	"github.com/smallbiznis/ordena/internal/clock"
	"github.com/smallbiznis/ordena/internal/config"
	"github.com/smallbiznis/ordena/internal/extraction"
	"github.com/smallbiznis/ordena/internal/messenger"
	orderdomain "github.com/smallbiznis/ordena/internal/order/domain"
	productdomain "github.com/smallbiznis/ordena/internal/product/domain"
	subdomain "github.com/smallbiznis/ordena/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Input is one inbound admin message with the channel it arrived on.
type Input struct {
	Phone     string
	Text      string
	CatalogID string
}

type Engine struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	loc      *time.Location
	repo     admindomain.Repository
	bizRepo  bizdomain.Repository
	prodRepo productdomain.Repository
	orders   orderdomain.Service
	subs     subdomain.Service
	extract  extraction.Service
	importer catalogsync.Importer
	plans    *config.PlanBookHolder
}

type EngineParam struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     admindomain.Repository
	BizRepo  bizdomain.Repository
	ProdRepo productdomain.Repository
	Orders   orderdomain.Service
	Subs     subdomain.Service
	Extract  extraction.Service
	Importer catalogsync.Importer
	Plans    *config.PlanBookHolder
}

func New(p EngineParam) *Engine {
	loc, err := time.LoadLocation(p.Config.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Engine{
		db:       p.DB,
		log:      p.Log.Named("adminflow"),
		genID:    p.GenID,
		clock:    p.Clock,
		loc:      loc,
		repo:     p.Repo,
		bizRepo:  p.BizRepo,
		prodRepo: p.ProdRepo,
		orders:   p.Orders,
		subs:     p.Subs,
		extract:  p.Extract,
		importer: p.Importer,
		plans:    p.Plans,
	}
}

// Handle processes one admin message. State is re-read from the store on
// every event; nothing is cached between calls.
func (e *Engine) Handle(ctx context.Context, in Input) ([]messenger.Outgoing, error) {
	state, err := e.repo.FindState(ctx, e.db, in.Phone)
	if err != nil {
		return nil, fmt.Errorf("load admin state: %w", err)
	}
	if state == nil {
		// Registration always writes an initial state; a missing row means
		// the admin predates this deployment. Rebuild a completed state from
		// the business record.
		business, err := e.bizRepo.FindByAdminPhone(ctx, e.db, in.Phone)
		if err != nil {
			return nil, err
		}
		if business == nil {
			return reply(in.Phone, "No encontré tu negocio. Escribí AYUDA para ver las opciones."), nil
		}
		state = &admindomain.State{
			ID:          e.genID.Generate(),
			Phone:       in.Phone,
			CurrentStep: admindomain.StepCompleted,
			BusinessID:  business.ID,
		}
		if err := e.saveState(ctx, state); err != nil {
			return nil, err
		}
	}

	business, err := e.bizRepo.FindByID(ctx, e.db, state.BusinessID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		e.log.Error("admin state points at missing business",
			zap.String("phone", in.Phone),
			zap.String("business_id", state.BusinessID.String()),
		)
		return reply(in.Phone, "Hubo un problema con tu negocio. Contactá a soporte."), nil
	}

	if state.CurrentStep == admindomain.StepCompleted {
		return e.handleCompleted(ctx, in, state, business)
	}
	return e.handleStep(ctx, in, state, business)
}

func (e *Engine) saveState(ctx context.Context, state *admindomain.State) error {
	state.UpdatedAt = e.clock.Now()
	return e.repo.SaveState(ctx, e.db, state)
}

func (e *Engine) advance(ctx context.Context, state *admindomain.State, step string) error {
	state.CurrentStep = step
	return e.saveState(ctx, state)
}

func reply(to string, bodies ...string) []messenger.Outgoing {
	out := make([]messenger.Outgoing, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, messenger.Text(to, b))
	}
	return out
}
