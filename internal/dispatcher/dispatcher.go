// Package dispatcher routes inbound webhook events to the right conversation
// engine: admin flow, invite registration, or customer flow.
package dispatcher

import (
	"context"
	"errors"
	"fmt"

	admindomain "github.com/smallbiznis/ordena/internal/admin/domain"
	"github.com/smallbiznis/ordena/internal/adminflow"
	bizdomain "github.com/smallbiznis/ordena/internal/business/domain"
	"github.com/smallbiznis/ordena/internal/config"
	"github.com/smallbiznis/ordena/internal/customerflow"
	"github.com/smallbiznis/ordena/internal/messenger"
	"github.com/smallbiznis/ordena/internal/observability/logger"
	"github.com/smallbiznis/ordena/internal/observability/metrics"
	"github.com/smallbiznis/ordena/internal/ratelimit"
	tenantdomain "github.com/smallbiznis/ordena/internal/tenant/domain"
	"github.com/smallbiznis/ordena/pkg/tenantctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Dispatcher struct {
	cfg          config.Config
	db           *gorm.DB
	log          *zap.Logger
	limiter      *ratelimit.Limiter
	resolver     tenantdomain.Resolver
	metrics      *metrics.Metrics
	messenger    messenger.Messenger
	registration admindomain.Registration
	adminFlow    *adminflow.Engine
	customerFlow *customerflow.Engine
	bizRepo      bizdomain.Repository
}

type Param struct {
	fx.In

	Config       config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	Limiter      *ratelimit.Limiter
	Resolver     tenantdomain.Resolver
	Metrics      *metrics.Metrics
	Messenger    messenger.Messenger
	Registration admindomain.Registration
	AdminFlow    *adminflow.Engine
	CustomerFlow *customerflow.Engine
	BizRepo      bizdomain.Repository
}

func New(p Param) *Dispatcher {
	return &Dispatcher{
		cfg:          p.Config,
		db:           p.DB,
		log:          p.Log.Named("dispatcher"),
		limiter:      p.Limiter,
		resolver:     p.Resolver,
		metrics:      p.Metrics,
		messenger:    p.Messenger,
		registration: p.Registration,
		adminFlow:    p.AdminFlow,
		customerFlow: p.CustomerFlow,
		bizRepo:      p.BizRepo,
	}
}

// failureClass identifies one way an event can stop before a flow produced a
// normal reply. Signature failures never get here: the HTTP layer rejects
// those with a 403 before acknowledging the delivery.
type failureClass string

const (
	failBadPayload  failureClass = "bad_payload"
	failRateLimited failureClass = "rate_limited"
	failChannel     failureClass = "channel_resolution"
	failHandler     failureClass = "handler"
)

// dropPolicy fixes, per failure class, how the drop is counted and whether
// the sender hears back. Malformed payloads and rate limiting stay silent;
// a handler failure gets a generic apology so the sender is not left hanging.
var dropPolicy = map[failureClass]struct {
	outcome string
	reply   string
}{
	failBadPayload:  {outcome: metrics.OutcomeIgnored},
	failRateLimited: {outcome: metrics.OutcomeDroppedRate},
	failChannel:     {outcome: metrics.OutcomeFailed},
	failHandler: {
		outcome: metrics.OutcomeFailed,
		reply:   "Tuvimos un problema procesando tu mensaje. Probá de nuevo en unos minutos. 🙏",
	},
}

func (d *Dispatcher) drop(ctx context.Context, target messenger.Target, from string, class failureClass) {
	policy := dropPolicy[class]
	d.metrics.InboundEvents.WithLabelValues(policy.outcome).Inc()
	if policy.reply != "" && from != "" {
		d.deliver(ctx, target, reply(from, policy.reply))
	}
}

// Process flattens one webhook body and routes each event. It runs after the
// HTTP layer has already acknowledged the delivery, so failures are absorbed
// here: logged, counted and resolved per dropPolicy, never re-raised to the
// gateway.
func (d *Dispatcher) Process(ctx context.Context, raw []byte) {
	events, err := Extract(raw)
	if err != nil {
		d.log.Warn("unextractable webhook payload", zap.Error(err))
		d.drop(ctx, messenger.Target{}, "", failBadPayload)
		return
	}
	if len(events) == 0 {
		d.drop(ctx, messenger.Target{}, "", failBadPayload)
		return
	}

	for _, ev := range events {
		d.route(ctx, ev)
	}
}

func (d *Dispatcher) route(ctx context.Context, ev Event) {
	ctx = tenantctx.WithSender(ctx, ev.From)
	log := logger.WithContext(ctx, d.log)

	if !d.limiter.Allow(ev.From) {
		log.Debug("rate limited")
		d.drop(ctx, messenger.Target{}, ev.From, failRateLimited)
		return
	}

	channel, target, err := d.resolveChannel(ctx, ev.PhoneNumberID)
	if err != nil {
		log.Error("channel resolution failed",
			zap.String("phone_number_id", ev.PhoneNumberID), zap.Error(err))
		d.drop(ctx, messenger.Target{}, ev.From, failChannel)
		return
	}

	if ev.MessageID != "" && target.AccessToken != "" {
		if err := d.messenger.MarkRead(ctx, target, ev.MessageID); err != nil {
			log.Debug("mark read failed", zap.String("message_id", ev.MessageID), zap.Error(err))
		}
	}

	out, err := d.handle(ctx, ev, channel, target)
	if err != nil {
		log.Error("event handling failed",
			zap.String("phone_number_id", ev.PhoneNumberID),
			zap.Error(err))
		d.drop(ctx, target, ev.From, failHandler)
		return
	}

	d.metrics.InboundEvents.WithLabelValues(metrics.OutcomeProcessed).Inc()
	d.deliver(ctx, target, out)
}

// resolveChannel maps the receiving phone number id to tenant credentials,
// falling back to the deployment-wide channel when no binding exists.
func (d *Dispatcher) resolveChannel(ctx context.Context, phoneNumberID string) (*tenantdomain.Channel, messenger.Target, error) {
	channel, found, err := d.resolver.Resolve(ctx, phoneNumberID)
	if err != nil {
		return nil, messenger.Target{}, err
	}
	if found {
		return &channel, messenger.Target{
			AccessToken:   channel.AccessToken,
			PhoneNumberID: channel.PhoneNumberID,
			CatalogID:     channel.CatalogID,
		}, nil
	}
	return nil, messenger.Target{
		AccessToken:   d.cfg.Channel.AccessToken,
		PhoneNumberID: phoneNumberID,
		CatalogID:     d.cfg.Channel.CatalogID,
	}, nil
}

func (d *Dispatcher) handle(ctx context.Context, ev Event, channel *tenantdomain.Channel, target messenger.Target) ([]messenger.Outgoing, error) {
	admin, err := d.registration.FindAdmin(ctx, ev.From)
	if err != nil {
		return nil, fmt.Errorf("admin lookup: %w", err)
	}
	if admin != nil {
		return d.adminFlow.Handle(ctx, adminflow.Input{
			Phone:     ev.From,
			Text:      ev.Text,
			CatalogID: target.CatalogID,
		})
	}

	if d.registration.LooksLikeInvite(ev.Text) {
		return d.register(ctx, ev)
	}

	business, err := d.resolveBusiness(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("business lookup: %w", err)
	}
	if business == nil || !business.Active {
		return reply(ev.From, "Este número todavía no está atendiendo pedidos. Volvé a intentar más tarde. 🙏"), nil
	}

	ctx = tenantctx.WithBusinessID(ctx, business.ID)
	logger.WithContext(ctx, d.log).Debug("routing customer event")
	return d.customerFlow.Handle(ctx, customerflow.Input{
		Phone:     ev.From,
		Text:      ev.Text,
		CartItems: ev.CartItems,
		CatalogID: target.CatalogID,
	}, business)
}

func (d *Dispatcher) register(ctx context.Context, ev Event) ([]messenger.Outgoing, error) {
	_, err := d.registration.Register(ctx, admindomain.RegisterRequest{
		Phone:         ev.From,
		Name:          ev.SenderName,
		Code:          ev.Text,
		PhoneNumberID: ev.PhoneNumberID,
	})
	switch {
	case errors.Is(err, admindomain.ErrInviteNotFound):
		return reply(ev.From, "Ese código de invitación no es válido. Revisalo e intentá de nuevo."), nil
	case errors.Is(err, admindomain.ErrInviteAlreadyUsed):
		return reply(ev.From, "Ese código de invitación ya fue usado."), nil
	case errors.Is(err, admindomain.ErrInviteWrongChannel):
		return reply(ev.From, "Ese código de invitación no corresponde a este número."), nil
	case errors.Is(err, admindomain.ErrAlreadyRegistered):
		return reply(ev.From, "Ya tenés un negocio registrado con este teléfono. Escribí AYUDA para ver los comandos."), nil
	case err != nil:
		return nil, fmt.Errorf("register admin: %w", err)
	}

	return reply(ev.From,
		"¡Bienvenido/a! 🎉 Vamos a configurar tu negocio en unos pasos.",
		"Primero: ¿cómo se llama tu negocio?",
	), nil
}

func (d *Dispatcher) resolveBusiness(ctx context.Context, channel *tenantdomain.Channel) (*bizdomain.Business, error) {
	if channel != nil && channel.BusinessID != nil {
		return d.bizRepo.FindByID(ctx, d.db, *channel.BusinessID)
	}
	// Single-tenant deployments have no channel binding; serve the one active
	// business.
	return d.bizRepo.FindFirstActive(ctx, d.db)
}

func (d *Dispatcher) deliver(ctx context.Context, target messenger.Target, out []messenger.Outgoing) {
	if target.AccessToken == "" {
		if len(out) > 0 {
			d.log.Warn("no channel credentials, dropping outbound messages", zap.Int("count", len(out)))
		}
		return
	}
	for _, msg := range out {
		if err := messenger.Deliver(ctx, d.messenger, target, msg); err != nil {
			d.log.Error("outbound delivery failed",
				zap.String("to", msg.To),
				zap.String("kind", string(msg.Kind)),
				zap.Error(err))
		}
	}
}

func reply(to string, bodies ...string) []messenger.Outgoing {
	out := make([]messenger.Outgoing, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, messenger.Text(to, b))
	}
	return out
}

var Module = fx.Module("dispatcher",
	fx.Provide(New),
)
