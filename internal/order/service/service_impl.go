package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/internal/clock"
	"github.com/smallbiznis/ordena/internal/observability/metrics"
	"github.com/smallbiznis/ordena/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics
}

func New(p ServiceParam) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("order.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	if len(req.Items) == 0 {
		return domain.Order{}, domain.ErrEmptyOrder
	}

	var subtotal int64
	for i := range req.Items {
		req.Items[i].LineTotal = req.Items[i].UnitPrice * int64(req.Items[i].Qty)
		subtotal += req.Items[i].LineTotal
	}

	itemsJSON, err := json.Marshal(req.Items)
	if err != nil {
		return domain.Order{}, fmt.Errorf("marshal items: %w", err)
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:             s.genID.Generate(),
		BusinessID:     req.BusinessID,
		ClientPhone:    req.ClientPhone,
		ClientName:     req.ClientName,
		ClientAddress:  req.ClientAddress,
		Items:          datatypes.JSON(itemsJSON),
		Subtotal:       subtotal,
		DeliveryZoneID: req.DeliveryZoneID,
		DeliveryPrice:  req.DeliveryPrice,
		GrandTotal:     subtotal + req.DeliveryPrice,
		PaymentMethod:  req.PaymentMethod,
		DepositAmount:  req.DepositAmount,
		OrderStatus:    domain.StatusNew,
		PaymentStatus:  domain.PaymentPending,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, s.db, &order); err != nil {
		return domain.Order{}, err
	}

	s.metrics.OrdersCreated.Inc()
	s.log.Info("order created",
		zap.String("business_id", order.BusinessID.String()),
		zap.Int("order_number", order.OrderNumber),
		zap.Int64("grand_total", order.GrandTotal),
	)
	return order, nil
}

func (s *Service) Get(ctx context.Context, businessID snowflake.ID, orderNumber int) (domain.Order, error) {
	order, err := s.repo.FindByNumber(ctx, s.db, businessID, orderNumber)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return *order, nil
}

func (s *Service) GetForClient(ctx context.Context, businessID snowflake.ID, clientPhone string, orderNumber int) (domain.Order, error) {
	order, err := s.repo.FindByClientAndNumber(ctx, s.db, businessID, clientPhone, orderNumber)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return *order, nil
}

func (s *Service) Pending(ctx context.Context, businessID snowflake.ID) ([]domain.Order, error) {
	return s.repo.FindPending(ctx, s.db, businessID)
}

func (s *Service) CountSince(ctx context.Context, businessID snowflake.ID, since time.Time) (int64, error) {
	return s.repo.CountSince(ctx, s.db, businessID, since)
}

func (s *Service) AdvanceStatus(ctx context.Context, businessID snowflake.ID, orderNumber int, status domain.OrderStatus) (domain.Order, error) {
	order, err := s.Get(ctx, businessID, orderNumber)
	if err != nil {
		return domain.Order{}, err
	}
	if order.OrderStatus.Terminal() {
		return order, domain.ErrTerminalStatus
	}
	switch status {
	case domain.StatusPreparing, domain.StatusEnRoute, domain.StatusDelivered:
	default:
		return order, domain.ErrInvalidTransition
	}

	if err := s.repo.UpdateOrderStatus(ctx, s.db, businessID, orderNumber, status); err != nil {
		return order, err
	}
	order.OrderStatus = status
	return order, nil
}

func (s *Service) ConfirmPayment(ctx context.Context, businessID snowflake.ID, orderNumber int) (domain.Order, bool, error) {
	order, err := s.Get(ctx, businessID, orderNumber)
	if err != nil {
		return domain.Order{}, false, err
	}
	if order.PaymentStatus == domain.PaymentConfirmed {
		return order, true, nil
	}

	if err := s.repo.UpdatePaymentStatus(ctx, s.db, businessID, orderNumber, domain.PaymentConfirmed); err != nil {
		return order, false, err
	}
	order.PaymentStatus = domain.PaymentConfirmed
	s.log.Info("payment confirmed",
		zap.String("business_id", businessID.String()),
		zap.Int("order_number", orderNumber),
	)
	return order, false, nil
}

func (s *Service) Reject(ctx context.Context, businessID snowflake.ID, orderNumber int, reason string) (domain.Order, bool, error) {
	order, err := s.Get(ctx, businessID, orderNumber)
	if err != nil {
		return domain.Order{}, false, err
	}
	if order.OrderStatus == domain.StatusCancelled {
		return order, true, nil
	}
	if order.OrderStatus == domain.StatusDelivered {
		return order, false, domain.ErrTerminalStatus
	}

	if err := s.repo.UpdateOrderStatus(ctx, s.db, businessID, orderNumber, domain.StatusCancelled); err != nil {
		return order, false, err
	}
	order.OrderStatus = domain.StatusCancelled
	s.log.Info("order rejected",
		zap.String("business_id", businessID.String()),
		zap.Int("order_number", orderNumber),
		zap.String("reason", reason),
	)
	return order, false, nil
}

func (s *Service) CancelForClient(ctx context.Context, businessID snowflake.ID, clientPhone string, orderNumber int) (domain.Order, error) {
	order, err := s.GetForClient(ctx, businessID, clientPhone, orderNumber)
	if err != nil {
		return domain.Order{}, err
	}
	if order.OrderStatus != domain.StatusNew {
		return order, domain.ErrCancelNotAllowed
	}

	if err := s.repo.UpdateOrderStatus(ctx, s.db, businessID, orderNumber, domain.StatusCancelled); err != nil {
		return order, err
	}
	order.OrderStatus = domain.StatusCancelled
	return order, nil
}

func (s *Service) Sales(ctx context.Context, businessID snowflake.ID, since time.Time) (domain.SalesSummary, error) {
	orders, err := s.repo.FindSince(ctx, s.db, businessID, since)
	if err != nil {
		return domain.SalesSummary{}, err
	}

	summary := domain.SalesSummary{Total: len(orders)}
	for _, o := range orders {
		switch o.OrderStatus {
		case domain.StatusDelivered:
			summary.Delivered++
		case domain.StatusCancelled:
			summary.Cancelled++
		default:
			summary.InProgress++
		}

		if o.PaymentStatus == domain.PaymentConfirmed && o.OrderStatus != domain.StatusCancelled {
			summary.Confirmed++
			summary.TotalRevenue += o.GrandTotal
			switch o.PaymentMethod {
			case domain.PayTransfer, domain.PayDeposit:
				summary.TransferRevenue += o.GrandTotal
			case domain.PayCash:
				summary.CashRevenue += o.GrandTotal
			}
		}
	}
	return summary, nil
}
