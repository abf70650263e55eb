package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrOrderNotFound     = errors.New("order_not_found")
	ErrTerminalStatus    = errors.New("order_status_terminal")
	ErrCancelNotAllowed  = errors.New("order_cancel_not_allowed")
	ErrEmptyOrder        = errors.New("order_has_no_items")
	ErrInvalidTransition = errors.New("order_status_invalid_transition")
)

// CreateOrderRequest carries everything needed to persist one order.
type CreateOrderRequest struct {
	BusinessID     snowflake.ID
	ClientPhone    string
	ClientName     string
	ClientAddress  string
	Items          []Item
	DeliveryZoneID *snowflake.ID
	DeliveryPrice  int64
	PaymentMethod  string
	DepositAmount  int64
	Notes          string
}

// SalesSummary aggregates orders since a cutoff. Revenue counts only orders
// with a confirmed payment that were not cancelled.
type SalesSummary struct {
	Total           int
	Delivered       int
	Confirmed       int
	Cancelled       int
	InProgress      int
	TotalRevenue    int64
	TransferRevenue int64
	CashRevenue     int64
}

// Service owns order creation and the two status machines.
type Service interface {
	Create(ctx context.Context, req CreateOrderRequest) (Order, error)
	Get(ctx context.Context, businessID snowflake.ID, orderNumber int) (Order, error)
	GetForClient(ctx context.Context, businessID snowflake.ID, clientPhone string, orderNumber int) (Order, error)
	Pending(ctx context.Context, businessID snowflake.ID) ([]Order, error)
	CountSince(ctx context.Context, businessID snowflake.ID, since time.Time) (int64, error)

	// AdvanceStatus moves the fulfillment status; terminal states reject
	// further transitions.
	AdvanceStatus(ctx context.Context, businessID snowflake.ID, orderNumber int, status OrderStatus) (Order, error)

	// ConfirmPayment is idempotent: confirming an already-confirmed payment
	// reports alreadyConfirmed=true and changes nothing.
	ConfirmPayment(ctx context.Context, businessID snowflake.ID, orderNumber int) (order Order, alreadyConfirmed bool, err error)

	// Reject cancels an order with an optional reason. Rejecting an
	// already-cancelled order is a no-op reported via alreadyCancelled.
	Reject(ctx context.Context, businessID snowflake.ID, orderNumber int, reason string) (order Order, alreadyCancelled bool, err error)

	// CancelForClient cancels the client's own order, permitted only while
	// the fulfillment status is still "nuevo".
	CancelForClient(ctx context.Context, businessID snowflake.ID, clientPhone string, orderNumber int) (Order, error)

	Sales(ctx context.Context, businessID snowflake.ID, since time.Time) (SalesSummary, error)
}
