// Package domain contains order records and their status machines.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// OrderStatus is the fulfillment status. Cancelado and entregado are terminal.
type OrderStatus string

const (
	StatusNew       OrderStatus = "nuevo"
	StatusPreparing OrderStatus = "preparando"
	StatusEnRoute   OrderStatus = "en_camino"
	StatusDelivered OrderStatus = "entregado"
	StatusCancelled OrderStatus = "cancelado"
)

// Terminal reports whether no further fulfillment transitions are allowed.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// PaymentStatus evolves independently of fulfillment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
)

// Payment methods accepted at checkout.
const (
	PayCash     = "cash"
	PayTransfer = "transfer"
	PayDeposit  = "deposit"
)

// Item is one snapshot line inside an order. Orders are immutable once
// created; the snapshot does not follow later catalog edits.
type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Qty       int    `json:"qty"`
	LineTotal int64  `json:"line_total"`
}

// Order is scoped to exactly one business; every query is parameterized by
// business id so cross-tenant lookup is impossible by construction.
type Order struct {
	ID             snowflake.ID   `gorm:"primaryKey"`
	BusinessID     snowflake.ID   `gorm:"not null;index:ux_orders_business_number,unique,priority:1"`
	OrderNumber    int            `gorm:"not null;index:ux_orders_business_number,unique,priority:2"`
	ClientPhone    string         `gorm:"type:text;not null;index"`
	ClientName     string         `gorm:"type:text"`
	ClientAddress  string         `gorm:"type:text"`
	Items          datatypes.JSON `gorm:"not null"`
	Subtotal       int64          `gorm:"not null"`
	DeliveryZoneID *snowflake.ID  `gorm:""`
	DeliveryPrice  int64          `gorm:"not null;default:0"`
	GrandTotal     int64          `gorm:"not null"`
	PaymentMethod  string         `gorm:"type:text;not null"`
	DepositAmount  int64          `gorm:"not null;default:0"`
	OrderStatus    OrderStatus    `gorm:"type:text;not null;default:nuevo"`
	PaymentStatus  PaymentStatus  `gorm:"type:text;not null;default:pending"`
	Notes          string         `gorm:"type:text"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Order) TableName() string { return "orders" }
