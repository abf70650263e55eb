// Package domain contains the persisted customer conversation state. One row
// per (phone, business); re-read on every inbound event so any instance can
// continue the conversation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Ordering steps. A conversation starts at StepBuildingCart; confirmation and
// cancellation both delete the row, so the next message starts fresh.
const (
	StepBuildingCart     = "building_cart"
	StepDeliveryMethod   = "delivery_method"
	StepDeliveryZone     = "delivery_zone"
	StepDeliveryAddress  = "delivery_address"
	StepPaymentMethod    = "payment_method"
	StepAwaitingTransfer = "awaiting_transfer"
)

const (
	DeliveryModeDelivery = "delivery"
	DeliveryModePickup   = "pickup"
)

// CartItem is one line of the in-progress cart. Prices are whole currency
// units, resolved against the live catalog at add time.
type CartItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Qty       int    `json:"qty"`
}

// State is one customer's position in the ordering flow for one business.
type State struct {
	ID              snowflake.ID   `gorm:"primaryKey"`
	Phone           string         `gorm:"type:text;not null;uniqueIndex:ux_customer_states_phone_business"`
	BusinessID      snowflake.ID   `gorm:"not null;uniqueIndex:ux_customer_states_phone_business"`
	CurrentStep     string         `gorm:"type:text;not null"`
	Cart            datatypes.JSON `gorm:""`
	Name            string         `gorm:"type:text"`
	DeliveryMode    string         `gorm:"type:text"`
	DeliveryZoneID  *snowflake.ID  `gorm:""`
	DeliveryPrice   int64          `gorm:"not null;default:0"`
	DeliveryAddress string         `gorm:"type:text"`
	PaymentMethod   string         `gorm:"type:text"`
	UpdatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (State) TableName() string { return "customer_states" }
