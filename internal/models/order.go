package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. Forward transitions follow the listed sequence;
// cancelled is reachable from any non-terminal state.
const (
	OrderPending        = "pending"
	OrderConfirmed      = "confirmed"
	OrderPreparing      = "preparing"
	OrderReady          = "ready"
	OrderPickedUp       = "picked_up"
	OrderOutForDelivery = "out_for_delivery"
	OrderDelivered      = "delivered"
	OrderCancelled      = "cancelled"
)

// Actors recorded on status history entries.
const (
	ActorSettlement = "settlement"
	ActorCustomer   = "customer"
	ActorVendor     = "vendor"
)

// Order is a marketplace order. Orders are created either directly by a
// customer checkout or by split-payment settlement; in both cases they
// start at pending with an initial history entry naming the source.
type Order struct {
	ID              string          `gorm:"primaryKey;size:36"`
	VendorID        string          `gorm:"size:36;not null;index"`
	CustomerID      string          `gorm:"size:36;index"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency        string          `gorm:"size:8;not null"`
	Status          string          `gorm:"size:24;not null;index"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID"`
	History         []StatusHistory `gorm:"foreignKey:OrderID"`
	DeliveryAddress string          `gorm:"size:512"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderItem struct {
	ID        string          `gorm:"primaryKey;size:36"`
	OrderID   string          `gorm:"size:36;not null;index"`
	ProductID string          `gorm:"size:36;not null"`
	Name      string          `gorm:"size:255;not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time
}

// StatusHistory is one append-only record per order status transition.
// History is never edited or deleted. Seq is a per-order monotonic
// sequence so ordering does not depend on clock resolution.
type StatusHistory struct {
	ID      string `gorm:"primaryKey;size:36"`
	OrderID string `gorm:"size:36;not null;index"`
	Seq     int    `gorm:"not null"`
	Status  string `gorm:"size:24;not null"`
	Message string `gorm:"size:512"`
	Actor   string `gorm:"size:64;not null"`
	CreatedAt time.Time
}
