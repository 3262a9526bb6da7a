package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/patisso/patisso/internal/models"
)

// Ensure GormOrderRepository implements OrderRepository.
var _ OrderRepository = (*GormOrderRepository)(nil)

// GormOrderRepository is the gorm-backed order store.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// CreateFromSnapshot materializes an order from a co-payment snapshot
// inside the caller's transaction. The order starts at pending with
// history seq 1 attributed to the given actor, so settlement-produced
// orders stay distinguishable from direct checkouts.
func (r *GormOrderRepository) CreateFromSnapshot(tx *gorm.DB, snap *models.OrderSnapshot, total decimal.Decimal, currency, actor, message string) (*models.Order, error) {
	order := &models.Order{
		ID:              uuid.New().String(),
		VendorID:        snap.VendorID,
		CustomerID:      snap.CustomerID,
		TotalAmount:     total,
		Currency:        currency,
		Status:          models.OrderPending,
		DeliveryAddress: snap.DeliveryAddress,
	}
	for _, it := range snap.Items {
		order.Items = append(order.Items, models.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	order.History = []models.StatusHistory{{
		ID:      uuid.New().String(),
		OrderID: order.ID,
		Seq:     1,
		Status:  models.OrderPending,
		Message: message,
		Actor:   actor,
	}}
	if err := tx.Create(order).Error; err != nil {
		return nil, fmt.Errorf("materialize order: %w", err)
	}
	return order, nil
}

func (r *GormOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return &order, nil
}

// UpdateStatus writes the new status and appends the history entry in one
// transaction. Legality of the transition is the service's concern; the
// repository guarantees status and history never diverge, and that the
// write only lands if the order is still in the status the caller
// validated against (compare-and-set on the status column).
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, orderID, from, next, actor, message string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, from).
			Update("status", next)
		if res.Error != nil {
			return fmt.Errorf("update order status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
				return fmt.Errorf("check order existence: %w", err)
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrStatusConflict
		}
		var lastSeq int
		if err := tx.Model(&models.StatusHistory{}).
			Where("order_id = ?", orderID).
			Select("COALESCE(MAX(seq), 0)").Scan(&lastSeq).Error; err != nil {
			return fmt.Errorf("read last history seq: %w", err)
		}
		entry := models.StatusHistory{
			ID:      uuid.New().String(),
			OrderID: orderID,
			Seq:     lastSeq + 1,
			Status:  next,
			Message: message,
			Actor:   actor,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("append status history: %w", err)
		}
		return nil
	})
}

func (r *GormOrderRepository) History(ctx context.Context, orderID string) ([]models.StatusHistory, error) {
	var history []models.StatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).Order("seq").Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	if len(history) == 0 {
		// distinguish "no order" from "order without history" (the latter
		// cannot happen through this repository)
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check order existence: %w", err)
		}
		if count == 0 {
			return nil, ErrNotFound
		}
	}
	return history, nil
}
