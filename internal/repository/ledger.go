package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/patisso/patisso/internal/models"
)

// Ensure GormLedgerRepository implements LedgerRepository.
var _ LedgerRepository = (*GormLedgerRepository)(nil)

// GormLedgerRepository is the gorm-backed ledger store.
type GormLedgerRepository struct {
	db *gorm.DB
}

func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Create persists a new co-payment with its contributors. IDs are
// generated when unset.
func (r *GormLedgerRepository) Create(ctx context.Context, cp *models.CoPayment) error {
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	for i := range cp.Contributors {
		if cp.Contributors[i].ID == "" {
			cp.Contributors[i].ID = uuid.New().String()
		}
		cp.Contributors[i].CoPaymentID = cp.ID
		cp.Contributors[i].Position = i
	}
	if err := r.db.WithContext(ctx).Create(cp).Error; err != nil {
		return fmt.Errorf("create co-payment: %w", err)
	}
	return nil
}

func (r *GormLedgerRepository) GetByID(ctx context.Context, id string) (*models.CoPayment, error) {
	return r.getBy(ctx, "id = ?", id)
}

func (r *GormLedgerRepository) GetByLinkedOrderID(ctx context.Context, orderID string) (*models.CoPayment, error) {
	return r.getBy(ctx, "linked_order_id = ?", orderID)
}

// GetByPaymentLinkID resolves the ledger owning a payment link, used by
// the gateway webhook path.
func (r *GormLedgerRepository) GetByPaymentLinkID(ctx context.Context, linkID string) (*models.CoPayment, error) {
	var ct models.Contributor
	err := r.db.WithContext(ctx).Where("payment_link_id = ?", linkID).First(&ct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find contributor by link: %w", err)
	}
	return r.GetByID(ctx, ct.CoPaymentID)
}

func (r *GormLedgerRepository) getBy(ctx context.Context, query string, arg any) (*models.CoPayment, error) {
	var cp models.CoPayment
	err := r.db.WithContext(ctx).
		Preload("Contributors", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where(query, arg).First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load co-payment: %w", err)
	}
	return &cp, nil
}

// MarkContributorsPaid stamps the paid transition. The WHERE clause keeps
// the transition monotonic: only pending rows move, so a repeated call or
// a racing reconciliation can never overwrite paid or its timestamp.
func (r *GormLedgerRepository) MarkContributorsPaid(ctx context.Context, contributorIDs []string, paidAt time.Time) error {
	if len(contributorIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.Contributor{}).
		Where("id IN ? AND status = ?", contributorIDs, models.ContributorPending).
		Updates(map[string]any{
			"status":  models.ContributorPaid,
			"paid_at": paidAt,
		}).Error
	if err != nil {
		return fmt.Errorf("mark contributors paid: %w", err)
	}
	return nil
}

// MarkContributorsFailed records a terminal provider failure for the
// given contributors. Same pending-only guard: a paid contributor is
// never regressed to failed, however the provider later reports the link.
func (r *GormLedgerRepository) MarkContributorsFailed(ctx context.Context, contributorIDs []string) error {
	if len(contributorIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.Contributor{}).
		Where("id IN ? AND status = ?", contributorIDs, models.ContributorPending).
		Update("status", models.ContributorFailed).Error
	if err != nil {
		return fmt.Errorf("mark contributors failed: %w", err)
	}
	return nil
}

// ClaimSettlement materializes the order and claims the ledger in one
// transaction. The claim is a compare-and-set on linked_order_id being
// null; losing it rolls back the freshly created order rows.
func (r *GormLedgerRepository) ClaimSettlement(ctx context.Context, coPaymentID string, materialize func(tx *gorm.DB) (string, error)) (string, bool, error) {
	var orderID string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		oid, err := materialize(tx)
		if err != nil {
			return err
		}
		res := tx.Model(&models.CoPayment{}).
			Where("id = ? AND linked_order_id IS NULL", coPaymentID).
			Updates(map[string]any{
				"status":          models.CoPaymentCompleted,
				"linked_order_id": oid,
			})
		if res.Error != nil {
			return fmt.Errorf("claim settlement: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadySettled
		}
		orderID = oid
		return nil
	})
	if errors.Is(err, ErrAlreadySettled) {
		cp, gerr := r.GetByID(ctx, coPaymentID)
		if gerr != nil {
			return "", false, gerr
		}
		if cp.LinkedOrderID == nil {
			// claimed by nobody yet the CAS missed: ledger is gone or corrupt
			return "", false, err
		}
		return *cp.LinkedOrderID, false, nil
	}
	if err != nil {
		return "", false, err
	}
	return orderID, true, nil
}

func (r *GormLedgerRepository) ListUnsettledIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.CoPayment{}).
		Where("status = ?", models.CoPaymentPending).
		Order("created_at").Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list unsettled co-payments: %w", err)
	}
	return ids, nil
}
