package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/guestlink/guestlink/pkg/models"
)

// GormOrderStore implements OrderStore on top of the orders table. The
// settlement write is a single conditional UPDATE keyed on the prior status,
// so no in-process locking is needed: the database serializes concurrent
// callbacks for the same reference and at most one sees RowsAffected == 1.
type GormOrderStore struct {
	db *gorm.DB
}

// NewGormOrderStore creates a gorm-backed order store.
func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{db: db}
}

// FindByReference returns the order with the given gateway reference.
func (s *GormOrderStore) FindByReference(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Where("reference = ?", ref).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to query order %s: %w", ref, err)
	}
	return &order, nil
}

// SettleIfPending applies the paid/completed transition iff the order is
// still pending.
func (s *GormOrderStore) SettleIfPending(ctx context.Context, ref, paymentRef, signature string, paidAt time.Time) (bool, error) {
	tx := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("reference = ? AND status = ?", ref, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":            models.OrderStatusCompleted,
			"payment_status":    models.PaymentStatusPaid,
			"payment_ref":       paymentRef,
			"payment_signature": signature,
			"paid_at":           paidAt,
		})
	if tx.Error != nil {
		return false, fmt.Errorf("failed to update order %s: %w", ref, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}
