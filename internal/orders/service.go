// Package orders turns carts into pending orders and manages their
// lifecycle outside the settlement flow.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/guestlink/guestlink/pkg/metrics"
	"github.com/guestlink/guestlink/pkg/models"
)

var (
	// ErrEmptyCart is returned at checkout when the cart has no items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrOrderNotFound is returned for unknown order references.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidStatus is returned for a status value outside the enum.
	ErrInvalidStatus = errors.New("invalid order status")

	// ErrInvalidTransition is returned for a disallowed status change.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Service implements order creation and lifecycle management.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates an orders service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Checkout converts the user's cart into a pending, unpaid order with a
// fresh gateway reference and clears the cart. Both happen in one
// transaction so a failed order creation leaves the cart intact.
func (s *Service) Checkout(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Preload("Items").Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmptyCart
			}
			return fmt.Errorf("failed to load cart: %w", err)
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(cart.Items))
		orderID := uuid.New()
		for _, cartItem := range cart.Items {
			total = total.Add(cartItem.Price)
			items = append(items, models.OrderItem{
				ID:        uuid.New(),
				OrderID:   orderID,
				WebsiteID: cartItem.WebsiteID,
				Price:     cartItem.Price,
				Status:    models.OrderStatusPending,
			})
		}

		order = &models.Order{
			ID:            orderID,
			UserID:        userID,
			Reference:     NewReference(),
			Items:         items,
			TotalPrice:    total,
			Status:        models.OrderStatusPending,
			PaymentStatus: models.PaymentStatusUnpaid,
		}
		if err := models.Validate(order); err != nil {
			return fmt.Errorf("order failed validation: %w", err)
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	s.logger.Info("order created",
		zap.String("order_reference", order.Reference),
		zap.String("user_id", userID.String()))
	return order, nil
}

// GetByReference returns the order with the given gateway reference.
func (s *Service) GetByReference(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").Where("reference = ?", ref).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to query order %s: %w", ref, err)
	}
	return &order, nil
}

// ListByUser returns all orders of a user, newest first.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus applies an operator-driven status change. The settlement
// transition (pending -> completed) belongs to the payment flow and is
// rejected here; cancellation is only allowed while the order is pending.
func (s *Service) UpdateStatus(ctx context.Context, ref, status string) (*models.Order, error) {
	switch status {
	case models.OrderStatusPending, models.OrderStatusProcessing,
		models.OrderStatusCompleted, models.OrderStatusCancelled:
	default:
		return nil, ErrInvalidStatus
	}

	order, err := s.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(order.Status, status) {
		return nil, ErrInvalidTransition
	}

	tx := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("reference = ? AND status = ?", ref, order.Status).
		Update("status", status)
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", ref, tx.Error)
	}
	if tx.RowsAffected == 0 {
		// Lost a race with a concurrent update; report the fresh state.
		return nil, ErrInvalidTransition
	}

	order.Status = status
	s.logger.Info("order status updated",
		zap.String("order_reference", ref),
		zap.String("status", status))
	return order, nil
}

func transitionAllowed(from, to string) bool {
	if from == to {
		return false
	}
	switch from {
	case models.OrderStatusPending:
		// completed is reserved for the settlement flow.
		return to == models.OrderStatusProcessing || to == models.OrderStatusCancelled
	case models.OrderStatusProcessing:
		return to == models.OrderStatusCancelled
	default:
		// completed and cancelled are terminal here.
		return false
	}
}

// NewReference produces an opaque gateway order reference.
func NewReference() string {
	return "ord_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
