// Package cart manages the per-user shopping cart of website placements.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/guestlink/guestlink/pkg/models"
)

var (
	// ErrWebsiteNotFound is returned when adding an unknown website.
	ErrWebsiteNotFound = errors.New("website not found")

	// ErrAlreadyInCart is returned when adding a website twice.
	ErrAlreadyInCart = errors.New("website already in cart")

	// ErrNotInCart is returned when removing a website that is not in the cart.
	ErrNotInCart = errors.New("website not in cart")
)

// Service implements cart operations. Each user has at most one cart,
// created lazily on first add.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a cart service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Get returns the user's cart with its items. A user without a cart gets
// an empty one (not persisted).
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &cart, nil
}

// Add puts a website into the user's cart, capturing the current price.
func (s *Service) Add(ctx context.Context, userID, websiteID uuid.UUID) (*models.Cart, error) {
	var website models.Website
	if err := s.db.WithContext(ctx).Where("id = ?", websiteID).First(&website).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWebsiteNotFound
		}
		return nil, fmt.Errorf("failed to load website: %w", err)
	}

	var cart models.Cart
	err := s.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load cart: %w", err)
		}
		cart = models.Cart{ID: uuid.New(), UserID: userID}
		if err := s.db.WithContext(ctx).Create(&cart).Error; err != nil {
			return nil, fmt.Errorf("failed to create cart: %w", err)
		}
	}

	for _, item := range cart.Items {
		if item.WebsiteID == websiteID {
			return nil, ErrAlreadyInCart
		}
	}

	item := models.CartItem{
		ID:        uuid.New(),
		CartID:    cart.ID,
		WebsiteID: websiteID,
		Price:     website.Price,
		AddedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	cart.Items = append(cart.Items, item)
	return &cart, nil
}

// Remove takes a website out of the user's cart.
func (s *Service) Remove(ctx context.Context, userID, websiteID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotInCart
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	found := false
	remaining := cart.Items[:0]
	for _, item := range cart.Items {
		if item.WebsiteID == websiteID {
			found = true
			continue
		}
		remaining = append(remaining, item)
	}
	if !found {
		return nil, ErrNotInCart
	}

	if err := s.db.WithContext(ctx).
		Where("cart_id = ? AND website_id = ?", cart.ID, websiteID).
		Delete(&models.CartItem{}).Error; err != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}

	cart.Items = remaining
	return &cart, nil
}
