package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/guestlink/guestlink/pkg/models"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Website{}, &models.Cart{}, &models.CartItem{}))
	return NewService(db, zap.NewNop()), db
}

func seedWebsite(t *testing.T, db *gorm.DB, price int64) *models.Website {
	t.Helper()
	website := &models.Website{
		ID:     uuid.New(),
		Domain: fmt.Sprintf("site-%s.example.com", uuid.NewString()[:8]),
		Title:  "A site",
		Price:  decimal.NewFromInt(price),
	}
	require.NoError(t, db.Create(website).Error)
	return website
}

func TestGet_EmptyCart(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()

	cart, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, cart.UserID)
	assert.Empty(t, cart.Items)
}

func TestAdd(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	website := seedWebsite(t, db, 75)

	cart, err := svc.Add(ctx, userID, website.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, website.ID, cart.Items[0].WebsiteID)
	assert.True(t, cart.Items[0].Price.Equal(decimal.NewFromInt(75)), "price captured at add time")

	// Same website twice is rejected.
	_, err = svc.Add(ctx, userID, website.ID)
	assert.ErrorIs(t, err, ErrAlreadyInCart)

	// Unknown website is rejected.
	_, err = svc.Add(ctx, userID, uuid.New())
	assert.ErrorIs(t, err, ErrWebsiteNotFound)
}

func TestAdd_PriceUnaffectedByLaterChanges(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	website := seedWebsite(t, db, 75)

	_, err := svc.Add(ctx, userID, website.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(website).Update("price", decimal.NewFromInt(200)).Error)

	cart, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.True(t, cart.Items[0].Price.Equal(decimal.NewFromInt(75)))
}

func TestRemove(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	first := seedWebsite(t, db, 75)
	second := seedWebsite(t, db, 30)

	_, err := svc.Add(ctx, userID, first.ID)
	require.NoError(t, err)
	_, err = svc.Add(ctx, userID, second.ID)
	require.NoError(t, err)

	cart, err := svc.Remove(ctx, userID, first.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, second.ID, cart.Items[0].WebsiteID)

	// Removing again misses.
	_, err = svc.Remove(ctx, userID, first.ID)
	assert.ErrorIs(t, err, ErrNotInCart)

	// A user without a cart cannot remove anything.
	_, err = svc.Remove(ctx, uuid.New(), first.ID)
	assert.ErrorIs(t, err, ErrNotInCart)
}
