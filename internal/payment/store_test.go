package payment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/guestlink/guestlink/pkg/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, ref, status string) {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Reference:     ref,
		Status:        status,
		PaymentStatus: models.PaymentStatusUnpaid,
	}
	require.NoError(t, db.Create(order).Error)
}

func TestGormOrderStore_FindByReference(t *testing.T) {
	db := newTestDB(t)
	store := NewGormOrderStore(db)
	ctx := context.Background()

	seedOrder(t, db, "ORD-1", models.OrderStatusPending)

	order, err := store.FindByReference(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", order.Reference)
	assert.Equal(t, models.OrderStatusPending, order.Status)

	_, err = store.FindByReference(ctx, "ORD-MISSING")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGormOrderStore_SettleIfPending(t *testing.T) {
	db := newTestDB(t)
	store := NewGormOrderStore(db)
	ctx := context.Background()

	seedOrder(t, db, "ORD-1", models.OrderStatusPending)
	paidAt := time.Now().UTC().Truncate(time.Second)

	applied, err := store.SettleIfPending(ctx, "ORD-1", "PAY-9", "cafe01", paidAt)
	require.NoError(t, err)
	assert.True(t, applied)

	order, err := store.FindByReference(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "PAY-9", order.PaymentRef)
	assert.Equal(t, "cafe01", order.PaymentSignature)
	require.NotNil(t, order.PaidAt)

	// Second attempt is a no-op: the conditional update misses.
	applied, err = store.SettleIfPending(ctx, "ORD-1", "PAY-10", "beef02", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, applied)

	order, err = store.FindByReference(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "PAY-9", order.PaymentRef, "details must not be rewritten")
	assert.Equal(t, "cafe01", order.PaymentSignature)
}

func TestGormOrderStore_SettleIfPending_NonPendingStates(t *testing.T) {
	db := newTestDB(t)
	store := NewGormOrderStore(db)
	ctx := context.Background()

	seedOrder(t, db, "ORD-CANCELLED", models.OrderStatusCancelled)
	seedOrder(t, db, "ORD-PROCESSING", models.OrderStatusProcessing)

	for _, ref := range []string{"ORD-CANCELLED", "ORD-PROCESSING", "ORD-MISSING"} {
		applied, err := store.SettleIfPending(ctx, ref, "PAY-9", "cafe01", time.Now().UTC())
		require.NoError(t, err)
		assert.False(t, applied, "order %s must not settle", ref)
	}

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Where("status = ?", models.OrderStatusCompleted).Count(&count).Error)
	assert.Zero(t, count)
}
