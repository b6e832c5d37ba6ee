package history

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
	"github.com/marcaromas/marcaromas-backend/pkg/enums"
)

func setupHistoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	orderHistory := `
CREATE TABLE IF NOT EXISTS order_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  from_status TEXT,
  to_status TEXT,
  event_status TEXT NOT NULL DEFAULT 'success',
  actor_user_id TEXT,
  description TEXT NOT NULL,
  dedup_key TEXT UNIQUE,
  metadata TEXT,
  created_at DATETIME
);`
	subscriptionHistory := `
CREATE TABLE IF NOT EXISTS subscription_history (
  id TEXT PRIMARY KEY,
  subscription_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  from_status TEXT,
  to_status TEXT,
  event_status TEXT NOT NULL DEFAULT 'success',
  actor_user_id TEXT,
  description TEXT NOT NULL,
  dedup_key TEXT UNIQUE,
  metadata TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orderHistory).Error)
	require.NoError(t, db.Exec(subscriptionHistory).Error)
	return db
}

func TestAppendAndListOrderEvents(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	from := enums.OrderStatusPending
	to := enums.OrderStatusConfirmed

	first := &models.OrderHistory{
		ID:          uuid.New(),
		OrderID:     orderID,
		EventType:   enums.OrderEventStatusChange,
		FromStatus:  &from,
		ToStatus:    &to,
		EventStatus: enums.EventStatusSuccess,
		Description: "order confirmed",
	}
	require.NoError(t, repo.AppendOrderEvent(ctx, first))

	second := &models.OrderHistory{
		ID:          uuid.New(),
		OrderID:     orderID,
		EventType:   enums.OrderEventPayment,
		EventStatus: enums.EventStatusSuccess,
		Description: "payment approved",
	}
	require.NoError(t, repo.AppendOrderEvent(ctx, second))

	entries, err := repo.ListOrderEvents(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, enums.OrderEventStatusChange, entries[0].EventType)
	require.Equal(t, enums.OrderEventPayment, entries[1].EventType)

	other, err := repo.ListOrderEvents(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestAppendAndListSubscriptionEvents(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	subID := uuid.New()
	from := enums.SubscriptionStatusActive
	to := enums.SubscriptionStatusPaused

	entry := &models.SubscriptionHistory{
		ID:             uuid.New(),
		SubscriptionID: subID,
		EventType:      enums.SubscriptionEventPause,
		FromStatus:     &from,
		ToStatus:       &to,
		EventStatus:    enums.EventStatusSuccess,
		Description:    "paused by customer",
	}
	require.NoError(t, repo.AppendSubscriptionEvent(ctx, entry))

	entries, err := repo.ListSubscriptionEvents(ctx, subID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, enums.SubscriptionEventPause, entries[0].EventType)
	require.Equal(t, enums.SubscriptionStatusActive, *entries[0].FromStatus)
}

func TestOrderEventExistsByDedupKey(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	key := "12345:approved"
	entry := &models.OrderHistory{
		ID:          uuid.New(),
		OrderID:     uuid.New(),
		EventType:   enums.OrderEventPayment,
		EventStatus: enums.EventStatusSuccess,
		Description: "payment approved",
		DedupKey:    &key,
	}
	require.NoError(t, repo.AppendOrderEvent(ctx, entry))

	exists, err := repo.OrderEventExistsByDedupKey(ctx, key)
	require.NoError(t, err)
	require.True(t, exists)

	missing, err := repo.OrderEventExistsByDedupKey(ctx, "99999:refunded")
	require.NoError(t, err)
	require.False(t, missing)
}
