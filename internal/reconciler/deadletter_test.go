package reconciler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
)

func setupDeadLetterTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS webhook_dead_letters (
  id TEXT PRIMARY KEY,
  provider TEXT NOT NULL DEFAULT 'mercadopago',
  gateway_event_id TEXT NOT NULL,
  gateway_payment_id TEXT NOT NULL,
  external_reference TEXT,
  topic TEXT NOT NULL,
  payload TEXT NOT NULL,
  reason TEXT NOT NULL,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  resolved_at DATETIME,
  created_at DATETIME,
  UNIQUE (provider, gateway_event_id)
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func sampleDeadLetter(eventID string) *models.WebhookDeadLetter {
	ref := "order:" + uuid.NewString()
	return &models.WebhookDeadLetter{
		ID:                uuid.New(),
		Provider:          "mercadopago",
		GatewayEventID:    eventID,
		GatewayPaymentID:  "990001",
		ExternalReference: &ref,
		Topic:             "payment",
		Payload:           json.RawMessage(`{"data":{"id":"990001"}}`),
		Reason:            "order not found",
		AttemptCount:      1,
	}
}

func TestRecordDuplicateEventBumpsAttempts(t *testing.T) {
	db := setupDeadLetterTestDB(t)
	repo := NewDeadLetterRepository(db)
	ctx := context.Background()

	first := sampleDeadLetter("evt-dup")
	require.NoError(t, repo.Record(ctx, first))

	second := sampleDeadLetter("evt-dup")
	second.Reason = "order not found after retry"
	require.NoError(t, repo.Record(ctx, second))

	rows, err := repo.ListUnresolved(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 2, rows[0].AttemptCount)
	require.Equal(t, "order not found after retry", rows[0].Reason)
}

func TestListUnresolvedSkipsResolved(t *testing.T) {
	db := setupDeadLetterTestDB(t)
	repo := NewDeadLetterRepository(db)
	ctx := context.Background()

	open := sampleDeadLetter("evt-open")
	done := sampleDeadLetter("evt-done")
	require.NoError(t, repo.Record(ctx, open))
	require.NoError(t, repo.Record(ctx, done))
	require.NoError(t, repo.MarkResolved(ctx, done.ID, time.Now().UTC()))

	rows, err := repo.ListUnresolved(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "evt-open", rows[0].GatewayEventID)
}
