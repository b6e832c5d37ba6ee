package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNextOrderNumberSequences(t *testing.T) {
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS order_counters (
  year INTEGER PRIMARY KEY,
  last_seq INTEGER NOT NULL DEFAULT 0
);`).Error)

	first, err := nextOrderNumber(context.Background(), db, 2026)
	require.NoError(t, err)
	require.Equal(t, "ORD-2026-000001", first)

	second, err := nextOrderNumber(context.Background(), db, 2026)
	require.NoError(t, err)
	require.Equal(t, "ORD-2026-000002", second)

	// each year counts independently
	otherYear, err := nextOrderNumber(context.Background(), db, 2027)
	require.NoError(t, err)
	require.Equal(t, "ORD-2027-000001", otherYear)
}
