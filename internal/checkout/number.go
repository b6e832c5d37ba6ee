package checkout

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// nextOrderNumber hands out the next ORD-<year>-<seq> identifier. The
// per-year counter row is upserted atomically so concurrent checkouts never
// share a sequence value.
func nextOrderNumber(ctx context.Context, tx *gorm.DB, year int) (string, error) {
	var seq int64
	err := tx.WithContext(ctx).Raw(`
		INSERT INTO order_counters (year, last_seq) VALUES (?, 1)
		ON CONFLICT (year) DO UPDATE SET last_seq = order_counters.last_seq + 1
		RETURNING last_seq
	`, year).Scan(&seq).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%d-%06d", year, seq), nil
}
