package history

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/marcaromas/marcaromas-backend/pkg/db"
	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
)

// Repository appends and reads the order and subscription history ledgers.
// Entries are append-only: there is no update or delete path through this
// repository, matching the tables themselves.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AppendOrderEvent(ctx context.Context, entry *models.OrderHistory) error
	AppendSubscriptionEvent(ctx context.Context, entry *models.SubscriptionHistory) error
	ListOrderEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error)
	ListSubscriptionEvents(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionHistory, error)
	OrderEventExistsByDedupKey(ctx context.Context, dedupKey string) (bool, error)
	SubscriptionEventExistsByDedupKey(ctx context.Context, dedupKey string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a history repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// AppendOrderEvent inserts an order ledger entry. When the entry carries a
// dedup key and another entry already holds it, the insert is swallowed so
// replayed webhooks do not double-write the ledger.
func (r *repository) AppendOrderEvent(ctx context.Context, entry *models.OrderHistory) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil && entry.DedupKey != nil && dbpkg.IsUniqueViolation(err, "ux_order_history_dedup_key") {
		return nil
	}
	return err
}

func (r *repository) AppendSubscriptionEvent(ctx context.Context, entry *models.SubscriptionHistory) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil && entry.DedupKey != nil && dbpkg.IsUniqueViolation(err, "ux_subscription_history_dedup_key") {
		return nil
	}
	return err
}

func (r *repository) ListOrderEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	var entries []models.OrderHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListSubscriptionEvents(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionHistory, error) {
	var entries []models.SubscriptionHistory
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) OrderEventExistsByDedupKey(ctx context.Context, dedupKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderHistory{}).
		Where("dedup_key = ?", dedupKey).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) SubscriptionEventExistsByDedupKey(ctx context.Context, dedupKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SubscriptionHistory{}).
		Where("dedup_key = ?", dedupKey).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
