package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marcaromas/marcaromas-backend/pkg/db/models"
)

// DeadLetterRepository persists webhook deliveries the reconciler could not
// apply, so operators can replay them once the missing reference exists.
type DeadLetterRepository struct {
	db *gorm.DB
}

func NewDeadLetterRepository(db *gorm.DB) *DeadLetterRepository {
	return &DeadLetterRepository{db: db}
}

// Record stores a failed delivery. A redelivery of the same gateway event
// bumps the attempt counter instead of inserting a second row.
func (r *DeadLetterRepository) Record(ctx context.Context, entry *models.WebhookDeadLetter) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider"}, {Name: "gateway_event_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"attempt_count": gorm.Expr("webhook_dead_letters.attempt_count + 1"),
				"reason":        entry.Reason,
			}),
		}).
		Create(entry).Error
}

// ListUnresolved returns the oldest unresolved entries for the operator view.
func (r *DeadLetterRepository) ListUnresolved(ctx context.Context, limit int) ([]models.WebhookDeadLetter, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.WebhookDeadLetter
	err := r.db.WithContext(ctx).
		Where("resolved_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkResolved stamps an entry after a successful replay.
func (r *DeadLetterRepository) MarkResolved(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookDeadLetter{}).
		Where("id = ?", id).
		Update("resolved_at", at).Error
}
