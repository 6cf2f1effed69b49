package repo

import (
	"context"

	"github.com/librarydesk/circulation/internal/db"
	"go.uber.org/zap"
)

// AuditRepository persists ledger events received from the broker
type AuditRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(database *db.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		db:  database,
		log: logger,
	}
}

// Record stores ev. Redelivered events (same event id) are ignored and
// reported with stored=false.
func (r *AuditRepository) Record(ctx context.Context, ev *db.AuditEvent) (stored bool, err error) {
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		if isDuplicateKey(err) {
			r.log.Debug("Audit event already recorded", zap.String("event_id", ev.EventID))
			return false, nil
		}
		r.log.Error("Failed to record audit event", zap.String("event_id", ev.EventID), zap.Error(err))
		return false, err
	}
	return true, nil
}

// ListForRecord returns the audit trail of one borrow record, oldest first.
func (r *AuditRepository) ListForRecord(ctx context.Context, recordID string) ([]db.AuditEvent, error) {
	var events []db.AuditEvent
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("occurred_at ASC, event_id ASC").
		Find(&events).Error
	return events, err
}

// ListRecent returns the newest limit events of any type.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]db.AuditEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	var events []db.AuditEvent
	err := r.db.WithContext(ctx).
		Order("occurred_at DESC, event_id ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
