package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/loopworks/traintrack-backend/internal/domain"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
)

type EventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, events []*types.AuditEvent) ([]*types.AuditEvent, error)
	ListByWorker(ctx context.Context, tx *gorm.DB, workerID uuid.UUID, limit int) ([]*types.AuditEvent, error)
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	repoLog := baseLog.With("repo", "AuditEventRepo")
	return &eventRepo{db: db, log: repoLog}
}

func (r *eventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.AuditEvent) ([]*types.AuditEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(events) == 0 {
		return []*types.AuditEvent{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepo) ListByWorker(ctx context.Context, tx *gorm.DB, workerID uuid.UUID, limit int) ([]*types.AuditEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AuditEvent
	if workerID == uuid.Nil {
		return results, nil
	}
	if limit <= 0 {
		limit = 50
	}

	if err := transaction.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
