package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditrepos "github.com/loopworks/traintrack-backend/internal/data/repos/audit"
	types "github.com/loopworks/traintrack-backend/internal/domain"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
)

type AuditEventInput struct {
	WorkerID uuid.UUID
	Type     string
	LevelID  *uuid.UUID
	CourseID *uuid.UUID
	Payload  map[string]any
}

// AuditService records progression events on a best-effort basis. Record never
// blocks the caller and never fails it: the write happens on a detached
// context in a goroutine, and a lost event is only a warning in the log.
type AuditService interface {
	Record(ctx context.Context, input AuditEventInput)
	ListForWorker(ctx context.Context, workerID uuid.UUID, limit int) ([]*types.AuditEvent, error)
}

type auditService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo auditrepos.EventRepo
}

func NewAuditService(db *gorm.DB, baseLog *logger.Logger, repo auditrepos.EventRepo) AuditService {
	return &auditService{
		db:   db,
		log:  baseLog.With("service", "AuditService"),
		repo: repo,
	}
}

func (s *auditService) Record(_ context.Context, input AuditEventInput) {
	if input.WorkerID == uuid.Nil || input.Type == "" {
		return
	}

	now := time.Now().UTC()
	event := &types.AuditEvent{
		ID:         uuid.New(),
		WorkerID:   input.WorkerID,
		Type:       input.Type,
		LevelID:    input.LevelID,
		CourseID:   input.CourseID,
		OccurredAt: now,
	}
	if len(input.Payload) > 0 {
		if raw, err := json.Marshal(input.Payload); err == nil {
			event.Payload = datatypes.JSON(raw)
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.repo.Create(ctx, nil, []*types.AuditEvent{event}); err != nil {
			s.log.Warn("audit event dropped",
				"type", event.Type,
				"worker_id", event.WorkerID.String(),
				"error", err,
			)
		}
	}()
}

func (s *auditService) ListForWorker(ctx context.Context, workerID uuid.UUID, limit int) ([]*types.AuditEvent, error) {
	return s.repo.ListByWorker(ctx, nil, workerID, limit)
}
