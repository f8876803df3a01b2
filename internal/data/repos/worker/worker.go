package worker

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/loopworks/traintrack-backend/internal/domain"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
)

type WorkerRepo interface {
	Create(ctx context.Context, tx *gorm.DB, workers []*types.Worker) ([]*types.Worker, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Worker, error)
	GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*types.Worker, error)
}

type workerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkerRepo(db *gorm.DB, baseLog *logger.Logger) WorkerRepo {
	repoLog := baseLog.With("repo", "WorkerRepo")
	return &workerRepo{db: db, log: repoLog}
}

func (r *workerRepo) Create(ctx context.Context, tx *gorm.DB, workers []*types.Worker) ([]*types.Worker, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(workers) == 0 {
		return []*types.Worker{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&workers).Error; err != nil {
		return nil, err
	}
	return workers, nil
}

func (r *workerRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Worker, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Worker
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *workerRepo) GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*types.Worker, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Worker
	if len(emails) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("email IN ?", emails).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
