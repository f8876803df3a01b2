package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/loopworks/traintrack-backend/internal/domain"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
)

type LevelRepo interface {
	Create(ctx context.Context, tx *gorm.DB, levels []*types.Level) ([]*types.Level, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Level, error)
	// GetByCourseIDOrdered returns the course's levels in ordinal order, the
	// only order the progression engine ever reasons in.
	GetByCourseIDOrdered(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Level, error)
}

type levelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLevelRepo(db *gorm.DB, baseLog *logger.Logger) LevelRepo {
	repoLog := baseLog.With("repo", "LevelRepo")
	return &levelRepo{db: db, log: repoLog}
}

func (r *levelRepo) Create(ctx context.Context, tx *gorm.DB, levels []*types.Level) ([]*types.Level, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(levels) == 0 {
		return []*types.Level{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

func (r *levelRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Level, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Level
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

func (r *levelRepo) GetByCourseIDOrdered(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Level, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Level
	if courseID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("ordinal ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
