package progression

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/loopworks/traintrack-backend/internal/domain"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
)

type ProgressRecordRepo interface {
	// CreateIfAbsent inserts the record unless a row already exists for its
	// (worker_id, level_id) pair. The race between concurrent initializations
	// resolves on the unique index, not on a prior read. Reports whether this
	// call created the row.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, rec *types.ProgressRecord) (bool, error)

	GetByWorkerAndLevelIDs(ctx context.Context, tx *gorm.DB, workerID uuid.UUID, levelIDs []uuid.UUID) ([]*types.ProgressRecord, error)
	ListByWorkerAndCourse(ctx context.Context, tx *gorm.DB, workerID, courseID uuid.UUID) ([]*types.ProgressRecord, error)

	// UpdateStatusIf applies the transition only when the stored status is one
	// of the expected predecessors, stamping started_at or completed_at as the
	// target status requires. Reports whether a row was updated; false means
	// the conditional write lost a race or the precondition no longer holds.
	UpdateStatusIf(ctx context.Context, tx *gorm.DB, workerID, levelID uuid.UUID, from []types.ProgressStatus, to types.ProgressStatus, score datatypes.JSON, at time.Time) (bool, error)
}

type progressRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressRecordRepo(db *gorm.DB, baseLog *logger.Logger) ProgressRecordRepo {
	repoLog := baseLog.With("repo", "ProgressRecordRepo")
	return &progressRecordRepo{db: db, log: repoLog}
}

func (r *progressRecordRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, rec *types.ProgressRecord) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if rec == nil {
		return false, nil
	}

	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "worker_id"}, {Name: "level_id"}},
			DoNothing: true,
		}).
		Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *progressRecordRepo) GetByWorkerAndLevelIDs(ctx context.Context, tx *gorm.DB, workerID uuid.UUID, levelIDs []uuid.UUID) ([]*types.ProgressRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ProgressRecord
	if workerID == uuid.Nil || len(levelIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("worker_id = ? AND level_id IN ?", workerID, levelIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *progressRecordRepo) ListByWorkerAndCourse(ctx context.Context, tx *gorm.DB, workerID, courseID uuid.UUID) ([]*types.ProgressRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ProgressRecord
	if workerID == uuid.Nil || courseID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Joins("JOIN level ON level.id = progress_record.level_id").
		Where("progress_record.worker_id = ? AND level.course_id = ?", workerID, courseID).
		Order("level.ordinal ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *progressRecordRepo) UpdateStatusIf(ctx context.Context, tx *gorm.DB, workerID, levelID uuid.UUID, from []types.ProgressStatus, to types.ProgressStatus, score datatypes.JSON, at time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if workerID == uuid.Nil || levelID == uuid.Nil || len(from) == 0 {
		return false, nil
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case types.StatusInProgress:
		updates["started_at"] = at
	case types.StatusCompleted:
		updates["completed_at"] = at
	}
	if score != nil {
		updates["score"] = score
	}

	res := transaction.WithContext(ctx).
		Model(&types.ProgressRecord{}).
		Where("worker_id = ? AND level_id = ? AND status IN ?", workerID, levelID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
