package progression

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/loopworks/traintrack-backend/internal/domain"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
)

// CompletionRef identifies a fully completed (worker, course) pair found by
// the reconciliation query.
type CompletionRef struct {
	WorkerID uuid.UUID `gorm:"column:worker_id"`
	CourseID uuid.UUID `gorm:"column:course_id"`
}

type CertificateRepo interface {
	// CreateIfAbsent inserts the certificate unless one already exists for its
	// (worker_id, course_id) pair; the unique index makes issuance idempotent
	// no matter how many completion reports race. Reports whether this call
	// created the row.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, cert *types.Certificate) (bool, error)

	GetByWorkerAndCourse(ctx context.Context, tx *gorm.DB, workerID, courseID uuid.UUID) (*types.Certificate, error)
	ListByWorker(ctx context.Context, tx *gorm.DB, workerID uuid.UUID) ([]*types.Certificate, error)

	// ListUnissuedCompletions finds ledgers where every level of a course is
	// completed but no certificate row exists. Feeds the reconciliation pass
	// that re-drives issuance after transient failures.
	ListUnissuedCompletions(ctx context.Context, tx *gorm.DB, limit int) ([]*CompletionRef, error)
}

type certificateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateRepo(db *gorm.DB, baseLog *logger.Logger) CertificateRepo {
	repoLog := baseLog.With("repo", "CertificateRepo")
	return &certificateRepo{db: db, log: repoLog}
}

func (r *certificateRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, cert *types.Certificate) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if cert == nil {
		return false, nil
	}

	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "worker_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(cert)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *certificateRepo) GetByWorkerAndCourse(ctx context.Context, tx *gorm.DB, workerID, courseID uuid.UUID) (*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if workerID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}

	var results []*types.Certificate
	if err := transaction.WithContext(ctx).
		Where("worker_id = ? AND course_id = ?", workerID, courseID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *certificateRepo) ListByWorker(ctx context.Context, tx *gorm.DB, workerID uuid.UUID) ([]*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Certificate
	if workerID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Order("issued_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *certificateRepo) ListUnissuedCompletions(ctx context.Context, tx *gorm.DB, limit int) ([]*CompletionRef, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if limit <= 0 {
		limit = 100
	}

	var results []*CompletionRef
	if err := transaction.WithContext(ctx).Raw(`
		SELECT pr.worker_id AS worker_id, l.course_id AS course_id
		FROM progress_record pr
		JOIN level l ON l.id = pr.level_id AND l.deleted_at IS NULL
		LEFT JOIN certificate c
			ON c.worker_id = pr.worker_id
			AND c.course_id = l.course_id
			AND c.deleted_at IS NULL
		WHERE pr.deleted_at IS NULL AND c.id IS NULL
		GROUP BY pr.worker_id, l.course_id
		HAVING SUM(CASE WHEN pr.status = 'completed' THEN 1 ELSE 0 END) = (
			SELECT COUNT(*) FROM level l2
			WHERE l2.course_id = l.course_id AND l2.deleted_at IS NULL
		)
		LIMIT ?
	`, limit).Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
