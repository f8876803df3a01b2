package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	progrepos "github.com/loopworks/traintrack-backend/internal/data/repos/progression"
	types "github.com/loopworks/traintrack-backend/internal/domain"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
)

// LevelProgress is one level of a course annotated with the worker's
// effective status for it.
type LevelProgress struct {
	Level       *types.Level         `json:"level"`
	Status      types.ProgressStatus `json:"status"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

// ProgressionTree is a worker's full view of one course.
type ProgressionTree struct {
	CourseID uuid.UUID        `json:"course_id"`
	Levels   []*LevelProgress `json:"levels"`
	Complete bool             `json:"complete"`
}

// CompletionResult reports what a completion call did. Certificate fields are
// best effort: a nil CertificateID with CourseComplete true means issuance is
// still pending and the reconciler will pick it up.
type CompletionResult struct {
	LevelID            uuid.UUID            `json:"level_id"`
	Status             types.ProgressStatus `json:"status"`
	UnlockedLevelID    *uuid.UUID           `json:"unlocked_level_id,omitempty"`
	CourseID           uuid.UUID            `json:"course_id"`
	CourseComplete     bool                 `json:"course_complete"`
	CertificateID      *uuid.UUID           `json:"certificate_id,omitempty"`
	CertificateExisted bool                 `json:"-"`
}

// ProgressionService is the state machine over the progress ledger. All
// writes are conditional: initialization inserts resolve races on the
// (worker_id, level_id) unique index, and transitions apply only when the
// stored status is an expected predecessor. A conditional write that applies
// nothing means another request got there first, and the method falls back to
// re-reading the ledger rather than surfacing the conflict.
type ProgressionService interface {
	// InitializeOrGetProgress materializes ledger rows for every level of the
	// course that the worker does not have yet (first level unlocked, the rest
	// locked) and returns the derived tree. Safe to call any number of times,
	// from any number of goroutines.
	InitializeOrGetProgress(ctx context.Context, workerID, courseID uuid.UUID) (*ProgressionTree, error)

	// MarkLevelStarted moves an unlocked level to in_progress. Calling it on a
	// level already in progress is a no-op; calling it on a locked or
	// completed level is ErrInvalidTransition.
	MarkLevelStarted(ctx context.Context, workerID, levelID uuid.UUID) (*ProgressionTree, error)

	// RecordLevelCompletion completes an engaged level, unlocks its successor,
	// and, when the course is finished, asks the issuer for a certificate.
	// Completing an already completed level is an idempotent no-op. Issuance
	// failure never rolls the completion back.
	RecordLevelCompletion(ctx context.Context, workerID, levelID uuid.UUID, score datatypes.JSON) (*CompletionResult, error)
}

type progressionService struct {
	db           *gorm.DB
	log          *logger.Logger
	catalog      CatalogService
	progressRepo progrepos.ProgressRecordRepo
	certificates CertificateService
	audit        AuditService
}

func NewProgressionService(db *gorm.DB, baseLog *logger.Logger, catalog CatalogService, progressRepo progrepos.ProgressRecordRepo, certificates CertificateService, audit AuditService) ProgressionService {
	return &progressionService{
		db:           db,
		log:          baseLog.With("service", "ProgressionService"),
		catalog:      catalog,
		progressRepo: progressRepo,
		certificates: certificates,
		audit:        audit,
	}
}

func (s *progressionService) InitializeOrGetProgress(ctx context.Context, workerID, courseID uuid.UUID) (*ProgressionTree, error) {
	levels, err := s.catalog.GetOrderedLevels(ctx, courseID)
	if err != nil {
		return nil, err
	}
	records, err := s.ensureRecords(ctx, workerID, levels)
	if err != nil {
		return nil, err
	}
	return buildTree(courseID, levels, records), nil
}

func (s *progressionService) MarkLevelStarted(ctx context.Context, workerID, levelID uuid.UUID) (*ProgressionTree, error) {
	level, err := s.catalog.GetLevel(ctx, levelID)
	if err != nil {
		return nil, err
	}
	levels, err := s.catalog.GetOrderedLevels(ctx, level.CourseID)
	if err != nil {
		return nil, err
	}
	records, err := s.ensureRecords(ctx, workerID, levels)
	if err != nil {
		return nil, err
	}

	effective := effectiveFor(levels, records, levelID)
	switch {
	case effective == types.StatusInProgress:
		// Already started; nothing to do.
	case effective == types.StatusUnlocked:
		now := time.Now().UTC()
		if _, err := s.progressRepo.UpdateStatusIf(ctx, nil, workerID, levelID,
			[]types.ProgressStatus{types.StatusLocked, types.StatusUnlocked},
			types.StatusInProgress, nil, now); err != nil {
			return nil, storeErr("mark level started", err)
		}
		// Applied or lost to an identical concurrent call; the re-read below
		// reflects whichever won.
		records, err = s.loadRecords(ctx, workerID, levels)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidTransition
	}

	return buildTree(level.CourseID, levels, records), nil
}

func (s *progressionService) RecordLevelCompletion(ctx context.Context, workerID, levelID uuid.UUID, score datatypes.JSON) (*CompletionResult, error) {
	level, err := s.catalog.GetLevel(ctx, levelID)
	if err != nil {
		return nil, err
	}
	courseID := level.CourseID
	levels, err := s.catalog.GetOrderedLevels(ctx, courseID)
	if err != nil {
		return nil, err
	}
	records, err := s.ensureRecords(ctx, workerID, levels)
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{LevelID: levelID, CourseID: courseID}

	effective := effectiveFor(levels, records, levelID)
	if effective == types.StatusCompleted {
		// Terminal state; repeated completion is a no-op and keeps the stored
		// score and timestamps of the first call.
		result.Status = types.StatusCompleted
		result.CourseComplete = AllCompleted(DeriveEffectiveStatuses(levels, records))
		return s.finishCompletion(ctx, workerID, result)
	}
	if !effective.Engaged() {
		return nil, ErrInvalidTransition
	}

	// The stored status may lag at locked when a prior successor-unlock write
	// was lost; the effective status above is the gate, the stored-status
	// predicate only has to keep completed terminal.
	now := time.Now().UTC()
	completedNow, err := s.progressRepo.UpdateStatusIf(ctx, nil, workerID, levelID,
		[]types.ProgressStatus{types.StatusLocked, types.StatusUnlocked, types.StatusInProgress},
		types.StatusCompleted, score, now)
	if err != nil {
		return nil, storeErr("complete level", err)
	}
	if !completedNow {
		// The conditional write applied nothing: a concurrent call completed
		// the level between our read and our write. Re-read and treat it as
		// the idempotent case.
		records, err = s.loadRecords(ctx, workerID, levels)
		if err != nil {
			return nil, err
		}
		if rec := records[levelID]; rec == nil || !rec.Status.Completed() {
			return nil, ErrInvalidTransition
		}
		result.Status = types.StatusCompleted
		result.CourseComplete = AllCompleted(DeriveEffectiveStatuses(levels, records))
		return s.finishCompletion(ctx, workerID, result)
	}

	result.Status = types.StatusCompleted
	s.audit.Record(ctx, AuditEventInput{
		WorkerID: workerID,
		Type:     "level.completed",
		LevelID:  &levelID,
		CourseID: &courseID,
	})

	// Unlock the successor. The conditional from-locked write makes the unlock
	// idempotent under racing completions of the same level.
	if next := successorOf(levels, levelID); next != nil {
		unlocked, err := s.progressRepo.UpdateStatusIf(ctx, nil, workerID, next.ID,
			[]types.ProgressStatus{types.StatusLocked},
			types.StatusUnlocked, nil, now)
		if err != nil {
			return nil, storeErr("unlock successor", err)
		}
		if unlocked {
			nextID := next.ID
			result.UnlockedLevelID = &nextID
			s.audit.Record(ctx, AuditEventInput{
				WorkerID: workerID,
				Type:     "level.unlocked",
				LevelID:  &nextID,
				CourseID: &courseID,
			})
		}
	}

	records, err = s.loadRecords(ctx, workerID, levels)
	if err != nil {
		return nil, err
	}
	result.CourseComplete = AllCompleted(DeriveEffectiveStatuses(levels, records))
	return s.finishCompletion(ctx, workerID, result)
}

// finishCompletion attaches a certificate to the result when the course is
// complete. Issuance is best effort: the completion already committed, so an
// issuer failure is logged and left for the reconciler, never returned.
func (s *progressionService) finishCompletion(ctx context.Context, workerID uuid.UUID, result *CompletionResult) (*CompletionResult, error) {
	if !result.CourseComplete {
		return result, nil
	}
	cert, created, err := s.certificates.IssueIfComplete(ctx, workerID, result.CourseID)
	if err != nil {
		s.log.Warn("certificate issuance deferred",
			"worker_id", workerID.String(),
			"course_id", result.CourseID.String(),
			"error", err,
		)
		return result, nil
	}
	certID := cert.ID
	result.CertificateID = &certID
	result.CertificateExisted = !created
	return result, nil
}

// ensureRecords materializes missing ledger rows for the worker across the
// whole course and returns the full row map. Existing rows are never touched;
// the OnConflict insert makes concurrent initializations converge.
func (s *progressionService) ensureRecords(ctx context.Context, workerID uuid.UUID, levels []*types.Level) (map[uuid.UUID]*types.ProgressRecord, error) {
	records, err := s.loadRecords(ctx, workerID, levels)
	if err != nil {
		return nil, err
	}
	if len(records) == len(levels) {
		return records, nil
	}

	now := time.Now().UTC()
	missing := false
	for i, lvl := range levels {
		if _, ok := records[lvl.ID]; ok {
			continue
		}
		status := types.StatusLocked
		if i == 0 {
			status = types.StatusUnlocked
		}
		rec := &types.ProgressRecord{
			ID:        uuid.New(),
			WorkerID:  workerID,
			LevelID:   lvl.ID,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.progressRepo.CreateIfAbsent(ctx, nil, rec); err != nil {
			return nil, storeErr(fmt.Sprintf("initialize progress for level %s", lvl.ID), err)
		}
		missing = true
	}
	if missing {
		return s.loadRecords(ctx, workerID, levels)
	}
	return records, nil
}

func (s *progressionService) loadRecords(ctx context.Context, workerID uuid.UUID, levels []*types.Level) (map[uuid.UUID]*types.ProgressRecord, error) {
	ids := make([]uuid.UUID, 0, len(levels))
	for _, lvl := range levels {
		ids = append(ids, lvl.ID)
	}
	rows, err := s.progressRepo.GetByWorkerAndLevelIDs(ctx, nil, workerID, ids)
	if err != nil {
		return nil, storeErr("load progress records", err)
	}
	records := make(map[uuid.UUID]*types.ProgressRecord, len(rows))
	for _, rec := range rows {
		records[rec.LevelID] = rec
	}
	return records, nil
}

func buildTree(courseID uuid.UUID, levels []*types.Level, records map[uuid.UUID]*types.ProgressRecord) *ProgressionTree {
	statuses := DeriveEffectiveStatuses(levels, records)
	out := make([]*LevelProgress, len(levels))
	for i, lvl := range levels {
		lp := &LevelProgress{Level: lvl, Status: statuses[i]}
		if rec := records[lvl.ID]; rec != nil {
			lp.StartedAt = rec.StartedAt
			lp.CompletedAt = rec.CompletedAt
		}
		out[i] = lp
	}
	return &ProgressionTree{
		CourseID: courseID,
		Levels:   out,
		Complete: AllCompleted(statuses),
	}
}

func effectiveFor(levels []*types.Level, records map[uuid.UUID]*types.ProgressRecord, levelID uuid.UUID) types.ProgressStatus {
	statuses := DeriveEffectiveStatuses(levels, records)
	for i, lvl := range levels {
		if lvl.ID == levelID {
			return statuses[i]
		}
	}
	return types.StatusLocked
}

func successorOf(levels []*types.Level, levelID uuid.UUID) *types.Level {
	for i, lvl := range levels {
		if lvl.ID == levelID {
			if i+1 < len(levels) {
				return levels[i+1]
			}
			return nil
		}
	}
	return nil
}
