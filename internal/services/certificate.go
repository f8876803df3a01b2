package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	progrepos "github.com/loopworks/traintrack-backend/internal/data/repos/progression"
	types "github.com/loopworks/traintrack-backend/internal/domain"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
)

// CertificateService issues exactly one certificate per (worker, course).
// IssueIfComplete re-verifies the ledger before inserting: the engine already
// decided the course is complete, but the issuer is the last line of defense,
// so it checks again and refuses with ErrPrematureIssuance when the ledger
// disagrees. The insert itself rides on the (worker_id, course_id) unique
// index, so concurrent callers collapse to a single row.
type CertificateService interface {
	// IssueIfComplete returns the certificate and whether this call created it.
	IssueIfComplete(ctx context.Context, workerID, courseID uuid.UUID) (*types.Certificate, bool, error)
	GetForCourse(ctx context.Context, workerID, courseID uuid.UUID) (*types.Certificate, error)
	ListForWorker(ctx context.Context, workerID uuid.UUID) ([]*types.Certificate, error)
}

type certificateService struct {
	db           *gorm.DB
	log          *logger.Logger
	catalog      CatalogService
	progressRepo progrepos.ProgressRecordRepo
	certRepo     progrepos.CertificateRepo
	audit        AuditService
}

func NewCertificateService(db *gorm.DB, baseLog *logger.Logger, catalog CatalogService, progressRepo progrepos.ProgressRecordRepo, certRepo progrepos.CertificateRepo, audit AuditService) CertificateService {
	return &certificateService{
		db:           db,
		log:          baseLog.With("service", "CertificateService"),
		catalog:      catalog,
		progressRepo: progressRepo,
		certRepo:     certRepo,
		audit:        audit,
	}
}

func (s *certificateService) IssueIfComplete(ctx context.Context, workerID, courseID uuid.UUID) (*types.Certificate, bool, error) {
	levels, err := s.catalog.GetOrderedLevels(ctx, courseID)
	if err != nil {
		return nil, false, err
	}

	levelIDs := make([]uuid.UUID, 0, len(levels))
	for _, lvl := range levels {
		levelIDs = append(levelIDs, lvl.ID)
	}
	rows, err := s.progressRepo.GetByWorkerAndLevelIDs(ctx, nil, workerID, levelIDs)
	if err != nil {
		return nil, false, storeErr("load ledger for issuance check", err)
	}
	records := make(map[uuid.UUID]*types.ProgressRecord, len(rows))
	for _, rec := range rows {
		records[rec.LevelID] = rec
	}
	if !AllCompleted(DeriveEffectiveStatuses(levels, records)) {
		return nil, false, ErrPrematureIssuance
	}

	now := time.Now().UTC()
	cert := &types.Certificate{
		ID:       uuid.New(),
		WorkerID: workerID,
		CourseID: courseID,
		Serial:   newSerial(),
		IssuedAt: now,
	}
	created, err := s.certRepo.CreateIfAbsent(ctx, nil, cert)
	if err != nil {
		return nil, false, storeErr("insert certificate", err)
	}
	if !created {
		existing, err := s.certRepo.GetByWorkerAndCourse(ctx, nil, workerID, courseID)
		if err != nil {
			return nil, false, storeErr("load existing certificate", err)
		}
		if existing == nil {
			return nil, false, fmt.Errorf("certificate insert lost to a row that is now gone")
		}
		return existing, false, nil
	}

	s.log.Info("certificate issued",
		"worker_id", workerID.String(),
		"course_id", courseID.String(),
		"serial", cert.Serial,
	)
	s.audit.Record(ctx, AuditEventInput{
		WorkerID: workerID,
		Type:     "certificate.issued",
		CourseID: &courseID,
		Payload:  map[string]any{"serial": cert.Serial},
	})
	return cert, true, nil
}

func (s *certificateService) GetForCourse(ctx context.Context, workerID, courseID uuid.UUID) (*types.Certificate, error) {
	return s.certRepo.GetByWorkerAndCourse(ctx, nil, workerID, courseID)
}

func (s *certificateService) ListForWorker(ctx context.Context, workerID uuid.UUID) ([]*types.Certificate, error) {
	return s.certRepo.ListByWorker(ctx, nil, workerID)
}

func newSerial() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "TT-" + strings.ToUpper(raw[:12])
}
