package jobs

import (
	"context"
	"time"

	progrepos "github.com/loopworks/traintrack-backend/internal/data/repos/progression"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
	"github.com/loopworks/traintrack-backend/internal/services"
)

// CertificateReconciler periodically scans for fully completed ledgers that
// have no certificate row and re-drives issuance for them. Synchronous
// issuance at completion time is best effort, so anything it dropped shows up
// here on the next tick.
type CertificateReconciler struct {
	log          *logger.Logger
	certRepo     progrepos.CertificateRepo
	certificates services.CertificateService
	interval     time.Duration
	batchSize    int
}

func NewCertificateReconciler(baseLog *logger.Logger, certRepo progrepos.CertificateRepo, certificates services.CertificateService, interval time.Duration, batchSize int) *CertificateReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &CertificateReconciler{
		log:          baseLog.With("job", "CertificateReconciler"),
		certRepo:     certRepo,
		certificates: certificates,
		interval:     interval,
		batchSize:    batchSize,
	}
}

// Run blocks until ctx is cancelled.
func (r *CertificateReconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("certificate reconciler started", "interval", r.interval.String())
	for {
		select {
		case <-ctx.Done():
			r.log.Info("certificate reconciler stopped")
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *CertificateReconciler) sweep(ctx context.Context) {
	refs, err := r.certRepo.ListUnissuedCompletions(ctx, nil, r.batchSize)
	if err != nil {
		r.log.Error("reconciliation scan failed", "error", err)
		return
	}
	if len(refs) == 0 {
		return
	}

	issued := 0
	for _, ref := range refs {
		if ctx.Err() != nil {
			return
		}
		_, created, err := r.certificates.IssueIfComplete(ctx, ref.WorkerID, ref.CourseID)
		if err != nil {
			// ErrPrematureIssuance here means the ledger moved between the
			// scan and the re-check; skip and let the next sweep decide.
			r.log.Warn("reconciled issuance failed",
				"worker_id", ref.WorkerID.String(),
				"course_id", ref.CourseID.String(),
				"error", err,
			)
			continue
		}
		if created {
			issued++
		}
	}
	if issued > 0 {
		r.log.Info("reconciliation sweep issued certificates", "count", issued, "scanned", len(refs))
	}
}
