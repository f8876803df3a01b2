package db

import (
	"fmt"

	types "github.com/loopworks/traintrack-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Identity
		&types.Worker{},

		// Course structure (read-only reference data for the engine)
		&types.Course{},
		&types.Level{},

		// Progress ledger + certificates
		&types.ProgressRecord{},
		&types.Certificate{},

		// Audit trail
		&types.AuditEvent{},
	)
}

// EnsureProgressionIndexes creates the lookup indexes AutoMigrate's tag-driven
// unique indexes do not cover. The correctness-bearing unique constraints on
// progress_record(worker_id, level_id) and certificate(worker_id, course_id)
// come from the model tags.
func EnsureProgressionIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_progress_record_worker
		ON progress_record (worker_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_progress_record_worker: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_certificate_worker
		ON certificate (worker_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_certificate_worker: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_audit_event_worker_occurred
		ON audit_event (worker_id, occurred_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_audit_event_worker_occurred: %w", err)
	}

	return nil
}
