package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProgressStatus string

const (
	StatusLocked     ProgressStatus = "locked"
	StatusUnlocked   ProgressStatus = "unlocked"
	StatusInProgress ProgressStatus = "in_progress"
	StatusCompleted  ProgressStatus = "completed"
)

// Completed reports whether the status is terminal.
func (s ProgressStatus) Completed() bool { return s == StatusCompleted }

// Engaged reports whether the worker may currently act on the level.
// UNLOCKED and IN_PROGRESS gate identically; the distinction is kept for
// display only.
func (s ProgressStatus) Engaged() bool {
	return s == StatusUnlocked || s == StatusInProgress
}

// ProgressRecord is the per-(worker, level) ledger row. The composite unique
// index idx_progress_worker_level is the create-if-absent key; initialization
// races resolve on it rather than on a check-then-act read.
type ProgressRecord struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkerID uuid.UUID `gorm:"type:uuid;not null;index:idx_progress_worker_level,unique,priority:1" json:"worker_id"`
	LevelID  uuid.UUID `gorm:"type:uuid;not null;index:idx_progress_worker_level,unique,priority:2" json:"level_id"`

	Status ProgressStatus `gorm:"column:status;type:text;not null;default:'locked'" json:"status"`

	// Score is opaque to the progression core; assessment collaborators own
	// its shape.
	Score datatypes.JSON `gorm:"type:jsonb;column:score" json:"score,omitempty"`

	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ProgressRecord) TableName() string { return "progress_record" }
