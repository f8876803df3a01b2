package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Certificate records full completion of a course by a worker. The composite
// unique index idx_certificate_worker_course makes issuance idempotent under
// concurrent completion reports; rows are immutable once written.
type Certificate struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkerID uuid.UUID `gorm:"type:uuid;not null;index:idx_certificate_worker_course,unique,priority:1" json:"worker_id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index:idx_certificate_worker_course,unique,priority:2" json:"course_id"`

	Serial   string    `gorm:"not null;column:serial" json:"serial"`
	IssuedAt time.Time `gorm:"not null;column:issued_at" json:"issued_at"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Certificate) TableName() string { return "certificate" }
