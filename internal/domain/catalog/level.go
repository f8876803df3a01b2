package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Level is one ordered unit of course content. Ordinals within a course are
// contiguous starting at 1 and unique; idx_level_course_ordinal enforces the
// uniqueness half of that invariant.
type Level struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index:idx_level_course_ordinal,unique,priority:1" json:"course_id"`
	Ordinal  int       `gorm:"not null;index:idx_level_course_ordinal,unique,priority:2" json:"ordinal"`
	Title    string    `gorm:"not null;column:title" json:"title"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Level) TableName() string { return "level" }
