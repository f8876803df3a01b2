package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course is read-only reference data from the progression engine's
// perspective. Mutation happens through authoring endpoints only.
type Course struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"not null;column:title" json:"title"`
	Description string    `gorm:"column:description" json:"description,omitempty"`

	Levels []*Level `gorm:"foreignKey:CourseID;references:ID" json:"levels,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }
