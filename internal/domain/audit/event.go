package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Event is an append-only audit row. Delivery is best effort; writers must
// never block a core operation on it.
type Event struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkerID uuid.UUID `gorm:"type:uuid;not null;index" json:"worker_id"`

	Type     string     `gorm:"not null;column:type;index" json:"type"`
	LevelID  *uuid.UUID `gorm:"type:uuid;column:level_id" json:"level_id,omitempty"`
	CourseID *uuid.UUID `gorm:"type:uuid;column:course_id" json:"course_id,omitempty"`

	Payload datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload,omitempty"`

	OccurredAt time.Time `gorm:"not null;column:occurred_at;index" json:"occurred_at"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (Event) TableName() string { return "audit_event" }
