package kafka

import (
	"time"

	"github.com/google/uuid"
)

// ProgressEvent asks the consumer to recompute one enrollment's progress.
type ProgressEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventID       string    `json:"event_id"`
	UserID        uuid.UUID `json:"user_id"`
	CourseID      uuid.UUID `json:"course_id"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (e ProgressEvent) valid() bool {
	return e.SchemaVersion == SchemaVersion && e.UserID != uuid.Nil && e.CourseID != uuid.Nil
}

func eventKey(userID, courseID uuid.UUID) []byte {
	return []byte(userID.String() + ":" + courseID.String())
}
