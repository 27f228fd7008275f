// internal/domain/notification/repository.go
package notification

import (
	"context"
)

// Filter selects notifications by exact match. Empty string fields are ignored,
// so a Filter only constrains the columns that are set.
type Filter struct {
	UserID        string
	ClassroomID   string
	Object        ObjectType
	Event         EventType
	LessonID      string
	ContentNodeID string
	QuizID        string
}

// Repository defines persistence operations for learner progress notifications.
type Repository interface {
	// Exists reports whether any notification matches every set field of f.
	Exists(ctx context.Context, f Filter) (bool, error)
	// SaveAll stores the batch atomically. Rows that already exist are skipped;
	// only the rows actually inserted are returned.
	SaveAll(ctx context.Context, notifications []*LearnerProgressNotification) ([]*LearnerProgressNotification, error)
	// ListRecent returns the newest notifications first, optionally for one classroom.
	ListRecent(ctx context.Context, classroomID string, limit int) ([]*LearnerProgressNotification, error)
}
