// internal/domain/notification/notification.go
package notification

import (
	"time"

	"github.com/google/uuid"
)

// LearnerProgressNotification is a single coach-facing progress event.
// Corresponds to the 'learner_progress_notifications' table.
type LearnerProgressNotification struct {
	ID            string
	UserID        string
	ClassroomID   string // Classroom or learner group the event is reported to
	Object        ObjectType
	Event         EventType
	LessonID      string // Empty for quiz notifications
	ContentNodeID string // Empty for lesson and quiz notifications
	QuizID        string // Empty unless Object is ObjectQuiz
	Reason        HelpReason
	Timestamp     time.Time
}

// Option fills the optional columns of a notification.
type Option func(*LearnerProgressNotification)

func WithLesson(lessonID string) Option {
	return func(n *LearnerProgressNotification) { n.LessonID = lessonID }
}

func WithContentNode(contentNodeID string) Option {
	return func(n *LearnerProgressNotification) { n.ContentNodeID = contentNodeID }
}

func WithQuiz(quizID string) Option {
	return func(n *LearnerProgressNotification) { n.QuizID = quizID }
}

func WithReason(reason HelpReason) Option {
	return func(n *LearnerProgressNotification) { n.Reason = reason }
}

// New builds an unsaved notification with a fresh ID.
func New(object ObjectType, event EventType, userID, classroomID string, opts ...Option) *LearnerProgressNotification {
	n := &LearnerProgressNotification{
		ID:          uuid.NewString(),
		UserID:      userID,
		ClassroomID: classroomID,
		Object:      object,
		Event:       event,
		Timestamp:   time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}
