// internal/domain/notification/shared_types.go
package notification

// ObjectType is what a notification is about.
type ObjectType string

const (
	ObjectResource ObjectType = "Resource"
	ObjectLesson   ObjectType = "Lesson"
	ObjectQuiz     ObjectType = "Quiz"
)

// EventType is the learner progress event that produced the notification.
type EventType string

const (
	EventStarted   EventType = "Started"
	EventCompleted EventType = "Completed"
	EventHelp      EventType = "Help"
)

// HelpReason explains why a Help notification was raised.
type HelpReason string

const (
	// HelpReasonMultiple is set when the learner failed the same exercise repeatedly.
	HelpReasonMultiple HelpReason = "Multiple"
)
