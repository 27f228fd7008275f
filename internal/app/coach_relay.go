package app

import (
	"context"
	"fmt"
	"sync"

	"progress_notifier/internal/domain/notification"
	domainTelegram "progress_notifier/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// DefaultRelayQueueSize bounds the notifications waiting to be sent.
const DefaultRelayQueueSize = 256

// CoachRelay forwards newly created notifications to a coach's Telegram chat.
// Messages are sent by a background worker so hooks never wait on Telegram.
type CoachRelay struct {
	client      domainTelegram.Client
	coachChatID int64
	logger      *logrus.Entry

	mu     sync.Mutex
	queue  chan *notification.LearnerProgressNotification
	closed bool
	done   chan struct{}
}

func NewCoachRelay(client domainTelegram.Client, coachChatID int64, queueSize int, logger *logrus.Entry) *CoachRelay {
	if queueSize <= 0 {
		queueSize = DefaultRelayQueueSize
	}
	return &CoachRelay{
		client:      client,
		coachChatID: coachChatID,
		logger:      logger,
		queue:       make(chan *notification.LearnerProgressNotification, queueSize),
		done:        make(chan struct{}),
	}
}

// Start launches the sending worker.
func (r *CoachRelay) Start() {
	go func() {
		defer close(r.done)
		for n := range r.queue {
			r.send(n)
		}
	}()
}

// Stop stops accepting notifications and waits until the queued ones are sent.
func (r *CoachRelay) Stop() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}

// Observe queues one message per notification. When the queue is full the
// notification is dropped from the relay; it is already stored.
func (r *CoachRelay) Observe(_ context.Context, created []*notification.LearnerProgressNotification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, n := range created {
		select {
		case r.queue <- n:
		default:
			r.logger.WithField("notification_id", n.ID).Warn("Coach relay queue full, notification not relayed")
		}
	}
}

// send failures are logged only.
func (r *CoachRelay) send(n *notification.LearnerProgressNotification) {
	if err := r.client.SendMessage(r.coachChatID, FormatNotification(n), nil); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"notification_id": n.ID,
			"coach_chat_id":   r.coachChatID,
		}).Error("Failed to relay notification to coach")
		return
	}
	r.logger.WithField("notification_id", n.ID).Debug("Notification relayed to coach")
}

// FormatNotification renders a notification as a one-line message for coaches.
func FormatNotification(n *notification.LearnerProgressNotification) string {
	switch n.Object {
	case notification.ObjectQuiz:
		return fmt.Sprintf("Learner %s %s quiz %s (group %s)", n.UserID, verb(n.Event), n.QuizID, n.ClassroomID)
	case notification.ObjectLesson:
		return fmt.Sprintf("Learner %s %s lesson %s (classroom %s)", n.UserID, verb(n.Event), n.LessonID, n.ClassroomID)
	default:
		if n.Event == notification.EventHelp {
			return fmt.Sprintf("Learner %s needs help with resource %s in lesson %s (classroom %s)",
				n.UserID, n.ContentNodeID, n.LessonID, n.ClassroomID)
		}
		return fmt.Sprintf("Learner %s %s resource %s in lesson %s (classroom %s)",
			n.UserID, verb(n.Event), n.ContentNodeID, n.LessonID, n.ClassroomID)
	}
}

func verb(event notification.EventType) string {
	switch event {
	case notification.EventStarted:
		return "started"
	case notification.EventCompleted:
		return "completed"
	default:
		return "needs help with"
	}
}
