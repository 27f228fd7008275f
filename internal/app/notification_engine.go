// internal/app/notification_engine.go
package app

import (
	"context"
	"fmt"
	"time"

	"progress_notifier/internal/domain/content"
	"progress_notifier/internal/domain/exam"
	"progress_notifier/internal/domain/facility"
	"progress_notifier/internal/domain/lesson"
	"progress_notifier/internal/domain/notification"
	"progress_notifier/internal/domain/progress"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

// needsHelpThreshold is the number of failed interactions on one mastery log
// that must be exceeded before a Help notification is raised.
const needsHelpThreshold = 3

// ProgressHooks are called after a progress record has been written.
// Each hook persists the notifications the change produces, if any.
type ProgressHooks interface {
	CreateSummaryLog(ctx context.Context, summary *progress.SummaryLog) error
	ParseSummaryLog(ctx context.Context, summary *progress.SummaryLog) error
	CreateExamLog(ctx context.Context, examLog *progress.ExamLog) error
	ParseExamLog(ctx context.Context, examLog *progress.ExamLog) error
	ParseAttemptLog(ctx context.Context, attempt *progress.AttemptLog) error
	InvalidateAssignments()
}

// Observer is told about every notification that was actually inserted.
type Observer interface {
	Observe(ctx context.Context, created []*notification.LearnerProgressNotification)
}

// Repositories groups the stores the engine reads and writes.
type Repositories struct {
	Notifications notification.Repository
	Lessons       lesson.Repository
	Exams         exam.Repository
	Memberships   facility.MembershipRepository
	Content       content.Repository
	Progress      progress.Repository
}

// LessonAssignment is an active lesson reachable by the learner together with
// the content node of the resource that triggered the lookup.
type LessonAssignment struct {
	Lesson        *lesson.Lesson
	ContentNodeID string
}

// NotificationEngine derives learner progress notifications from progress hooks.
type NotificationEngine struct {
	repos     Repositories
	logger    *logrus.Entry
	observers []Observer

	// nil when caching is disabled
	assignments *expirable.LRU[string, []LessonAssignment]
	examStarted *expirable.LRU[string, bool]
}

// NewNotificationEngine builds an engine. A cacheTTL of zero disables the
// lookup cache; otherwise entries expire after cacheTTL and at most cacheSize
// entries are kept per lookup.
func NewNotificationEngine(repos Repositories, cacheSize int, cacheTTL time.Duration, logger *logrus.Entry, observers ...Observer) *NotificationEngine {
	e := &NotificationEngine{
		repos:     repos,
		logger:    logger,
		observers: observers,
	}
	if cacheTTL > 0 && cacheSize > 0 {
		e.assignments = expirable.NewLRU[string, []LessonAssignment](cacheSize, nil, cacheTTL)
		e.examStarted = expirable.NewLRU[string, bool](cacheSize, nil, cacheTTL)
	}
	return e
}

// InvalidateAssignments drops every cached lesson lookup. Callers that edit
// lessons or their assignments are expected to call it.
func (e *NotificationEngine) InvalidateAssignments() {
	if e.assignments != nil {
		e.assignments.Purge()
	}
}

// getAssignments returns the active lessons assigned to the user that contain
// the content item. With exercisesOnly set, lessons whose matching node is not
// an exercise are left out.
func (e *NotificationEngine) getAssignments(ctx context.Context, userID, contentID, channelID string, exercisesOnly bool) ([]LessonAssignment, error) {
	key := fmt.Sprintf("%s|%s|%s|%t", userID, contentID, channelID, exercisesOnly)
	if e.assignments != nil {
		if cached, ok := e.assignments.Get(key); ok {
			return cached, nil
		}
	}

	collections, err := e.repos.Memberships.ListCollectionIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships for user %s: %w", userID, err)
	}
	// Not in any classroom nor group, nothing to notify
	if len(collections) == 0 {
		return nil, nil
	}

	lessons, err := e.repos.Lessons.ListActiveAssigned(ctx, collections, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons for content %s: %w", contentID, err)
	}

	result := make([]LessonAssignment, 0, len(lessons))
	for _, l := range lessons {
		nodeID, ok := l.ContentNodeFor(contentID, channelID)
		if !ok {
			continue
		}
		if exercisesOnly {
			node, err := e.repos.Content.GetByID(ctx, nodeID)
			if err != nil {
				return nil, fmt.Errorf("failed to get content node %s: %w", nodeID, err)
			}
			if node.Kind != content.KindExercise {
				continue
			}
		}
		result = append(result, LessonAssignment{Lesson: l, ContentNodeID: nodeID})
	}

	if e.assignments != nil {
		e.assignments.Add(key, result)
	}
	return result, nil
}

// getExamGroups returns the user's collections the exam is assigned to.
func (e *NotificationEngine) getExamGroups(ctx context.Context, userID, examID string) ([]string, error) {
	collections, err := e.repos.Memberships.ListCollectionIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships for user %s: %w", userID, err)
	}
	if len(collections) == 0 {
		return nil, nil
	}
	groups, err := e.repos.Exams.ListAssignedCollections(ctx, examID, collections)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments of exam %s: %w", examID, err)
	}
	return groups, nil
}

func (e *NotificationEngine) exists(ctx context.Context, f notification.Filter) (bool, error) {
	ok, err := e.repos.Notifications.Exists(ctx, f)
	if err != nil {
		return false, fmt.Errorf("failed to check %s %s notification: %w", f.Object, f.Event, err)
	}
	return ok, nil
}

func (e *NotificationEngine) save(ctx context.Context, batch []*notification.LearnerProgressNotification) error {
	if len(batch) == 0 {
		return nil
	}
	created, err := e.repos.Notifications.SaveAll(ctx, batch)
	if err != nil {
		return fmt.Errorf("failed to save notifications: %w", err)
	}
	if skipped := len(batch) - len(created); skipped > 0 {
		e.logger.WithField("skipped", skipped).Debug("Notifications already present, skipped on insert")
	}
	for _, n := range created {
		e.logger.WithFields(logrus.Fields{
			"user_id":      n.UserID,
			"classroom_id": n.ClassroomID,
			"object":       n.Object,
			"event":        n.Event,
		}).Info("Learner progress notification created")
	}
	if len(created) > 0 {
		for _, o := range e.observers {
			o.Observe(ctx, created)
		}
	}
	return nil
}

// startedNotifications returns the Resource Started notification and, when it
// is the first resource the learner opens in the lesson, the Lesson Started one.
func (e *NotificationEngine) startedNotifications(ctx context.Context, a LessonAssignment, userID string) ([]*notification.LearnerProgressNotification, error) {
	l := a.Lesson
	// If the Resource started notification exists, nothing to do here
	seen, err := e.exists(ctx, notification.Filter{
		UserID:        userID,
		Object:        notification.ObjectResource,
		Event:         notification.EventStarted,
		LessonID:      l.ID,
		ContentNodeID: a.ContentNodeID,
	})
	if err != nil || seen {
		return nil, err
	}

	batch := []*notification.LearnerProgressNotification{
		notification.New(notification.ObjectResource, notification.EventStarted, userID, l.CollectionID,
			notification.WithLesson(l.ID), notification.WithContentNode(a.ContentNodeID)),
	}

	lessonStarted, err := e.exists(ctx, notification.Filter{
		UserID:      userID,
		Object:      notification.ObjectLesson,
		Event:       notification.EventStarted,
		LessonID:    l.ID,
		ClassroomID: l.CollectionID,
	})
	if err != nil {
		return nil, err
	}
	if !lessonStarted {
		batch = append(batch, notification.New(notification.ObjectLesson, notification.EventStarted, userID, l.CollectionID,
			notification.WithLesson(l.ID)))
	}
	return batch, nil
}

// CreateSummaryLog runs when a learner opens a content item for the first time.
// It creates the Resource Started and, if needed, the Lesson Started notifications.
func (e *NotificationEngine) CreateSummaryLog(ctx context.Context, summary *progress.SummaryLog) error {
	assignments, err := e.getAssignments(ctx, summary.UserID, summary.ContentID, summary.ChannelID, false)
	if err != nil {
		return err
	}

	var batch []*notification.LearnerProgressNotification
	for _, a := range assignments {
		started, err := e.startedNotifications(ctx, a, summary.UserID)
		if err != nil {
			return err
		}
		batch = append(batch, started...)
	}
	return e.save(ctx, batch)
}

// ParseSummaryLog runs every time a summary log is updated. Once progress is
// complete it creates the Resource Completed notification and, when every
// resource of the lesson is complete, the Lesson Completed one.
func (e *NotificationEngine) ParseSummaryLog(ctx context.Context, summary *progress.SummaryLog) error {
	if !summary.Completed() {
		return nil
	}

	assignments, err := e.getAssignments(ctx, summary.UserID, summary.ContentID, summary.ChannelID, false)
	if err != nil {
		return err
	}

	var batch []*notification.LearnerProgressNotification
	for _, a := range assignments {
		l := a.Lesson
		done, err := e.exists(ctx, notification.Filter{
			UserID:        summary.UserID,
			Object:        notification.ObjectResource,
			Event:         notification.EventCompleted,
			LessonID:      l.ID,
			ContentNodeID: a.ContentNodeID,
		})
		if err != nil {
			return err
		}
		if done {
			continue
		}
		batch = append(batch, notification.New(notification.ObjectResource, notification.EventCompleted, summary.UserID, l.CollectionID,
			notification.WithLesson(l.ID), notification.WithContentNode(a.ContentNodeID)))

		contentIDs := l.ContentIDs()
		completed, err := e.repos.Progress.CountCompleted(ctx, summary.UserID, contentIDs)
		if err != nil {
			return fmt.Errorf("failed to count completed resources of lesson %s: %w", l.ID, err)
		}
		if completed != len(contentIDs) {
			continue
		}

		lessonDone, err := e.exists(ctx, notification.Filter{
			UserID:      summary.UserID,
			Object:      notification.ObjectLesson,
			Event:       notification.EventCompleted,
			LessonID:    l.ID,
			ClassroomID: l.CollectionID,
		})
		if err != nil {
			return err
		}
		if !lessonDone {
			batch = append(batch, notification.New(notification.ObjectLesson, notification.EventCompleted, summary.UserID, l.CollectionID,
				notification.WithLesson(l.ID)))
		}
	}
	return e.save(ctx, batch)
}

func (e *NotificationEngine) quizStartedExists(ctx context.Context, userID, examID string) (bool, error) {
	key := userID + "|" + examID
	if e.examStarted != nil {
		if cached, ok := e.examStarted.Get(key); ok {
			return cached, nil
		}
	}
	ok, err := e.exists(ctx, notification.Filter{
		UserID: userID,
		QuizID: examID,
		Event:  notification.EventStarted,
	})
	if err != nil {
		return false, err
	}
	if e.examStarted != nil {
		e.examStarted.Add(key, ok)
	}
	return ok, nil
}

// quizNotifications emits one quiz notification per assigned group. With
// checkExisting set, groups that already hold the notification are skipped.
func (e *NotificationEngine) quizNotifications(ctx context.Context, examLog *progress.ExamLog, event notification.EventType, checkExisting bool) error {
	groups, err := e.getExamGroups(ctx, examLog.UserID, examLog.ExamID)
	if err != nil {
		return err
	}
	batch := make([]*notification.LearnerProgressNotification, 0, len(groups))
	for _, group := range groups {
		if checkExisting {
			seen, err := e.exists(ctx, notification.Filter{
				UserID:      examLog.UserID,
				Object:      notification.ObjectQuiz,
				Event:       event,
				QuizID:      examLog.ExamID,
				ClassroomID: group,
			})
			if err != nil {
				return err
			}
			if seen {
				continue
			}
		}
		batch = append(batch, notification.New(notification.ObjectQuiz, event, examLog.UserID, group,
			notification.WithQuiz(examLog.ExamID)))
	}
	return e.save(ctx, batch)
}

// CreateExamLog runs when a learner starts a quiz and fans a Quiz Started
// notification out to every group the quiz is assigned to.
func (e *NotificationEngine) CreateExamLog(ctx context.Context, examLog *progress.ExamLog) error {
	started, err := e.quizStartedExists(ctx, examLog.UserID, examLog.ExamID)
	if err != nil {
		return err
	}
	if started {
		return nil
	}
	if e.examStarted != nil {
		e.examStarted.Remove(examLog.UserID + "|" + examLog.ExamID)
	}
	// quizStartedExists already covered every group
	return e.quizNotifications(ctx, examLog, notification.EventStarted, false)
}

// ParseExamLog runs every time an exam log is updated. A closed exam fans a
// Quiz Completed notification out to every assigned group that lacks one.
func (e *NotificationEngine) ParseExamLog(ctx context.Context, examLog *progress.ExamLog) error {
	if !examLog.Closed {
		return nil
	}
	return e.quizNotifications(ctx, examLog, notification.EventCompleted, true)
}

// ParseAttemptLog runs every time an attempt log is updated. When the mastery
// log holds more than three failed interactions it raises a Help notification
// for every lesson that contains the exercise.
func (e *NotificationEngine) ParseAttemptLog(ctx context.Context, attempt *progress.AttemptLog) error {
	summary, err := e.repos.Progress.GetSummaryLogForMastery(ctx, attempt.MasteryLogID)
	if err != nil {
		return fmt.Errorf("failed to get summary log of mastery log %s: %w", attempt.MasteryLogID, err)
	}

	// Exercises outside of a lesson never trigger this event
	assignments, err := e.getAssignments(ctx, attempt.UserID, summary.ContentID, summary.ChannelID, true)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		return nil
	}

	attempts, err := e.repos.Progress.ListAttemptLogs(ctx, attempt.MasteryLogID)
	if err != nil {
		return fmt.Errorf("failed to list attempts of mastery log %s: %w", attempt.MasteryLogID, err)
	}
	if progress.CountFailed(attempts) <= needsHelpThreshold {
		return nil
	}

	var batch []*notification.LearnerProgressNotification
	for _, a := range assignments {
		l := a.Lesson
		// Raised only once per lesson and resource
		seen, err := e.exists(ctx, notification.Filter{
			UserID:        attempt.UserID,
			Object:        notification.ObjectResource,
			Event:         notification.EventHelp,
			LessonID:      l.ID,
			ClassroomID:   l.CollectionID,
			ContentNodeID: a.ContentNodeID,
		})
		if err != nil {
			return err
		}
		if seen {
			continue
		}
		batch = append(batch, notification.New(notification.ObjectResource, notification.EventHelp, attempt.UserID, l.CollectionID,
			notification.WithLesson(l.ID), notification.WithContentNode(a.ContentNodeID),
			notification.WithReason(notification.HelpReasonMultiple)))
	}
	return e.save(ctx, batch)
}
