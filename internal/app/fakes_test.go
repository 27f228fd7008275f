package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"progress_notifier/internal/domain/content"
	"progress_notifier/internal/domain/lesson"
	"progress_notifier/internal/domain/notification"
	"progress_notifier/internal/domain/progress"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fakeNotifications struct {
	mu          sync.Mutex
	rows        []*notification.LearnerProgressNotification
	existsCalls int
	saveErr     error
	staleReads  bool // Exists never sees stored rows, as when two requests race
}

func matches(n *notification.LearnerProgressNotification, f notification.Filter) bool {
	eq := func(want, got string) bool { return want == "" || want == got }
	return eq(f.UserID, n.UserID) &&
		eq(f.ClassroomID, n.ClassroomID) &&
		eq(string(f.Object), string(n.Object)) &&
		eq(string(f.Event), string(n.Event)) &&
		eq(f.LessonID, n.LessonID) &&
		eq(f.ContentNodeID, n.ContentNodeID) &&
		eq(f.QuizID, n.QuizID)
}

func (f *fakeNotifications) Exists(_ context.Context, filter notification.Filter) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existsCalls++
	if f.staleReads {
		return false, nil
	}
	for _, n := range f.rows {
		if matches(n, filter) {
			return true, nil
		}
	}
	return false, nil
}

// SaveAll mimics the unique index on the notification tuple.
func (f *fakeNotifications) SaveAll(_ context.Context, batch []*notification.LearnerProgressNotification) ([]*notification.LearnerProgressNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	var inserted []*notification.LearnerProgressNotification
	for _, n := range batch {
		dup := false
		for _, existing := range f.rows {
			if existing.UserID == n.UserID && existing.Object == n.Object && existing.Event == n.Event &&
				existing.LessonID == n.LessonID && existing.ContentNodeID == n.ContentNodeID &&
				existing.QuizID == n.QuizID && existing.ClassroomID == n.ClassroomID {
				dup = true
				break
			}
		}
		if !dup {
			f.rows = append(f.rows, n)
			inserted = append(inserted, n)
		}
	}
	return inserted, nil
}

func (f *fakeNotifications) ListRecent(_ context.Context, classroomID string, limit int) ([]*notification.LearnerProgressNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*notification.LearnerProgressNotification
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if classroomID == "" || f.rows[i].ClassroomID == classroomID {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeNotifications) count(object notification.ObjectType, event notification.EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := 0
	for _, n := range f.rows {
		if n.Object == object && n.Event == event {
			c++
		}
	}
	return c
}

// fakeLMS serves lessons, memberships, exams, content nodes and progress logs from memory.
type fakeLMS struct {
	memberships   map[string][]string
	lessons       []*lesson.Lesson
	assignments   map[string][]string // lesson id -> collection ids
	examGroups    map[string][]string // exam id -> collection ids
	nodes         map[string]*content.Node
	summaries     map[string]*progress.SummaryLog // keyed by user|content
	masterySource map[string]*progress.SummaryLog // mastery log id -> summary log
	attempts      map[string][]*progress.AttemptLog
	lessonCalls   int
}

func newFakeLMS() *fakeLMS {
	return &fakeLMS{
		memberships:   map[string][]string{},
		assignments:   map[string][]string{},
		examGroups:    map[string][]string{},
		nodes:         map[string]*content.Node{},
		summaries:     map[string]*progress.SummaryLog{},
		masterySource: map[string]*progress.SummaryLog{},
		attempts:      map[string][]*progress.AttemptLog{},
	}
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func (f *fakeLMS) ListCollectionIDs(_ context.Context, userID string) ([]string, error) {
	return f.memberships[userID], nil
}

func (f *fakeLMS) ListActiveAssigned(_ context.Context, collectionIDs []string, contentID string) ([]*lesson.Lesson, error) {
	f.lessonCalls++
	var out []*lesson.Lesson
	for _, l := range f.lessons {
		if !l.IsActive || !contains(l.ContentIDs(), contentID) {
			continue
		}
		for _, c := range f.assignments[l.ID] {
			if contains(collectionIDs, c) {
				out = append(out, l)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeLMS) ListAssignedCollections(_ context.Context, examID string, collectionIDs []string) ([]string, error) {
	var out []string
	for _, c := range f.examGroups[examID] {
		if contains(collectionIDs, c) {
			out = append(out, c)
		}
	}
	return out, nil
}

var errNodeMissing = errors.New("content node not found")

func (f *fakeLMS) GetByID(_ context.Context, id string) (*content.Node, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, errNodeMissing
	}
	return n, nil
}

func (f *fakeLMS) CountCompleted(_ context.Context, userID string, contentIDs []string) (int, error) {
	c := 0
	for _, id := range contentIDs {
		if s, ok := f.summaries[userID+"|"+id]; ok && s.Progress >= 1.0 {
			c++
		}
	}
	return c, nil
}

func (f *fakeLMS) ListAttemptLogs(_ context.Context, masteryLogID string) ([]*progress.AttemptLog, error) {
	return f.attempts[masteryLogID], nil
}

func (f *fakeLMS) GetSummaryLogForMastery(_ context.Context, masteryLogID string) (*progress.SummaryLog, error) {
	s, ok := f.masterySource[masteryLogID]
	if !ok {
		return nil, errors.New("summary log not found")
	}
	return s, nil
}

func (f *fakeLMS) setProgress(userID, contentID, channelID string, p float64) *progress.SummaryLog {
	s := &progress.SummaryLog{
		ID:        userID + "-" + contentID,
		UserID:    userID,
		ContentID: contentID,
		ChannelID: channelID,
		Progress:  p,
	}
	f.summaries[userID+"|"+contentID] = s
	return s
}

type recordingObserver struct {
	created []*notification.LearnerProgressNotification
}

func (r *recordingObserver) Observe(_ context.Context, created []*notification.LearnerProgressNotification) {
	r.created = append(r.created, created...)
}

type fakeSessions struct {
	pingErr  error
	sessions int
	users    map[time.Duration]int
	now      time.Time
}

func (f *fakeSessions) Ping(context.Context) error { return f.pingErr }

func (f *fakeSessions) CountActiveSessions(context.Context, time.Time) (int, error) {
	return f.sessions, nil
}

func (f *fakeSessions) CountActiveUsers(_ context.Context, since time.Time) (int, error) {
	return f.users[f.now.Sub(since)], nil
}

type fakeSampler struct {
	machine    MachineStats
	machineErr error
	procs      map[int]ProcessStats
}

func (f *fakeSampler) SampleMachine() (MachineStats, error) {
	return f.machine, f.machineErr
}

func (f *fakeSampler) SampleProcess(pid int) (ProcessStats, error) {
	p, ok := f.procs[pid]
	if !ok {
		return ProcessStats{}, errors.New("no such process")
	}
	return p, nil
}
