package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"progress_notifier/internal/domain/notification"
	"progress_notifier/internal/domain/progress"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHooks struct {
	summaries   []*progress.SummaryLog
	examLogs    []*progress.ExamLog
	attempts    []*progress.AttemptLog
	invalidated int
	err         error
}

func (f *fakeHooks) CreateSummaryLog(_ context.Context, s *progress.SummaryLog) error {
	f.summaries = append(f.summaries, s)
	return f.err
}

func (f *fakeHooks) ParseSummaryLog(_ context.Context, s *progress.SummaryLog) error {
	f.summaries = append(f.summaries, s)
	return f.err
}

func (f *fakeHooks) CreateExamLog(_ context.Context, e *progress.ExamLog) error {
	f.examLogs = append(f.examLogs, e)
	return f.err
}

func (f *fakeHooks) ParseExamLog(_ context.Context, e *progress.ExamLog) error {
	f.examLogs = append(f.examLogs, e)
	return f.err
}

func (f *fakeHooks) ParseAttemptLog(_ context.Context, a *progress.AttemptLog) error {
	f.attempts = append(f.attempts, a)
	return f.err
}

func (f *fakeHooks) InvalidateAssignments() { f.invalidated++ }

type fakeNotifications struct {
	rows      []*notification.LearnerProgressNotification
	gotLimit  int
	gotFilter string
}

func (f *fakeNotifications) Exists(context.Context, notification.Filter) (bool, error) {
	return false, nil
}

func (f *fakeNotifications) SaveAll(_ context.Context, batch []*notification.LearnerProgressNotification) ([]*notification.LearnerProgressNotification, error) {
	return batch, nil
}

func (f *fakeNotifications) ListRecent(_ context.Context, classroomID string, limit int) ([]*notification.LearnerProgressNotification, error) {
	f.gotFilter, f.gotLimit = classroomID, limit
	return f.rows, nil
}

func newTestRouter(hooks *fakeHooks, notifs *fakeNotifications) http.Handler {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewRouter(NewHookHandler(hooks, notifs, logrus.NewEntry(l)), prometheus.NewRegistry())
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHookEndpoints(t *testing.T) {
	hooks := &fakeHooks{}
	router := newTestRouter(hooks, &fakeNotifications{})

	rr := serve(router, http.MethodPost, "/api/hooks/summarylogs",
		`{"id":"s1","user_id":"u1","content_id":"c1","channel_id":"ch1","kind":"exercise","progress":0}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(router, http.MethodPut, "/api/hooks/summarylogs",
		`{"id":"s1","user_id":"u1","content_id":"c1","channel_id":"ch1","kind":"exercise","progress":1}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	require.Len(t, hooks.summaries, 2)
	assert.Equal(t, "ch1", hooks.summaries[0].ChannelID)
	assert.Equal(t, 1.0, hooks.summaries[1].Progress)

	rr = serve(router, http.MethodPost, "/api/hooks/examlogs", `{"id":"e1","user_id":"u1","exam_id":"q1"}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, hooks.examLogs, 1)
	assert.Equal(t, "q1", hooks.examLogs[0].ExamID)

	rr = serve(router, http.MethodPut, "/api/hooks/attemptlogs",
		`{"id":"a1","user_id":"u1","masterylog_id":"m1","interaction_history":[{"type":"answer","correct":0}]}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, hooks.attempts, 1)
	assert.Equal(t, 1, progress.CountFailed(hooks.attempts))

	rr = serve(router, http.MethodPost, "/api/hooks/assignments/invalidate", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, 1, hooks.invalidated)
}

func TestHookEndpointErrors(t *testing.T) {
	tests := []struct {
		name     string
		hookErr  error
		method   string
		path     string
		body     string
		wantCode int
	}{
		{name: "malformed body", method: http.MethodPost, path: "/api/hooks/summarylogs", body: `{"id":`, wantCode: http.StatusBadRequest},
		{name: "hook failure", hookErr: errors.New("db down"), method: http.MethodPut, path: "/api/hooks/examlogs", body: `{"id":"e1","user_id":"u1","exam_id":"q1"}`, wantCode: http.StatusInternalServerError},
		{name: "exam log without exam id", method: http.MethodPost, path: "/api/hooks/examlogs", body: `{"id":"e1","user_id":"u1"}`, wantCode: http.StatusBadRequest},
		{name: "summary log without content id", method: http.MethodPost, path: "/api/hooks/summarylogs", body: `{"id":"s1","user_id":"u1","progress":1}`, wantCode: http.StatusBadRequest},
		{name: "attempt log without user", method: http.MethodPut, path: "/api/hooks/attemptlogs", body: `{"id":"a1","masterylog_id":"m1"}`, wantCode: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodGet, path: "/api/hooks/attemptlogs", wantCode: http.StatusMethodNotAllowed},
		{name: "wrong method on listing", method: http.MethodDelete, path: "/api/notifications", wantCode: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hooks := &fakeHooks{err: tt.hookErr}
			rr := serve(newTestRouter(hooks, &fakeNotifications{}), tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, rr.Code)
			if tt.wantCode == http.StatusBadRequest {
				assert.Empty(t, hooks.summaries)
				assert.Empty(t, hooks.examLogs)
				assert.Empty(t, hooks.attempts)
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestListNotifications(t *testing.T) {
	n := notification.New(notification.ObjectResource, notification.EventHelp, "u1", "c1",
		notification.WithLesson("l1"), notification.WithContentNode("n1"), notification.WithReason(notification.HelpReasonMultiple))
	n.Timestamp = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	notifs := &fakeNotifications{rows: []*notification.LearnerProgressNotification{n}}
	router := newTestRouter(&fakeHooks{}, notifs)

	rr := serve(router, http.MethodGet, "/api/notifications?classroom_id=c1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "c1", notifs.gotFilter)
	assert.Equal(t, defaultListLimit, notifs.gotLimit)

	var views []NotificationView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Help", views[0].Event)
	assert.Equal(t, "Multiple", views[0].Reason)
	assert.Equal(t, "2024-03-01T09:30:00Z", views[0].Timestamp)
	assert.Empty(t, views[0].QuizID)

	rr = serve(router, http.MethodGet, "/api/notifications?limit=10000", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, maxListLimit, notifs.gotLimit)

	rr = serve(router, http.MethodGet, "/api/notifications?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(&fakeHooks{}, &fakeNotifications{})

	rr := serve(router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = serve(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}
