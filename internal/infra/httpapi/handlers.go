package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"progress_notifier/internal/app"
	"progress_notifier/internal/domain/notification"
	"progress_notifier/internal/domain/progress"

	"github.com/sirupsen/logrus"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// HookHandler exposes the progress hooks to the serializers of the web application.
type HookHandler struct {
	hooks     app.ProgressHooks
	notifRepo notification.Repository
	logger    *logrus.Entry
}

func NewHookHandler(hooks app.ProgressHooks, notifRepo notification.Repository, logger *logrus.Entry) *HookHandler {
	return &HookHandler{hooks: hooks, notifRepo: notifRepo, logger: logger}
}

// NotificationView is the JSON shape of a notification.
type NotificationView struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	ClassroomID   string `json:"classroom_id"`
	Object        string `json:"notification_object"`
	Event         string `json:"notification_event"`
	LessonID      string `json:"lesson_id,omitempty"`
	ContentNodeID string `json:"contentnode_id,omitempty"`
	QuizID        string `json:"quiz_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Timestamp     string `json:"timestamp"`
}

func toView(n *notification.LearnerProgressNotification) NotificationView {
	return NotificationView{
		ID:            n.ID,
		UserID:        n.UserID,
		ClassroomID:   n.ClassroomID,
		Object:        string(n.Object),
		Event:         string(n.Event),
		LessonID:      n.LessonID,
		ContentNodeID: n.ContentNodeID,
		QuizID:        n.QuizID,
		Reason:        string(n.Reason),
		Timestamp:     n.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// firstMissing returns the name of the first empty field, given as
// name/value pairs, or "" when all are set.
func firstMissing(pairs ...string) string {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return pairs[i]
		}
	}
	return ""
}

func summaryMissing(s *progress.SummaryLog) string {
	return firstMissing("user_id", s.UserID, "content_id", s.ContentID)
}

func examMissing(e *progress.ExamLog) string {
	return firstMissing("user_id", e.UserID, "exam_id", e.ExamID)
}

func attemptMissing(a *progress.AttemptLog) string {
	return firstMissing("user_id", a.UserID, "masterylog_id", a.MasteryLogID)
}

// runHook decodes the body, rejects payloads without the ids the hook looks
// rows up by, and calls the hook.
func runHook[T any](h *HookHandler, name string, w http.ResponseWriter, r *http.Request, missing func(*T) string, hook func(context.Context, *T) error) {
	var payload T
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if field := missing(&payload); field != "" {
		respondWithError(w, http.StatusBadRequest, "Missing required field: "+field)
		return
	}
	if err := hook(r.Context(), &payload); err != nil {
		h.logger.WithError(err).WithField("hook", name).Error("Progress hook failed")
		respondWithError(w, http.StatusInternalServerError, "Failed to process progress hook")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HookHandler) CreateSummaryLog(w http.ResponseWriter, r *http.Request) {
	runHook(h, "create_summarylog", w, r, summaryMissing, h.hooks.CreateSummaryLog)
}

func (h *HookHandler) ParseSummaryLog(w http.ResponseWriter, r *http.Request) {
	runHook(h, "parse_summarylog", w, r, summaryMissing, h.hooks.ParseSummaryLog)
}

func (h *HookHandler) CreateExamLog(w http.ResponseWriter, r *http.Request) {
	runHook(h, "create_examlog", w, r, examMissing, h.hooks.CreateExamLog)
}

func (h *HookHandler) ParseExamLog(w http.ResponseWriter, r *http.Request) {
	runHook(h, "parse_examlog", w, r, examMissing, h.hooks.ParseExamLog)
}

func (h *HookHandler) ParseAttemptLog(w http.ResponseWriter, r *http.Request) {
	runHook(h, "parse_attemptslog", w, r, attemptMissing, h.hooks.ParseAttemptLog)
}

func (h *HookHandler) InvalidateAssignments(w http.ResponseWriter, r *http.Request) {
	h.hooks.InvalidateAssignments()
	h.logger.Debug("Assignment cache invalidated")
	w.WriteHeader(http.StatusNoContent)
}

func (h *HookHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		limit = n
	}

	list, err := h.notifRepo.ListRecent(r.Context(), r.URL.Query().Get("classroom_id"), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list notifications")
		respondWithError(w, http.StatusInternalServerError, "Failed to list notifications")
		return
	}
	views := make([]NotificationView, 0, len(list))
	for _, n := range list {
		views = append(views, toView(n))
	}
	respondWithJSON(w, http.StatusOK, views)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
