package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the hook, notification, health and metrics endpoints.
// A nil gatherer leaves /metrics out.
func NewRouter(h *HookHandler, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(h.logger))
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	hooks := r.PathPrefix("/api/hooks").Subrouter()
	hooks.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	hooks.HandleFunc("/summarylogs", h.CreateSummaryLog).Methods("POST")
	hooks.HandleFunc("/summarylogs", h.ParseSummaryLog).Methods("PUT")
	hooks.HandleFunc("/examlogs", h.CreateExamLog).Methods("POST")
	hooks.HandleFunc("/examlogs", h.ParseExamLog).Methods("PUT")
	hooks.HandleFunc("/attemptlogs", h.ParseAttemptLog).Methods("PUT")
	hooks.HandleFunc("/assignments/invalidate", h.InvalidateAssignments).Methods("POST")

	r.HandleFunc("/api/notifications", h.ListNotifications).Methods("GET")
	return r
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// statusRecorder remembers the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *logrus.Entry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("Request handled")
		})
	}
}

// NewServer wraps the router in an http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}
