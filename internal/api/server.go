// Package api exposes the posture pipeline over HTTP: live state, feedback
// labeling, training control, and model inspection.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/posture.report/internal/classifier"
	"github.com/banshee-data/posture.report/internal/db"
	"github.com/banshee-data/posture.report/internal/httputil"
	"github.com/banshee-data/posture.report/internal/monitoring"
	"github.com/banshee-data/posture.report/internal/session"
	"github.com/banshee-data/posture.report/internal/telemetry"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Store is the database surface the API reads and writes directly.
type Store interface {
	ListPostureEvents(sessionID string, limit int) ([]db.PostureEvent, error)
	ReplaceTrainingSamples(samples []classifier.LabeledSample) error
}

type Server struct {
	session *session.Session
	worker  *session.TrainWorker
	store   Store
}

func NewServer(sess *session.Session, worker *session.TrainWorker, store Store) *Server {
	return &Server{
		session: sess,
		worker:  worker,
		store:   store,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.showState)
	mux.HandleFunc("/api/feedback", s.recordFeedback)
	mux.HandleFunc("/api/train", s.startTraining)
	mux.HandleFunc("/api/model", s.showModel)
	mux.HandleFunc("/api/export", s.exportModel)
	mux.HandleFunc("/api/calibrate", s.calibrate)
	mux.HandleFunc("/api/events", s.listEvents)
	mux.HandleFunc("/api/samples", s.replaceSamples)
	mux.HandleFunc("/command", s.sendCommandHandler)
	return mux
}

type modelSummary struct {
	Trained            bool    `json:"trained"`
	Training           bool    `json:"training"`
	TrainedSampleCount int     `json:"trained_sample_count"`
	LastTrainedAtMs    int64   `json:"last_trained_at_ms"`
	ConfidenceScore    float64 `json:"confidence_score"`
}

func (s *Server) modelSummary() modelSummary {
	m := s.worker.Model()
	return modelSummary{
		Trained:            m.IsTrained(),
		Training:           s.worker.Running(),
		TrainedSampleCount: m.TrainedSampleCount,
		LastTrainedAtMs:    m.LastTrainedAtMs,
		ConfidenceScore:    m.ConfidenceScore,
	}
}

func (s *Server) showState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"session_id": s.session.ID,
		"posture":    s.session.Snapshot(),
		"model":      s.modelSummary(),
	})
}

type feedbackRequest struct {
	Good *bool `json:"good"`
}

func (s *Server) recordFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid json body")
		return
	}
	if req.Good == nil {
		httputil.BadRequest(w, "missing \"good\" field")
		return
	}

	ls, err := s.session.Feedback(*req.Good)
	if err != nil {
		if errors.Is(err, session.ErrNoSample) {
			httputil.WriteJSONError(w, http.StatusConflict, "no telemetry received yet")
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("failed to store feedback: %v", err))
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"recorded": true,
		"good":     ls.Good,
		"sample":   ls.Sample,
	})
}

func (s *Server) startTraining(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	if err := s.worker.Request(); err != nil {
		switch {
		case errors.Is(err, session.ErrTrainingInProgress):
			httputil.WriteJSONError(w, http.StatusConflict, err.Error())
		case errors.Is(err, session.ErrNotEnoughSamples):
			httputil.WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			httputil.InternalServerError(w, fmt.Sprintf("failed to start training: %v", err))
		}
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "training"})
}

func (s *Server) showModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"model":  s.modelSummary(),
		"params": s.worker.Model().Params(),
	})
}

func (s *Server) exportModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, s.worker.Model().Report())
}

func (s *Server) calibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	if err := s.session.CalibrateNow(); err != nil {
		if errors.Is(err, session.ErrNoSample) {
			httputil.WriteJSONError(w, http.StatusConflict, "no telemetry received yet")
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("failed to calibrate: %v", err))
		return
	}

	httputil.WriteJSONOK(w, s.session.Snapshot())
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := s.store.ListPostureEvents(s.session.ID, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list events: %v", err))
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"session_id": s.session.ID,
		"events":     events,
	})
}

type labeledSampleRequest struct {
	Sample telemetry.Sample `json:"sample"`
	Good   bool             `json:"good"`
}

// replaceSamples overwrites the stored training set with the posted batch.
// Used to import a sample set captured elsewhere or to prune mislabeled
// feedback before retraining.
func (s *Server) replaceSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var reqs []labeledSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		httputil.BadRequest(w, "invalid json body")
		return
	}

	batch := make([]classifier.LabeledSample, len(reqs))
	for i, req := range reqs {
		batch[i] = classifier.LabeledSample{Sample: req.Sample, Good: req.Good}
	}

	if err := s.store.ReplaceTrainingSamples(batch); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to replace samples: %v", err))
		return
	}

	httputil.WriteJSONOK(w, map[string]int{"stored": len(batch)})
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	command := r.FormValue("command")
	if command == "" {
		httputil.BadRequest(w, "missing command")
		return
	}

	if err := s.session.SendCommand(command); err != nil {
		httputil.InternalServerError(w, "failed to send command")
		return
	}
	io.WriteString(w, "Command sent successfully")
}
