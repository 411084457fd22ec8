package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/studypath/studypath-backend/internal/core/domain"
	"github.com/studypath/studypath-backend/internal/core/ports"
	"github.com/studypath/studypath-backend/internal/observability/metrics"
	"github.com/studypath/studypath-backend/internal/relay"
)

type Router struct {
	ingestor ports.AssetIngestor
	starter  ports.RunStarter
	runs     ports.RunReader
	trees    ports.TreeReader
	quiz     ports.QuizService
	relay    *relay.Registry
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	ingestor ports.AssetIngestor,
	starter ports.RunStarter,
	runs ports.RunReader,
	trees ports.TreeReader,
	quiz ports.QuizService,
	registry *relay.Registry,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		ingestor: ingestor,
		starter:  starter,
		runs:     runs,
		trees:    trees,
		quiz:     quiz,
		relay:    registry,
		metrics:  httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/assets", rt.uploadAsset)
	mux.HandleFunc("/v1/runs", rt.startRun)
	mux.HandleFunc("/v1/runs/", rt.getRun)
	mux.HandleFunc("/v1/trees", rt.listTrees)
	mux.HandleFunc("/v1/quiz/attempts", rt.saveQuizAttempt)
	mux.HandleFunc("/v1/quiz/attempts/last", rt.lastQuizAttempt)
	mux.Handle("/v1/progress/ws", rt.progressWebSocket())
	mux.Handle("/metrics", rt.metrics.Handler())

	handler := rt.metrics.Middleware("api", mux)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing " + userIDHeader + " header"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	asset, err := rt.ingestor.Upload(
		r.Context(),
		uid,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func (rt *Router) startRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing " + userIDHeader + " header"})
		return
	}

	var req struct {
		AssetIDs []string `json:"asset_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	runID, err := rt.starter.StartRun(r.Context(), uid, req.AssetIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (rt *Router) getRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing " + userIDHeader + " header"})
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if runID == "" || strings.Contains(runID, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "run id is required"})
		return
	}

	run, err := rt.runs.GetRun(r.Context(), uid, runID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (rt *Router) listTrees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing " + userIDHeader + " header"})
		return
	}

	trees, err := rt.trees.ListTrees(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	if trees == nil {
		trees = []domain.KnowledgeTree{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trees": trees})
}

func (rt *Router) saveQuizAttempt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing " + userIDHeader + " header"})
		return
	}

	var attempt domain.QuizAttempt
	if err := json.NewDecoder(r.Body).Decode(&attempt); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	attempt.UserID = uid

	saved, err := rt.quiz.SaveAttempt(r.Context(), &attempt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (rt *Router) lastQuizAttempt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing " + userIDHeader + " header"})
		return
	}

	attempt, err := rt.quiz.LastAttempt(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	if attempt == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no quiz attempts recorded"})
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
