package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"github.com/studypath/studypath-backend/internal/core/domain"
	"github.com/studypath/studypath-backend/internal/observability/logging"
	"github.com/studypath/studypath-backend/internal/observability/metrics"
	"github.com/studypath/studypath-backend/internal/relay"
)

type stubIngestor struct{}

func (stubIngestor) Upload(_ context.Context, userID, filename, mimeType string, _ io.Reader) (*domain.Asset, error) {
	return &domain.Asset{ID: "a1", UserID: userID, Filename: filename, MimeType: mimeType, Status: domain.AssetPending}, nil
}

type stubStarter struct {
	err error
}

func (s stubStarter) StartRun(context.Context, string, []string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "r1", nil
}

type stubRunReader struct {
	run *domain.Run
	err error
}

func (s stubRunReader) GetRun(context.Context, string, string) (*domain.Run, error) {
	return s.run, s.err
}

type stubTreeReader struct{}

func (stubTreeReader) ListTrees(context.Context, string) ([]domain.KnowledgeTree, error) {
	return nil, nil
}

type stubQuiz struct {
	last *domain.QuizAttempt
}

func (s stubQuiz) SaveAttempt(_ context.Context, attempt *domain.QuizAttempt) (*domain.QuizAttempt, error) {
	attempt.Correct, attempt.Total = attempt.Score()
	return attempt, nil
}

func (s stubQuiz) LastAttempt(context.Context, string) (*domain.QuizAttempt, error) {
	return s.last, nil
}

func newTestRouter(starter stubStarter, runs stubRunReader, reg *relay.Registry) *Router {
	if reg == nil {
		reg = relay.NewRegistry(logging.NewJSONLogger("test", "error"))
	}
	return NewRouter(
		stubIngestor{},
		starter,
		runs,
		stubTreeReader{},
		stubQuiz{},
		reg,
		metrics.NewHTTPServerMetrics("api-test"),
	)
}

func TestEndpointsRequireUserHeader(t *testing.T) {
	handler := newTestRouter(stubStarter{}, stubRunReader{}, nil).Handler()

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/assets"},
		{http.MethodPost, "/v1/runs"},
		{http.MethodGet, "/v1/runs/r1"},
		{http.MethodGet, "/v1/trees"},
		{http.MethodPost, "/v1/quiz/attempts"},
		{http.MethodGet, "/v1/quiz/attempts/last"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", tc.method, tc.path, rec.Code)
		}
	}
}

func TestUploadAssetAccepted(t *testing.T) {
	handler := newTestRouter(stubStarter{}, stubRunReader{}, nil).Handler()

	var body strings.Builder
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("file", "notes.pdf")
	_, _ = part.Write([]byte("pdf bytes"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/assets", strings.NewReader(body.String()))
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(userIDHeader, "u1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var asset domain.Asset
	if err := json.Unmarshal(rec.Body.Bytes(), &asset); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if asset.Filename != "notes.pdf" || asset.UserID != "u1" {
		t.Errorf("unexpected asset %+v", asset)
	}
}

func TestStartRunConflictMapsTo409(t *testing.T) {
	starter := stubStarter{err: domain.WrapError(domain.ErrRunAlreadyInProgress, "start run", errors.New("busy"))}
	handler := newTestRouter(starter, stubRunReader{}, nil).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(`{"asset_ids":["a1"]}`))
	req.Header.Set(userIDHeader, "u1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestGetRunNotFoundMapsTo404(t *testing.T) {
	runs := stubRunReader{err: domain.WrapError(domain.ErrRunNotFound, "run lookup", errors.New("missing"))}
	handler := newTestRouter(stubStarter{}, runs, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/unknown", nil)
	req.Header.Set(userIDHeader, "u1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetRunReturnsStageAndPercent(t *testing.T) {
	runs := stubRunReader{run: &domain.Run{ID: "r1", UserID: "u1", Stage: domain.StageExtracting, Percent: 35}}
	handler := newTestRouter(stubStarter{}, runs, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/r1", nil)
	req.Header.Set(userIDHeader, "u1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var run domain.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if run.Stage != domain.StageExtracting || run.Percent != 35 {
		t.Errorf("unexpected run %+v", run)
	}
}

func TestListTreesReturnsEmptyArray(t *testing.T) {
	handler := newTestRouter(stubStarter{}, stubRunReader{}, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/trees", nil)
	req.Header.Set(userIDHeader, "u1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"trees":[]`) {
		t.Errorf("expected empty trees array, got %s", rec.Body.String())
	}
}

func TestProgressWebSocketStreamsUserEvents(t *testing.T) {
	reg := relay.NewRegistry(logging.NewJSONLogger("test", "error"))
	handler := newTestRouter(stubStarter{}, stubRunReader{}, reg).Handler()

	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/progress/ws"
	config, err := websocket.NewConfig(wsURL, srv.URL)
	if err != nil {
		t.Fatalf("ws config: %v", err)
	}
	config.Header = http.Header{userIDHeader: []string{"u1"}}

	conn, err := websocket.DialConfig(config)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for reg.ListenerCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("listener never attached")
		}
		time.Sleep(5 * time.Millisecond)
	}

	reg.Publish(domain.ProgressEvent{
		Type:    domain.EventStageProgress,
		RunID:   "r1",
		UserID:  "u1",
		Stage:   domain.StageExtracting,
		Percent: 30,
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var raw string
	if err := websocket.Message.Receive(conn, &raw); err != nil {
		t.Fatalf("ws receive: %v", err)
	}
	var event domain.ProgressEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.RunID != "r1" || event.Percent != 30 {
		t.Errorf("unexpected event %+v", event)
	}
}
