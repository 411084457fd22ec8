package domain

import "time"

type EventType string

const (
	EventStageProgress EventType = "stage_progress"
	EventStageComplete EventType = "stage_complete"
	EventRunComplete   EventType = "run_complete"
	EventRunError      EventType = "run_error"
)

// ProgressEvent is one push update for a run. Delivery is best-effort: an
// unattached listener misses it and must fall back to the run status query.
type ProgressEvent struct {
	Type         EventType     `json:"type"`
	RunID        string        `json:"run_id"`
	UserID       string        `json:"user_id"`
	Stage        RunStage      `json:"stage"`
	Percent      int           `json:"percent"`
	Modality     Modality      `json:"modality,omitempty"`
	Message      string        `json:"message,omitempty"`
	Error        string        `json:"error,omitempty"`
	TreesSummary *TreesSummary `json:"trees_summary,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}
