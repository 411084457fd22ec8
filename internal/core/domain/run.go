package domain

import "time"

type RunStage string

const (
	StagePending       RunStage = "pending"
	StageExtracting    RunStage = "extracting"
	StageConsolidating RunStage = "consolidating"
	StageSynthesizing  RunStage = "synthesizing"
	StageDone          RunStage = "done"
	StageFailed        RunStage = "failed"
)

// Terminal reports whether the stage ends the run.
func (s RunStage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Run is the persisted snapshot of a processing run: stage and last-known
// percent for the pull-based status query. The live join set lives inside
// the orchestrator and is discarded when the run reaches a terminal stage.
type Run struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	AssetIDs  []string  `json:"asset_ids"`
	Stage     RunStage  `json:"stage"`
	Percent   int       `json:"percent"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
