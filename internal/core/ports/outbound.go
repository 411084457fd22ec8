package ports

import (
	"context"
	"io"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

// AssetRepository persists uploaded and derived assets.
type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) error
	GetByID(ctx context.Context, userID, id string) (*domain.Asset, error)
	ListByIDs(ctx context.Context, userID string, ids []string) ([]domain.Asset, error)
	UpdateStatus(ctx context.Context, id string, status domain.AssetStatus, errMessage string) error
}

// RunRepository persists run snapshots for the pull-based status query.
type RunRepository interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id string) (*domain.Run, error)
	UpdateStage(ctx context.Context, id string, stage domain.RunStage, percent int, errMessage string) error
	HasActiveRun(ctx context.Context, userID string) (bool, error)
}

// BundleRepository persists consolidated content bundles.
type BundleRepository interface {
	SaveContentBundle(ctx context.Context, bundle *domain.ContentBundle) error
	GetByRunID(ctx context.Context, runID string) (*domain.ContentBundle, error)
}

// TreeRepository persists knowledge trees and the per-user question prompts
// backing the global uniqueness constraint.
type TreeRepository interface {
	SaveKnowledgeTrees(ctx context.Context, trees []domain.KnowledgeTree) error
	ListByUser(ctx context.Context, userID string) ([]domain.KnowledgeTree, error)
	LoadExistingQuestionPrompts(ctx context.Context, userID string) ([]string, error)
}

// QuizRepository persists quiz attempts; only the most recent one is read.
type QuizRepository interface {
	SaveQuizAttempt(ctx context.Context, attempt *domain.QuizAttempt) error
	LoadLastQuizAttempt(ctx context.Context, userID string) (*domain.QuizAttempt, error)
}

// ObjectStorage stores raw asset payloads.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue carries run-requested events from the API to the worker.
type MessageQueue interface {
	PublishRunRequested(ctx context.Context, runID string) error
	SubscribeRunRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// ProgressSink is the worker-side half of the progress relay.
type ProgressSink interface {
	Emit(ctx context.Context, event domain.ProgressEvent) error
}

// ProgressSource is the API-side half of the progress relay; handler is
// invoked in delivery order per user.
type ProgressSource interface {
	SubscribeProgress(ctx context.Context, handler func(event domain.ProgressEvent)) error
}

// AssetExtractor turns one asset of its modality into an extraction result.
// A call is single-attempt against the external capability.
type AssetExtractor interface {
	Modality() domain.Modality
	Extract(ctx context.Context, asset *domain.Asset) (*domain.ExtractionResult, error)
}

// ContentAnalyzer is the external content-extraction capability.
type ContentAnalyzer interface {
	AnalyzeText(ctx context.Context, chunk string) (*domain.Fragment, error)
	DescribeImage(ctx context.Context, filename string, data []byte) (*domain.Fragment, error)
	Transcribe(ctx context.Context, filename string, data []byte) (string, error)
}

// StructureSynthesizer is the external structure-synthesis capability.
type StructureSynthesizer interface {
	ProposeForest(ctx context.Context, content string, maxTrees int) ([]domain.RawTree, error)
	GenerateQuestion(ctx context.Context, concept string, ancestors []string, level int, content string) (*domain.Question, error)
}

// GraphProjector mirrors synthesized trees into a graph store. Failures are
// recorded, never fatal to a run.
type GraphProjector interface {
	ProjectTrees(ctx context.Context, trees []domain.KnowledgeTree) error
}
