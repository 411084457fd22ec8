package ports

import (
	"context"
	"io"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

// AssetIngestor is the inbound contract for asset upload.
type AssetIngestor interface {
	Upload(ctx context.Context, userID, filename, mimeType string, body io.Reader) (*domain.Asset, error)
}

// RunStarter creates a processing run and queues it for execution.
type RunStarter interface {
	StartRun(ctx context.Context, userID string, assetIDs []string) (string, error)
}

// RunExecutor drives one queued run through the full pipeline.
type RunExecutor interface {
	ExecuteRun(ctx context.Context, runID string) error
}

// RunReader is the pull-based status query for late-attaching listeners.
type RunReader interface {
	GetRun(ctx context.Context, userID, runID string) (*domain.Run, error)
}

// TreeReader lists a user's stored knowledge trees.
type TreeReader interface {
	ListTrees(ctx context.Context, userID string) ([]domain.KnowledgeTree, error)
}

// QuizService records quiz attempts and serves the last one back.
type QuizService interface {
	SaveAttempt(ctx context.Context, attempt *domain.QuizAttempt) (*domain.QuizAttempt, error)
	LastAttempt(ctx context.Context, userID string) (*domain.QuizAttempt, error)
}
