package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studypath/studypath-backend/internal/core/domain"
	"github.com/studypath/studypath-backend/internal/core/ports"
)

// StartRunUseCase validates a batch of assets and queues a processing run.
// A user with a run outside the terminal stages gets RunAlreadyInProgress;
// concurrent synthesis for one user would race the question-uniqueness set.
type StartRunUseCase struct {
	runs   ports.RunRepository
	assets ports.AssetRepository
	queue  ports.MessageQueue
}

func NewStartRunUseCase(runs ports.RunRepository, assets ports.AssetRepository, queue ports.MessageQueue) *StartRunUseCase {
	return &StartRunUseCase{runs: runs, assets: assets, queue: queue}
}

func (uc *StartRunUseCase) StartRun(ctx context.Context, userID string, assetIDs []string) (string, error) {
	if userID == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "start run", errors.New("missing user id"))
	}
	if len(assetIDs) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "start run", errors.New("empty asset list"))
	}

	if _, err := uc.assets.ListByIDs(ctx, userID, assetIDs); err != nil {
		return "", fmt.Errorf("verify assets: %w", err)
	}

	active, err := uc.runs.HasActiveRun(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("check active run: %w", err)
	}
	if active {
		return "", domain.WrapError(domain.ErrRunAlreadyInProgress, "start run", errors.New("user has an active run"))
	}

	now := time.Now().UTC()
	run := &domain.Run{
		ID:        uuid.NewString(),
		UserID:    userID,
		AssetIDs:  assetIDs,
		Stage:     domain.StagePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.runs.Create(ctx, run); err != nil {
		return "", fmt.Errorf("persist run: %w", err)
	}

	if err := uc.queue.PublishRunRequested(ctx, run.ID); err != nil {
		if failErr := uc.runs.UpdateStage(ctx, run.ID, domain.StageFailed, 0, "queue publish failed"); failErr != nil {
			return "", fmt.Errorf("%w; mark failed: %v", err, failErr)
		}
		return "", fmt.Errorf("queue run: %w", err)
	}
	return run.ID, nil
}
