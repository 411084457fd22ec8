package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/studypath/studypath-backend/internal/core/domain"
	"github.com/studypath/studypath-backend/internal/core/ports"
)

// RunStatusUseCase is the pull-based status query. Listeners that attach
// after events were dropped poll this instead of expecting replay.
type RunStatusUseCase struct {
	runs ports.RunRepository
}

func NewRunStatusUseCase(runs ports.RunRepository) *RunStatusUseCase {
	return &RunStatusUseCase{runs: runs}
}

func (uc *RunStatusUseCase) GetRun(ctx context.Context, userID, runID string) (*domain.Run, error) {
	run, err := uc.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.UserID != userID {
		// Foreign runs look absent, not forbidden.
		return nil, domain.WrapError(domain.ErrRunNotFound, "run lookup", errors.New("run belongs to another user"))
	}
	return run, nil
}

type ListTreesUseCase struct {
	trees ports.TreeRepository
}

func NewListTreesUseCase(trees ports.TreeRepository) *ListTreesUseCase {
	return &ListTreesUseCase{trees: trees}
}

func (uc *ListTreesUseCase) ListTrees(ctx context.Context, userID string) ([]domain.KnowledgeTree, error) {
	if userID == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "list trees", errors.New("missing user id"))
	}
	trees, err := uc.trees.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list trees: %w", err)
	}
	return trees, nil
}
