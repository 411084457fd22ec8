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

// QuizUseCase records completed quiz sessions and serves the most recent
// one back. The score is recomputed server-side from the answers.
type QuizUseCase struct {
	quizzes ports.QuizRepository
}

func NewQuizUseCase(quizzes ports.QuizRepository) *QuizUseCase {
	return &QuizUseCase{quizzes: quizzes}
}

func (uc *QuizUseCase) SaveAttempt(ctx context.Context, attempt *domain.QuizAttempt) (*domain.QuizAttempt, error) {
	if attempt.UserID == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "save quiz attempt", errors.New("missing user id"))
	}
	if len(attempt.Answers) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "save quiz attempt", errors.New("no answers"))
	}

	attempt.ID = uuid.NewString()
	attempt.Correct, attempt.Total = attempt.Score()
	attempt.CreatedAt = time.Now().UTC()

	if err := uc.quizzes.SaveQuizAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("persist quiz attempt: %w", err)
	}
	return attempt, nil
}

func (uc *QuizUseCase) LastAttempt(ctx context.Context, userID string) (*domain.QuizAttempt, error) {
	if userID == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "load quiz attempt", errors.New("missing user id"))
	}
	attempt, err := uc.quizzes.LoadLastQuizAttempt(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load last quiz attempt: %w", err)
	}
	return attempt, nil
}
