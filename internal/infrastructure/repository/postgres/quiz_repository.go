package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

type QuizRepository struct {
	db *sql.DB
}

func NewQuizRepository(db *sql.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

func (r *QuizRepository) SaveQuizAttempt(ctx context.Context, attempt *domain.QuizAttempt) error {
	treeIDs, err := json.Marshal(attempt.TreeIDs)
	if err != nil {
		return fmt.Errorf("marshal tree ids: %w", err)
	}
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO quiz_attempts (id, user_id, tree_ids, answers, correct, total, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		attempt.ID, attempt.UserID, treeIDs, answers, attempt.Correct, attempt.Total, attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quiz attempt: %w", err)
	}
	return nil
}

func (r *QuizRepository) LoadLastQuizAttempt(ctx context.Context, userID string) (*domain.QuizAttempt, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, tree_ids, answers, correct, total, created_at
FROM quiz_attempts
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1
`, userID)

	var attempt domain.QuizAttempt
	var treeIDsRaw, answersRaw []byte
	err := row.Scan(&attempt.ID, &attempt.UserID, &treeIDsRaw, &answersRaw, &attempt.Correct, &attempt.Total, &attempt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan quiz attempt: %w", err)
	}
	if err := json.Unmarshal(treeIDsRaw, &attempt.TreeIDs); err != nil {
		return nil, fmt.Errorf("unmarshal tree ids: %w", err)
	}
	if err := json.Unmarshal(answersRaw, &attempt.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return &attempt, nil
}
