package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

// uniqueViolation is the Postgres error code raised by uniq_runs_active_user
// when a second non-terminal run is inserted for one user.
const uniqueViolation = "23505"

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
	assetIDs, err := json.Marshal(run.AssetIDs)
	if err != nil {
		return fmt.Errorf("marshal asset ids: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO runs (id, user_id, asset_ids, stage, percent, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		run.ID, run.UserID, assetIDs, string(run.Stage), run.Percent, run.Error, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.WrapError(domain.ErrRunAlreadyInProgress, "insert run", err)
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, asset_ids, stage, percent, error_message, created_at, updated_at
FROM runs
WHERE id = $1
`, id)

	var run domain.Run
	var assetIDsRaw []byte
	var stage string
	err := row.Scan(&run.ID, &run.UserID, &assetIDsRaw, &stage, &run.Percent, &run.Error, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRunNotFound, "run lookup", err)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal(assetIDsRaw, &run.AssetIDs); err != nil {
		return nil, fmt.Errorf("unmarshal asset ids: %w", err)
	}
	run.Stage = domain.RunStage(stage)
	return &run, nil
}

func (r *RunRepository) UpdateStage(ctx context.Context, id string, stage domain.RunStage, percent int, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE runs
SET stage = $2, percent = $3, error_message = $4, updated_at = $5
WHERE id = $1
`, id, string(stage), percent, errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update run stage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("run stage rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrRunNotFound, "run stage update", sql.ErrNoRows)
	}
	return nil
}

// HasActiveRun reports whether the user has a run outside the terminal
// stages. Backs the one-active-run-per-user rule.
func (r *RunRepository) HasActiveRun(ctx context.Context, userID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM runs WHERE user_id = $1 AND stage NOT IN ('done', 'failed')
)
`, userID)

	var active bool
	if err := row.Scan(&active); err != nil {
		return false, fmt.Errorf("scan active run: %w", err)
	}
	return active, nil
}
