package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

type BundleRepository struct {
	db *sql.DB
}

func NewBundleRepository(db *sql.DB) *BundleRepository {
	return &BundleRepository{db: db}
}

// SaveContentBundle upserts on run_id, which makes consolidation idempotent
// under worker redelivery.
func (r *BundleRepository) SaveContentBundle(ctx context.Context, bundle *domain.ContentBundle) error {
	results, err := json.Marshal(bundle.Results)
	if err != nil {
		return fmt.Errorf("marshal bundle results: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO content_bundles (run_id, user_id, results, total_size, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (run_id) DO UPDATE SET results = EXCLUDED.results, total_size = EXCLUDED.total_size
`,
		bundle.RunID, bundle.UserID, results, bundle.TotalSize, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert content bundle: %w", err)
	}
	return nil
}

func (r *BundleRepository) GetByRunID(ctx context.Context, runID string) (*domain.ContentBundle, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT run_id, user_id, results, total_size
FROM content_bundles
WHERE run_id = $1
`, runID)

	var bundle domain.ContentBundle
	var resultsRaw []byte
	err := row.Scan(&bundle.RunID, &bundle.UserID, &resultsRaw, &bundle.TotalSize)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRunNotFound, "bundle lookup", err)
		}
		return nil, fmt.Errorf("scan content bundle: %w", err)
	}
	if err := json.Unmarshal(resultsRaw, &bundle.Results); err != nil {
		return nil, fmt.Errorf("unmarshal bundle results: %w", err)
	}
	return &bundle, nil
}
