package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

type AssetRepository struct {
	db *sql.DB
}

func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO assets (
	id, user_id, filename, modality, mime_type, size_bytes, storage_key, parent_asset_id, origin, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		asset.ID, asset.UserID, asset.Filename, string(asset.Modality), asset.MimeType, asset.SizeBytes,
		asset.StorageKey, asset.ParentAssetID, asset.Origin, string(asset.Status), asset.Error,
		asset.CreatedAt, asset.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (r *AssetRepository) GetByID(ctx context.Context, userID, id string) (*domain.Asset, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, filename, modality, mime_type, size_bytes, storage_key, parent_asset_id, origin, status, error_message, created_at, updated_at
FROM assets
WHERE id = $1 AND user_id = $2
`, id, userID)

	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAssetNotFound, "asset lookup", err)
		}
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	return asset, nil
}

// ListByIDs returns the user's assets in the order the ids were given.
// A missing or foreign id is a not-found error for the whole list.
func (r *AssetRepository) ListByIDs(ctx context.Context, userID string, ids []string) ([]domain.Asset, error) {
	byID := make(map[string]domain.Asset, len(ids))
	for _, id := range ids {
		asset, err := r.GetByID(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		byID[id] = *asset
	}

	out := make([]domain.Asset, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out, nil
}

func (r *AssetRepository) UpdateStatus(ctx context.Context, id string, status domain.AssetStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE assets
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update asset status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("asset status rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrAssetNotFound, "asset status update", sql.ErrNoRows)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var asset domain.Asset
	var modality, status string
	err := row.Scan(
		&asset.ID, &asset.UserID, &asset.Filename, &modality, &asset.MimeType, &asset.SizeBytes,
		&asset.StorageKey, &asset.ParentAssetID, &asset.Origin, &status, &asset.Error,
		&asset.CreatedAt, &asset.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	asset.Modality = domain.Modality(modality)
	asset.Status = domain.AssetStatus(status)
	return &asset, nil
}
