package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ChronusArtCenter/cosycoding/internal/model"
)

// AssetRepository provides data access for project assets.
type AssetRepository struct {
	db *sql.DB
}

// NewAssetRepository creates a new AssetRepository.
func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Insert persists a new asset for the project and returns the stored record
// with its server-assigned identifier and creation time.
func (r *AssetRepository) Insert(ctx context.Context, projectID string, draft model.AssetDraft) (*model.Asset, error) {
	asset := &model.Asset{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		URL:       draft.URL,
		Filename:  draft.Filename,
		Type:      draft.Type,
		Size:      draft.Size,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO assets (id, project_id, url, filename, type, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		asset.ID,
		asset.ProjectID,
		asset.URL,
		asset.Filename,
		asset.Type,
		asset.Size,
		asset.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert asset: %w", err)
	}

	return asset, nil
}

// ListByProject retrieves all assets attached to a project, oldest first.
func (r *AssetRepository) ListByProject(ctx context.Context, projectID string) ([]*model.Asset, error) {
	query := `
		SELECT id, project_id, url, filename, type, size, created_at
		FROM assets
		WHERE project_id = ?
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*model.Asset
	for rows.Next() {
		asset := &model.Asset{}
		err := rows.Scan(
			&asset.ID,
			&asset.ProjectID,
			&asset.URL,
			&asset.Filename,
			&asset.Type,
			&asset.Size,
			&asset.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

// DeleteByURL removes the asset with the given URL from the project.
func (r *AssetRepository) DeleteByURL(ctx context.Context, projectID, url string) error {
	query := `DELETE FROM assets WHERE project_id = ? AND url = ?`

	result, err := r.db.ExecContext(ctx, query, projectID, url)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrAssetNotFound
	}

	return nil
}
