package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ChronusArtCenter/cosycoding/internal/model"
)

// ProjectRepository provides data access for projects.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Upsert inserts a project or replaces its code and expiry if it already exists.
func (r *ProjectRepository) Upsert(ctx context.Context, project *model.Project) error {
	query := `
		INSERT INTO projects (id, code, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET code = excluded.code, expires_at = excluded.expires_at
	`

	_, err := r.db.ExecContext(ctx, query, project.ID, project.Code, project.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}

	return nil
}

// GetByID retrieves a project by its ID.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*model.Project, error) {
	query := `
		SELECT id, code, expires_at
		FROM projects
		WHERE id = ?
	`

	project := &model.Project{}
	var code sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID,
		&code,
		&project.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, model.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if code.Valid {
		project.Code = code.String
	}

	return project, nil
}

// Exists checks if a project exists.
func (r *ProjectRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT 1 FROM projects WHERE id = ? LIMIT 1`

	var exists int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check project existence: %w", err)
	}

	return true, nil
}

// DeleteExpired removes all projects whose expiry is before the given time.
// Asset rows are removed by the schema's cascade. Returns the number of
// projects deleted.
func (r *ProjectRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM projects WHERE expires_at < ?`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired projects: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
