package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/google/uuid"
)

const tagColumns = `
			id
		  , tenant_id
		  , name
		  , type
		  , COALESCE(color, '')
		  , COALESCE(description, '')
		  , is_system
		  , created_at
		  , updated_at`

// TagRepository handles tag-related database operations.
type TagRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTagRepository creates a new tag repository.
func NewTagRepository(db *sql.DB, logger *slog.Logger) *TagRepository {
	return &TagRepository{db: db, logger: logger}
}

// SaveTag upserts a tag on (tenant_id, name). The stored id is written back to the tag.
func (r *TagRepository) SaveTag(ctx context.Context, tag *models.Tag) error {
	now := time.Now().UTC()

	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = now
	}

	tag.UpdatedAt = now

	if tag.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate tag ID: %w", err)
		}

		tag.ID = id.String()
	}

	query := `
		INSERT INTO tags (id, tenant_id, name, type, color, description, is_system, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id, name) DO UPDATE SET
			type = EXCLUDED.type,
			color = EXCLUDED.color,
			description = EXCLUDED.description,
			is_system = EXCLUDED.is_system,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		tag.ID,
		tag.TenantID,
		tag.Name,
		tag.Type,
		tag.Color,
		tag.Description,
		tag.IsSystem,
		tag.CreatedAt,
		tag.UpdatedAt,
	).Scan(&tag.ID, &tag.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save tag: %w", err)
	}

	return nil
}

// TagByID returns a tag by its ID.
func (r *TagRepository) TagByID(ctx context.Context, id string) (*models.Tag, error) {
	row := r.db.QueryRowContext(ctx, "SELECT"+tagColumns+" FROM tags WHERE id = $1", id)

	tag, err := scanTag(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tag %s: %w", id, persistence.ErrTagNotFound)
		}

		return nil, fmt.Errorf("failed to scan tag: %w", err)
	}

	return tag, nil
}

// FindTag returns the tag matching the query.
func (r *TagRepository) FindTag(ctx context.Context, query persistence.TagQuery) (*models.Tag, error) {
	sqlQuery := "SELECT" + tagColumns + " FROM tags WHERE tenant_id = $1 AND LOWER(name) = LOWER($2)"
	args := []any{query.TenantID, query.Name}

	if query.Type != "" {
		args = append(args, query.Type)
		sqlQuery += " AND type = $" + strconv.Itoa(len(args))
	}

	if query.IsSystem != nil {
		args = append(args, *query.IsSystem)
		sqlQuery += " AND is_system = $" + strconv.Itoa(len(args))
	}

	sqlQuery += " ORDER BY created_at LIMIT 1"

	tag, err := scanTag(r.db.QueryRowContext(ctx, sqlQuery, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tag %q: %w", query.Name, persistence.ErrTagNotFound)
		}

		return nil, fmt.Errorf("failed to scan tag: %w", err)
	}

	return tag, nil
}

// ListTags returns every tag of a tenant ordered by type and name.
func (r *TagRepository) ListTags(ctx context.Context, tenantID string) ([]*models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT"+tagColumns+" FROM tags WHERE tenant_id = $1 ORDER BY type, name", tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	return collectTags(rows)
}

// DeleteTag deletes a non-system tag.
func (r *TagRepository) DeleteTag(ctx context.Context, id string) error {
	tag, err := r.TagByID(ctx, id)
	if err != nil {
		return err
	}

	if tag.IsSystem {
		return fmt.Errorf("tag %s: %w", tag.Name, persistence.ErrSystemTagImmutable)
	}

	_, err = r.db.ExecContext(ctx, "DELETE FROM tags WHERE id = $1 AND is_system = FALSE", id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	return nil
}

func collectTags(rows *sql.Rows) ([]*models.Tag, error) {
	tags := make([]*models.Tag, 0)

	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}

		tags = append(tags, tag)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}

func scanTag(row scanner) (*models.Tag, error) {
	var tag models.Tag

	err := row.Scan(
		&tag.ID,
		&tag.TenantID,
		&tag.Name,
		&tag.Type,
		&tag.Color,
		&tag.Description,
		&tag.IsSystem,
		&tag.CreatedAt,
		&tag.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &tag, nil
}
