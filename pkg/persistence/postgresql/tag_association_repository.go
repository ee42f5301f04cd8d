package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/lib/pq"
)

// TagAssociationRepository handles the invoice_tags, booking_tags, payment_tags and contact_tags tables.
type TagAssociationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTagAssociationRepository creates a new tag association repository.
func NewTagAssociationRepository(db *sql.DB, logger *slog.Logger) *TagAssociationRepository {
	return &TagAssociationRepository{db: db, logger: logger}
}

// associationTable returns the table and entity column for a kind. Both come
// from a fixed list, so they are safe to interpolate.
func associationTable(kind models.EntityKind) (string, string, error) {
	switch kind {
	case models.EntityInvoice:
		return "invoice_tags", "invoice_id", nil
	case models.EntityBooking:
		return "booking_tags", "booking_id", nil
	case models.EntityPayment:
		return "payment_tags", "payment_id", nil
	case models.EntityContact:
		return "contact_tags", "contact_id", nil
	default:
		return "", "", fmt.Errorf("%w: %s", persistence.ErrUnknownEntityKind, kind)
	}
}

// Exists reports whether the entity carries the tag.
func (r *TagAssociationRepository) Exists(ctx context.Context, kind models.EntityKind, entityID, tagID string) (bool, error) {
	table, column, err := associationTable(kind)
	if err != nil {
		return false, err
	}

	var exists bool

	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND tag_id = $2)", table, column)

	err = r.db.QueryRowContext(ctx, query, entityID, tagID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tag association: %w", err)
	}

	return exists, nil
}

// Add links the tag to the entity. A duplicate link yields ErrAssociationExists.
func (r *TagAssociationRepository) Add(ctx context.Context, kind models.EntityKind, entityID, tagID string) error {
	table, column, err := associationTable(kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("INSERT INTO %s (%s, tag_id) VALUES ($1, $2)", table, column)

	_, err = r.db.ExecContext(ctx, query, entityID, tagID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s %s: %w", kind, entityID, persistence.ErrAssociationExists)
		}

		return fmt.Errorf("failed to add tag association: %w", err)
	}

	return nil
}

// Remove deletes the link if present.
func (r *TagAssociationRepository) Remove(ctx context.Context, kind models.EntityKind, entityID, tagID string) error {
	table, column, err := associationTable(kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND tag_id = $2", table, column)

	_, err = r.db.ExecContext(ctx, query, entityID, tagID)
	if err != nil {
		return fmt.Errorf("failed to remove tag association: %w", err)
	}

	return nil
}

// RemoveByTagNames deletes the entity's links to any tenant tag named in names, except keepTagID.
func (r *TagAssociationRepository) RemoveByTagNames(
	ctx context.Context,
	kind models.EntityKind,
	entityID, tenantID string,
	names []string,
	keepTagID string,
) (int, error) {
	table, column, err := associationTable(kind)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		DELETE FROM %s assoc
		USING tags t
		WHERE assoc.tag_id = t.id
		  AND assoc.%s = $1
		  AND t.tenant_id = $2
		  AND t.name = ANY($3)
		  AND t.id <> $4
	`, table, column)

	result, err := r.db.ExecContext(ctx, query, entityID, tenantID, pq.Array(names), keepTagID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove tag associations: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read removed associations: %w", err)
	}

	return int(removed), nil
}

// TagsFor returns the tags on an entity ordered by name.
func (r *TagAssociationRepository) TagsFor(ctx context.Context, kind models.EntityKind, entityID string) ([]*models.Tag, error) {
	table, column, err := associationTable(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			t.id
		  , t.tenant_id
		  , t.name
		  , t.type
		  , COALESCE(t.color, '')
		  , COALESCE(t.description, '')
		  , t.is_system
		  , t.created_at
		  , t.updated_at
		FROM tags t
		JOIN %s assoc ON assoc.tag_id = t.id
		WHERE assoc.%s = $1
		ORDER BY t.name
	`, table, column)

	rows, err := r.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity tags: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	return collectTags(rows)
}
