package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
)

const templateColumns = `
			id
		  , tenant_id
		  , COALESCE(system_key, '')
		  , is_system
		  , name
		  , COALESCE(category, '')
		  , subject
		  , body
		  , COALESCE(description, '')
		  , created_at`

// EmailTemplateRepository handles email template database operations.
type EmailTemplateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEmailTemplateRepository creates a new email template repository.
func NewEmailTemplateRepository(db *sql.DB, logger *slog.Logger) *EmailTemplateRepository {
	return &EmailTemplateRepository{db: db, logger: logger}
}

// SaveTemplate upserts a template by ID.
func (r *EmailTemplateRepository) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	if template.ID == "" {
		id, err := newID()
		if err != nil {
			return err
		}

		template.ID = id
	}

	if template.CreatedAt.IsZero() {
		template.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_templates (id, tenant_id, system_key, is_system, name, category, subject, body, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			description = EXCLUDED.description
	`,
		template.ID,
		template.TenantID,
		nullString(template.SystemKey),
		template.IsSystem,
		template.Name,
		template.Category,
		template.Subject,
		template.Body,
		template.Description,
		template.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save email template: %w", err)
	}

	return nil
}

// TemplateByID returns a template by its ID.
func (r *EmailTemplateRepository) TemplateByID(ctx context.Context, id string) (*models.EmailTemplate, error) {
	template, err := scanTemplate(r.db.QueryRowContext(ctx, "SELECT"+templateColumns+" FROM email_templates WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template %s: %w", id, persistence.ErrTemplateNotFound)
		}

		return nil, fmt.Errorf("failed to scan email template: %w", err)
	}

	return template, nil
}

// TemplateBySystemKey returns a tenant's system template.
func (r *EmailTemplateRepository) TemplateBySystemKey(ctx context.Context, tenantID, systemKey string) (*models.EmailTemplate, error) {
	template, err := scanTemplate(r.db.QueryRowContext(ctx,
		"SELECT"+templateColumns+" FROM email_templates WHERE tenant_id = $1 AND system_key = $2",
		tenantID, systemKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("template %s: %w", systemKey, persistence.ErrTemplateNotFound)
		}

		return nil, fmt.Errorf("failed to scan email template: %w", err)
	}

	return template, nil
}

func scanTemplate(row scanner) (*models.EmailTemplate, error) {
	var template models.EmailTemplate

	err := row.Scan(
		&template.ID,
		&template.TenantID,
		&template.SystemKey,
		&template.IsSystem,
		&template.Name,
		&template.Category,
		&template.Subject,
		&template.Body,
		&template.Description,
		&template.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &template, nil
}
