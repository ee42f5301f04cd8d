// Package postgresql provides PostgreSQL persistence implementation for the workflow engine.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence/sqlbase"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db              *sql.DB
	logger          *slog.Logger
	tagRepo         *TagRepository
	associationRepo *TagAssociationRepository
	workflowRepo    *WorkflowRepository
	runRepo         *WorkflowRunRepository
	entityRepo      *EntityRepository
	templateRepo    *EmailTemplateRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:              database,
		logger:          logger,
		tagRepo:         NewTagRepository(database, logger),
		associationRepo: NewTagAssociationRepository(database, logger),
		workflowRepo:    NewWorkflowRepository(database, logger),
		runRepo:         NewWorkflowRunRepository(database, logger),
		entityRepo:      NewEntityRepository(database, logger),
		templateRepo:    NewEmailTemplateRepository(database, logger),
	}

	// Run migrations on initialization
	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) TagRepository() persistence.TagRepository {
	return p.tagRepo
}

func (p *Persistence) TagAssociationRepository() persistence.TagAssociationRepository {
	return p.associationRepo
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) WorkflowRunRepository() persistence.WorkflowRunRepository {
	return p.runRepo
}

func (p *Persistence) EntityRepository() persistence.EntityRepository {
	return p.entityRepo
}

func (p *Persistence) EmailTemplateRepository() persistence.EmailTemplateRepository {
	return p.templateRepo
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

type scanner interface {
	Scan(dest ...any) error
}
