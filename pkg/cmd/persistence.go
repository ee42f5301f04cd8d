package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence/file"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence/postgresql"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql"}

// NewPersistence opens the store named by the URL scheme. postgres:// and
// postgresql:// URLs run migrations on open; anything else is a file store directory.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger.With("module", "postgresql"), databaseURL)
		if err != nil {
			return nil, err
		}

		return p, nil
	default:
		p, err := file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}

		return p, nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
