package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
)

// TriggerMatcher selects the active workflows of a tenant for a trigger.
type TriggerMatcher struct {
	workflows persistence.WorkflowRepository
	logger    *slog.Logger
}

func NewTriggerMatcher(workflows persistence.WorkflowRepository, logger *slog.Logger) *TriggerMatcher {
	return &TriggerMatcher{
		workflows: workflows,
		logger:    logger.With("module", "trigger_matcher"),
	}
}

// Match returns the workflows to run. For tag triggers with a tag in the context,
// workflows scoped to that tag and unscoped workflows both match.
func (tm *TriggerMatcher) Match(ctx context.Context, trigger string, tc *models.TriggerContext) ([]*models.Workflow, error) {
	if tc == nil || tc.Tenant == nil {
		return nil, ErrTenantRequired
	}

	var tagID *string

	if models.IsTagTrigger(trigger) && tc.Tag != nil {
		id := tc.Tag.ID
		tagID = &id
	}

	workflows, err := tm.workflows.FindActive(ctx, tc.Tenant.ID, trigger, tagID)
	if err != nil {
		return nil, fmt.Errorf("failed to find workflows for %s: %w", trigger, err)
	}

	tm.logger.DebugContext(ctx, "Completed trigger matching",
		"tenant_id", tc.Tenant.ID,
		"trigger", trigger,
		"tag_id", tc.TagID(),
		"matches_found", len(workflows))

	return workflows, nil
}
