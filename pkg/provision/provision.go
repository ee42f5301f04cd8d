// Package provision seeds a tenant with system tags, email templates and default workflows.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmayes77/clientflow-sub001/pkg/config"
	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
)

// Report counts what a provisioning pass changed.
type Report struct {
	TenantID         string `json:"tenantId"`
	TagsCreated      int    `json:"tagsCreated"`
	TagsUpdated      int    `json:"tagsUpdated"`
	TemplatesCreated int    `json:"templatesCreated"`
	WorkflowsCreated int    `json:"workflowsCreated"`
}

type Provisioner struct {
	seed      *config.Seed
	entities  persistence.EntityRepository
	tags      persistence.TagRepository
	templates persistence.EmailTemplateRepository
	workflows persistence.WorkflowRepository
	logger    *slog.Logger
}

func NewProvisioner(p persistence.Persistence, seed *config.Seed, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		seed:      seed,
		entities:  p.EntityRepository(),
		tags:      p.TagRepository(),
		templates: p.EmailTemplateRepository(),
		workflows: p.WorkflowRepository(),
		logger:    logger.With("module", "provisioner"),
	}
}

// ProvisionTenant is idempotent: existing tags keep their color and description,
// templates and workflows already present under their system key are left alone.
func (p *Provisioner) ProvisionTenant(ctx context.Context, tenantID string) (*Report, error) {
	_, err := p.entities.Tenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant %s: %w", tenantID, err)
	}

	report := &Report{TenantID: tenantID}

	for _, seed := range p.seed.SystemTags {
		err = p.ensureTag(ctx, tenantID, seed, true, report)
		if err != nil {
			return report, err
		}
	}

	for _, seed := range p.seed.DefaultTags {
		err = p.ensureTag(ctx, tenantID, seed, false, report)
		if err != nil {
			return report, err
		}
	}

	for _, seed := range p.seed.Templates {
		err = p.ensureTemplate(ctx, tenantID, seed, report)
		if err != nil {
			return report, err
		}
	}

	for _, seed := range p.seed.Workflows {
		err = p.ensureWorkflow(ctx, tenantID, seed, report)
		if err != nil {
			return report, err
		}
	}

	p.logger.InfoContext(ctx, "Tenant provisioned",
		"tenant_id", tenantID,
		"tags_created", report.TagsCreated,
		"tags_updated", report.TagsUpdated,
		"templates_created", report.TemplatesCreated,
		"workflows_created", report.WorkflowsCreated)

	return report, nil
}

func (p *Provisioner) ensureTag(ctx context.Context, tenantID string, seed config.TagSeed, system bool, report *Report) error {
	existing, err := p.tags.FindTag(ctx, persistence.TagQuery{TenantID: tenantID, Name: seed.Name})

	switch {
	case err == nil:
		if !system || existing.IsSystem {
			return nil
		}

		existing.IsSystem = true

		err = p.tags.SaveTag(ctx, existing)
		if err != nil {
			return fmt.Errorf("failed to mark tag %s as system: %w", seed.Name, err)
		}

		report.TagsUpdated++

		return nil
	case !errors.Is(err, persistence.ErrTagNotFound):
		return fmt.Errorf("failed to look up tag %s: %w", seed.Name, err)
	}

	tag := &models.Tag{
		TenantID:    tenantID,
		Name:        seed.Name,
		Type:        seed.Type,
		Color:       seed.Color,
		Description: seed.Description,
		IsSystem:    system,
	}

	err = p.tags.SaveTag(ctx, tag)
	if err != nil {
		return fmt.Errorf("failed to create tag %s: %w", seed.Name, err)
	}

	report.TagsCreated++

	return nil
}

func (p *Provisioner) ensureTemplate(ctx context.Context, tenantID string, seed config.TemplateSeed, report *Report) error {
	_, err := p.templates.TemplateBySystemKey(ctx, tenantID, seed.Key)
	if err == nil {
		return nil
	}

	if !persistence.IsNotFound(err) {
		return fmt.Errorf("failed to look up template %s: %w", seed.Key, err)
	}

	err = p.templates.SaveTemplate(ctx, &models.EmailTemplate{
		TenantID:    tenantID,
		SystemKey:   seed.Key,
		IsSystem:    true,
		Name:        seed.Name,
		Category:    seed.Category,
		Subject:     seed.Subject,
		Body:        seed.Body,
		Description: seed.Description,
	})
	if err != nil {
		return fmt.Errorf("failed to create template %s: %w", seed.Key, err)
	}

	report.TemplatesCreated++

	return nil
}

func (p *Provisioner) ensureWorkflow(ctx context.Context, tenantID string, seed config.WorkflowSeed, report *Report) error {
	_, err := p.workflows.BySystemKey(ctx, tenantID, seed.Key)
	if err == nil {
		return nil
	}

	if !persistence.IsNotFound(err) {
		return fmt.Errorf("failed to look up workflow %s: %w", seed.Key, err)
	}

	actions, err := seed.ModelActions()
	if err != nil {
		return fmt.Errorf("invalid workflow %s: %w", seed.Key, err)
	}

	err = p.workflows.Save(ctx, &models.Workflow{
		TenantID:     tenantID,
		Name:         seed.Name,
		Description:  seed.Description,
		TriggerType:  seed.Trigger,
		Active:       true,
		DelayMinutes: seed.DelayMinutes,
		Actions:      actions,
		SystemKey:    seed.Key,
	})
	if err != nil {
		return fmt.Errorf("failed to create workflow %s: %w", seed.Key, err)
	}

	report.WorkflowsCreated++

	return nil
}
