package file

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
)

// TagRepository handles tag storage.
type TagRepository struct {
	store *store
}

// SaveTag upserts a tag on (tenant, name).
func (r *TagRepository) SaveTag(_ context.Context, tag *models.Tag) error {
	return r.store.write(func(data *state) error {
		ts := now()

		for id, existing := range data.Tags {
			if existing.TenantID == tag.TenantID && existing.Name == tag.Name {
				tag.ID = id
				tag.CreatedAt = existing.CreatedAt
				tag.UpdatedAt = ts
				data.Tags[id] = *tag

				return nil
			}
		}

		if tag.ID == "" {
			id, err := newID()
			if err != nil {
				return err
			}

			tag.ID = id
		}

		tag.CreatedAt = ts
		tag.UpdatedAt = ts
		data.Tags[tag.ID] = *tag

		return nil
	})
}

// TagByID returns a tag by its ID.
func (r *TagRepository) TagByID(_ context.Context, id string) (*models.Tag, error) {
	var found *models.Tag

	err := r.store.read(func(data *state) error {
		tag, ok := data.Tags[id]
		if !ok {
			return fmt.Errorf("tag %s: %w", id, persistence.ErrTagNotFound)
		}

		found = &tag

		return nil
	})

	return found, err
}

// FindTag returns the oldest tag matching the query.
func (r *TagRepository) FindTag(_ context.Context, query persistence.TagQuery) (*models.Tag, error) {
	var found *models.Tag

	err := r.store.read(func(data *state) error {
		for _, tag := range sortedTags(data.Tags) {
			if tag.TenantID != query.TenantID || !strings.EqualFold(tag.Name, query.Name) {
				continue
			}

			if query.Type != "" && tag.Type != query.Type {
				continue
			}

			if query.IsSystem != nil && tag.IsSystem != *query.IsSystem {
				continue
			}

			found = tag

			return nil
		}

		return fmt.Errorf("tag %q: %w", query.Name, persistence.ErrTagNotFound)
	})

	return found, err
}

// ListTags returns the tenant's tags ordered by type and name.
func (r *TagRepository) ListTags(_ context.Context, tenantID string) ([]*models.Tag, error) {
	var tags []*models.Tag

	err := r.store.read(func(data *state) error {
		for _, tag := range data.Tags {
			if tag.TenantID == tenantID {
				tags = append(tags, &tag)
			}
		}

		return nil
	})

	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Type != tags[j].Type {
			return tags[i].Type < tags[j].Type
		}

		return tags[i].Name < tags[j].Name
	})

	return tags, err
}

// DeleteTag removes a non-system tag together with its associations.
func (r *TagRepository) DeleteTag(_ context.Context, id string) error {
	return r.store.write(func(data *state) error {
		tag, ok := data.Tags[id]
		if !ok {
			return fmt.Errorf("tag %s: %w", id, persistence.ErrTagNotFound)
		}

		if tag.IsSystem {
			return fmt.Errorf("tag %s: %w", tag.Name, persistence.ErrSystemTagImmutable)
		}

		delete(data.Tags, id)

		data.Associations = slices.DeleteFunc(data.Associations, func(assoc models.TagAssociation) bool {
			return assoc.TagID == id
		})

		for workflowID, workflow := range data.Workflows {
			if workflow.TriggerTagID != nil && *workflow.TriggerTagID == id {
				workflow.TriggerTagID = nil
				data.Workflows[workflowID] = workflow
			}
		}

		return nil
	})
}

func sortedTags(tags map[string]models.Tag) []*models.Tag {
	sorted := make([]*models.Tag, 0, len(tags))
	for _, tag := range tags {
		sorted = append(sorted, &tag)
	}

	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}

		return sorted[i].ID < sorted[j].ID
	})

	return sorted
}

// TagAssociationRepository handles entity-tag links.
type TagAssociationRepository struct {
	store *store
}

func checkKind(kind models.EntityKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%s: %w", kind, persistence.ErrUnknownEntityKind)
	}

	return nil
}

func associationIndex(associations []models.TagAssociation, kind models.EntityKind, entityID, tagID string) int {
	return slices.IndexFunc(associations, func(assoc models.TagAssociation) bool {
		return assoc.Kind == kind && assoc.EntityID == entityID && assoc.TagID == tagID
	})
}

func (r *TagAssociationRepository) Exists(_ context.Context, kind models.EntityKind, entityID, tagID string) (bool, error) {
	err := checkKind(kind)
	if err != nil {
		return false, err
	}

	var exists bool

	err = r.store.read(func(data *state) error {
		exists = associationIndex(data.Associations, kind, entityID, tagID) >= 0

		return nil
	})

	return exists, err
}

// Add links a tag to an entity. It fails with ErrAssociationExists on a duplicate.
func (r *TagAssociationRepository) Add(_ context.Context, kind models.EntityKind, entityID, tagID string) error {
	err := checkKind(kind)
	if err != nil {
		return err
	}

	return r.store.write(func(data *state) error {
		if associationIndex(data.Associations, kind, entityID, tagID) >= 0 {
			return fmt.Errorf("%s %s tag %s: %w", kind, entityID, tagID, persistence.ErrAssociationExists)
		}

		if _, ok := data.Tags[tagID]; !ok {
			return fmt.Errorf("tag %s: %w", tagID, persistence.ErrTagNotFound)
		}

		data.Associations = append(data.Associations, models.TagAssociation{
			Kind:      kind,
			EntityID:  entityID,
			TagID:     tagID,
			CreatedAt: now(),
		})

		return nil
	})
}

// Remove unlinks a tag from an entity. Removing a missing link is not an error.
func (r *TagAssociationRepository) Remove(_ context.Context, kind models.EntityKind, entityID, tagID string) error {
	err := checkKind(kind)
	if err != nil {
		return err
	}

	return r.store.write(func(data *state) error {
		if i := associationIndex(data.Associations, kind, entityID, tagID); i >= 0 {
			data.Associations = slices.Delete(data.Associations, i, i+1)
		}

		return nil
	})
}

func (r *TagAssociationRepository) RemoveByTagNames(
	_ context.Context,
	kind models.EntityKind,
	entityID, tenantID string,
	names []string,
	keepTagID string,
) (int, error) {
	err := checkKind(kind)
	if err != nil {
		return 0, err
	}

	removed := 0

	err = r.store.write(func(data *state) error {
		data.Associations = slices.DeleteFunc(data.Associations, func(assoc models.TagAssociation) bool {
			if assoc.Kind != kind || assoc.EntityID != entityID || assoc.TagID == keepTagID {
				return false
			}

			tag, ok := data.Tags[assoc.TagID]
			if !ok || tag.TenantID != tenantID || !slices.Contains(names, tag.Name) {
				return false
			}

			removed++

			return true
		})

		return nil
	})

	return removed, err
}

// TagsFor returns the tags on an entity ordered by name.
func (r *TagAssociationRepository) TagsFor(_ context.Context, kind models.EntityKind, entityID string) ([]*models.Tag, error) {
	err := checkKind(kind)
	if err != nil {
		return nil, err
	}

	var tags []*models.Tag

	err = r.store.read(func(data *state) error {
		for _, assoc := range data.Associations {
			if assoc.Kind != kind || assoc.EntityID != entityID {
				continue
			}

			if tag, ok := data.Tags[assoc.TagID]; ok {
				tags = append(tags, &tag)
			}
		}

		return nil
	})

	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })

	return tags, err
}
