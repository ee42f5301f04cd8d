package tag_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/dmayes77/clientflow-sub001/pkg/actions/tag"
	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setup(t *testing.T) (*file.Persistence, *models.Tag) {
	t.Helper()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	vip := &models.Tag{TenantID: "tenant-1", Name: "VIP", Type: models.TagTypeGeneral}
	require.NoError(t, store.TagRepository().SaveTag(t.Context(), vip))

	return store, vip
}

func TestNewAction_RejectsOtherTypes(t *testing.T) {
	t.Parallel()

	_, err := tag.NewAction(models.ActionWait, nil, nil, testLogger())
	assert.Error(t, err)
}

func TestNewActions_CoversEveryTagType(t *testing.T) {
	t.Parallel()

	actions := tag.NewActions(nil, nil, testLogger())
	require.Len(t, actions, 8)

	for _, action := range actions {
		_, _, ok := action.Type().TagTarget()
		assert.True(t, ok, action.Type())
	}
}

func TestAction_AddIsIdempotent(t *testing.T) {
	t.Parallel()

	store, vip := setup(t)

	add, err := tag.NewAction(models.ActionAddTag, store.TagRepository(), store.TagAssociationRepository(), testLogger())
	require.NoError(t, err)

	tc := &models.TriggerContext{Tenant: &models.Tenant{ID: "tenant-1"}, Contact: &models.Contact{ID: "c1"}}
	action := models.Action{Type: models.ActionAddTag, Config: models.TagConfig{TagID: vip.ID}}

	first, err := add.Execute(t.Context(), action, tc)
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, "Tag added to client", first.Message)

	second, err := add.Execute(t.Context(), action, tc)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, "Tag already exists on client", second.Message)

	tags, err := store.TagAssociationRepository().TagsFor(t.Context(), models.EntityContact, "c1")
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestAction_Execute(t *testing.T) {
	t.Parallel()

	store, vip := setup(t)
	tenant := &models.Tenant{ID: "tenant-1"}

	require.NoError(t, store.TagAssociationRepository().Add(t.Context(), models.EntityInvoice, "inv-1", vip.ID))

	tests := []struct {
		name            string
		actionType      models.ActionType
		config          models.TagConfig
		tc              *models.TriggerContext
		expectedSuccess bool
		expectedError   string
		expectedMessage string
	}{
		{
			name:          "missing entity",
			actionType:    models.ActionAddTagToInvoice,
			config:        models.TagConfig{TagID: vip.ID},
			tc:            &models.TriggerContext{Tenant: tenant},
			expectedError: "Missing tag or invoice",
		},
		{
			name:          "missing tag",
			actionType:    models.ActionAddTagToBooking,
			config:        models.TagConfig{},
			tc:            &models.TriggerContext{Tenant: tenant, Booking: &models.Booking{ID: "b1"}},
			expectedError: "Missing tag or booking",
		},
		{
			name:          "unknown tag name",
			actionType:    models.ActionAddTagToPayment,
			config:        models.TagConfig{TagName: "Gold"},
			tc:            &models.TriggerContext{Tenant: tenant, Payment: &models.Payment{ID: "p1"}},
			expectedError: "Missing tag or payment",
		},
		{
			name:            "tag by name, case-insensitive",
			actionType:      models.ActionAddTagToBooking,
			config:          models.TagConfig{TagName: "vip"},
			tc:              &models.TriggerContext{Tenant: tenant, Booking: &models.Booking{ID: "b1"}},
			expectedSuccess: true,
			expectedMessage: "Tag added to booking",
		},
		{
			name:            "remove present tag",
			actionType:      models.ActionRemoveTagFromInvoice,
			config:          models.TagConfig{TagID: vip.ID},
			tc:              &models.TriggerContext{Tenant: tenant, Invoice: &models.Invoice{ID: "inv-1"}},
			expectedSuccess: true,
			expectedMessage: "Tag removed from invoice",
		},
		{
			name:            "remove absent tag",
			actionType:      models.ActionRemoveTag,
			config:          models.TagConfig{TagID: vip.ID},
			tc:              &models.TriggerContext{Tenant: tenant, Contact: &models.Contact{ID: "c9"}},
			expectedSuccess: true,
			expectedMessage: "Tag removed from client",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, err := tag.NewAction(tt.actionType, store.TagRepository(), store.TagAssociationRepository(), testLogger())
			require.NoError(t, err)

			result, err := handler.Execute(t.Context(), models.Action{Type: tt.actionType, Config: tt.config}, tt.tc)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedSuccess, result.Success)
			assert.Equal(t, tt.expectedError, result.Error)
			assert.Equal(t, tt.expectedMessage, result.Message)
		})
	}

	exists, err := store.TagAssociationRepository().Exists(t.Context(), models.EntityInvoice, "inv-1", vip.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAction_ResolvesSharedStatusNameAcrossTypes(t *testing.T) {
	t.Parallel()

	store, _ := setup(t)

	cancelled := &models.Tag{TenantID: "tenant-1", Name: "Cancelled", Type: models.TagTypeInvoice, IsSystem: true}
	require.NoError(t, store.TagRepository().SaveTag(t.Context(), cancelled))

	add, err := tag.NewAction(models.ActionAddTagToBooking, store.TagRepository(), store.TagAssociationRepository(), testLogger())
	require.NoError(t, err)

	tc := &models.TriggerContext{Tenant: &models.Tenant{ID: "tenant-1"}, Booking: &models.Booking{ID: "b1"}}

	result, err := add.Execute(t.Context(), models.Action{
		Type:   models.ActionAddTagToBooking,
		Config: models.TagConfig{TagName: "cancelled", TagType: models.TagTypeBooking},
	}, tc)
	require.NoError(t, err)
	assert.True(t, result.Success, result.Error)

	exists, err := store.TagAssociationRepository().Exists(t.Context(), models.EntityBooking, "b1", cancelled.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}
