package tagstatus_test

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/locker"
	"github.com/dmayes77/clientflow-sub001/pkg/mocks"
	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence/file"
	"github.com/dmayes77/clientflow-sub001/pkg/tagstatus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const tenantID = "tenant-1"

type fixture struct {
	store   *file.Persistence
	emitter *mocks.MockEmitter
	manager *tagstatus.Manager
	tags    map[string]*models.Tag
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newFixture(t *testing.T, opts ...tagstatus.Option) *fixture {
	t.Helper()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	ctx := t.Context()
	require.NoError(t, store.EntityRepository().SaveTenant(ctx, &models.Tenant{ID: tenantID, Name: "Shine Detailing"}))

	f := &fixture{store: store, emitter: &mocks.MockEmitter{}, tags: map[string]*models.Tag{}}

	seed := []struct {
		name    string
		tagType models.TagType
	}{
		{"Draft", models.TagTypeInvoice}, {"Sent", models.TagTypeInvoice}, {"Paid", models.TagTypeInvoice},
		{"Cancelled", models.TagTypeInvoice},
		{"Pending", models.TagTypeBooking}, {"Scheduled", models.TagTypeBooking}, {"Completed", models.TagTypeBooking},
		{"Inquiry", models.TagTypeBooking},
		{"Lead", models.TagTypeContact}, {"Client", models.TagTypeContact},
	}

	for _, s := range seed {
		tag := &models.Tag{TenantID: tenantID, Name: s.name, Type: s.tagType, IsSystem: true}
		require.NoError(t, store.TagRepository().SaveTag(ctx, tag))
		f.tags[s.name] = tag
	}

	f.manager = tagstatus.NewManager(store, f.emitter, testLogger(), opts...)

	return f
}

func (f *fixture) tagNames(t *testing.T, kind models.EntityKind, id string) []string {
	t.Helper()

	tags, err := f.store.TagAssociationRepository().TagsFor(t.Context(), kind, id)
	require.NoError(t, err)

	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}

	return names
}

func TestManager_ApplyStatusTag_ReplacesCategory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	contact := &models.Contact{ID: "c1", TenantID: tenantID, Name: "Ana Lima"}
	require.NoError(t, f.store.EntityRepository().SaveContact(ctx, contact))

	invoice := &models.Invoice{ID: "inv-1", TenantID: tenantID, ContactID: "c1", Status: "draft"}
	require.NoError(t, f.store.EntityRepository().SaveInvoice(ctx, invoice))

	vip := &models.Tag{TenantID: tenantID, Name: "VIP", Type: models.TagTypeGeneral}
	require.NoError(t, f.store.TagRepository().SaveTag(ctx, vip))
	require.NoError(t, f.store.TagAssociationRepository().Add(ctx, models.EntityInvoice, "inv-1", vip.ID))

	f.emitter.On("EmitTrigger", mock.Anything, models.TriggerInvoiceTagAdded, mock.MatchedBy(func(tc *models.TriggerContext) bool {
		return tc.Tenant.ID == tenantID && tc.Invoice.ID == "inv-1" && tc.Contact.ID == "c1" && tc.Tag.ID == f.tags["Draft"].ID
	})).Return(nil).Once()

	outcome, err := f.manager.ApplyStatusTag(ctx, models.EntityInvoice, "inv-1", tenantID, "draft", tagstatus.Options{})
	require.NoError(t, err)
	assert.Equal(t, tagstatus.Outcome{Applied: true, New: true, TagID: f.tags["Draft"].ID, TagName: "Draft"}, outcome)

	f.emitter.On("EmitTrigger", mock.Anything, models.TriggerInvoiceTagAdded, mock.MatchedBy(func(tc *models.TriggerContext) bool {
		return tc.Tag.ID == f.tags["Paid"].ID && tc.Invoice == invoice
	})).Return(nil).Once()

	outcome, err = f.manager.ApplyStatusTag(ctx, models.EntityInvoice, "inv-1", tenantID, "paid",
		tagstatus.Options{Invoice: invoice})
	require.NoError(t, err)
	assert.True(t, outcome.New)
	assert.Equal(t, 1, outcome.Removed)

	assert.Equal(t, []string{"Paid", "VIP"}, f.tagNames(t, models.EntityInvoice, "inv-1"))
	f.emitter.AssertExpectations(t)
}

func TestManager_ApplyStatusTag_ReapplyIsQuiet(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	f.emitter.On("EmitTrigger", mock.Anything, models.TriggerBookingTagAdded, mock.Anything).Return(nil).Once()

	first, err := f.manager.ApplyStatusTag(ctx, models.EntityBooking, "b1", tenantID, "completed", tagstatus.Options{})
	require.NoError(t, err)
	assert.True(t, first.New)

	second, err := f.manager.ApplyStatusTag(ctx, models.EntityBooking, "b1", tenantID, "completed", tagstatus.Options{})
	require.NoError(t, err)
	assert.True(t, second.Applied)
	assert.False(t, second.New)

	assert.Equal(t, []string{"Completed"}, f.tagNames(t, models.EntityBooking, "b1"))
	f.emitter.AssertNumberOfCalls(t, "EmitTrigger", 1)
}

func TestManager_ApplyStatusTag_LegacyInquiry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.emitter.On("EmitTrigger", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.store.TagAssociationRepository().Add(ctx, models.EntityBooking, "b1", f.tags["Inquiry"].ID))

	outcome, err := f.manager.ApplyStatusTag(ctx, models.EntityBooking, "b1", tenantID, "inquiry", tagstatus.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Pending", outcome.TagName)
	assert.Equal(t, []string{"Pending"}, f.tagNames(t, models.EntityBooking, "b1"))
}

func TestManager_ApplyStatusTag_NoOps(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		name   string
		kind   models.EntityKind
		status string
	}{
		{name: "unmapped status", kind: models.EntityInvoice, status: "archived"},
		{name: "tag not provisioned", kind: models.EntityPayment, status: "refunded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := f.manager.ApplyStatusTag(t.Context(), tt.kind, "e1", tenantID, tt.status, tagstatus.Options{})
			require.NoError(t, err)
			assert.False(t, outcome.Applied)
		})
	}

	f.emitter.AssertNotCalled(t, "EmitTrigger", mock.Anything, mock.Anything, mock.Anything)
}

func TestManager_ApplyStatusTag_SharedNameFallsBackAcrossTypes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.emitter.On("EmitTrigger", mock.Anything, models.TriggerBookingTagAdded, mock.Anything).Return(nil)

	outcome, err := f.manager.ApplyStatusTag(t.Context(), models.EntityBooking, "b1", tenantID, "cancelled", tagstatus.Options{})
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, f.tags["Cancelled"].ID, outcome.TagID)
}

func TestManager_ApplyStatusTag_EmissionErrorIsSwallowed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.emitter.On("EmitTrigger", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	outcome, err := f.manager.ApplyStatusTag(t.Context(), models.EntityBooking, "b1", tenantID, "scheduled", tagstatus.Options{})
	require.NoError(t, err)
	assert.True(t, outcome.New)
}

func TestManager_ApplyStatusTag_UnknownKind(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.manager.ApplyStatusTag(t.Context(), models.EntityKind("vehicle"), "v1", tenantID, "paid", tagstatus.Options{})
	require.Error(t, err)
}

func TestManager_ApplyStatusTag_SerializedPerEntity(t *testing.T) {
	t.Parallel()

	f := newFixture(t, tagstatus.WithLocker(locker.NewMemory(5*time.Second)))
	f.emitter.On("EmitTrigger", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	statuses := []string{"pending", "scheduled", "completed", "pending", "scheduled", "completed"}

	var wg sync.WaitGroup

	for _, status := range statuses {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := f.manager.ApplyStatusTag(t.Context(), models.EntityBooking, "b1", tenantID, status, tagstatus.Options{})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Len(t, f.tagNames(t, models.EntityBooking, "b1"), 1)
}

func TestManager_ConvertLeadToClient(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	contact := &models.Contact{ID: "c1", TenantID: tenantID, Name: "Ana Lima"}
	require.NoError(t, f.store.EntityRepository().SaveContact(ctx, contact))

	converted, err := f.manager.ConvertLeadToClient(ctx, "c1", tenantID, tagstatus.Options{})
	require.NoError(t, err)
	assert.False(t, converted, "contact without Lead tag")

	require.NoError(t, f.store.TagAssociationRepository().Add(ctx, models.EntityContact, "c1", f.tags["Lead"].ID))

	f.emitter.On("EmitTrigger", mock.Anything, models.TriggerClientConverted, mock.MatchedBy(func(tc *models.TriggerContext) bool {
		return tc.Contact.ID == "c1" && tc.Tag.Name == "Client"
	})).Return(nil).Once()

	converted, err = f.manager.ConvertLeadToClient(ctx, "c1", tenantID, tagstatus.Options{})
	require.NoError(t, err)
	assert.True(t, converted)
	assert.Equal(t, []string{"Client"}, f.tagNames(t, models.EntityContact, "c1"))

	converted, err = f.manager.ConvertLeadToClient(ctx, "c1", tenantID, tagstatus.Options{})
	require.NoError(t, err)
	assert.False(t, converted, "already a client")

	f.emitter.AssertExpectations(t)
}
