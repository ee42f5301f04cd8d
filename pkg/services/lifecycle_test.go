package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmayes77/clientflow-sub001/pkg/config"
	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence/file"
	"github.com/dmayes77/clientflow-sub001/pkg/protocol"
	"github.com/dmayes77/clientflow-sub001/pkg/provision"
	"github.com/dmayes77/clientflow-sub001/pkg/tagstatus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	triggers []string
	err      error
}

func (r *recorder) emitter() protocol.TriggerEmitter {
	return protocol.TriggerEmitterFunc(func(_ context.Context, trigger string, _ *models.TriggerContext) error {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.triggers = append(r.triggers, trigger)

		return r.err
	})
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.triggers...)
}

type lifecycleFixture struct {
	store     *file.Persistence
	lifecycle *Lifecycle
	emitted   *recorder
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	ctx := t.Context()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	entities := store.EntityRepository()
	require.NoError(t, entities.SaveTenant(ctx, &models.Tenant{ID: "tenant-1", Name: "Shine Detailing"}))
	require.NoError(t, entities.SaveContact(ctx, &models.Contact{ID: "c1", TenantID: "tenant-1", Name: "Ada Lovelace", Status: "lead"}))
	require.NoError(t, entities.SaveBooking(ctx, &models.Booking{ID: "b1", TenantID: "tenant-1", ContactID: "c1", Status: "pending"}))
	require.NoError(t, entities.SaveInvoice(ctx, &models.Invoice{ID: "i1", TenantID: "tenant-1", ContactID: "c1", Status: "draft"}))
	require.NoError(t, entities.SavePayment(ctx, &models.Payment{ID: "p1", TenantID: "tenant-1", ContactID: "c1", Status: "pending"}))

	seed, err := config.DefaultSeed()
	require.NoError(t, err)

	_, err = provision.NewProvisioner(store, seed, testLogger()).ProvisionTenant(ctx, "tenant-1")
	require.NoError(t, err)

	emitted := &recorder{}
	manager := tagstatus.NewManager(store, emitted.emitter(), testLogger())

	return &lifecycleFixture{
		store:     store,
		lifecycle: NewLifecycle(store, manager, emitted.emitter(), testLogger()),
		emitted:   emitted,
	}
}

func (f *lifecycleFixture) tagNames(t *testing.T, kind models.EntityKind, id string) []string {
	t.Helper()

	tags, err := f.store.TagAssociationRepository().TagsFor(t.Context(), kind, id)
	require.NoError(t, err)

	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}

	return names
}

func TestLifecycle_Transition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		kind        models.EntityKind
		id          string
		status      string
		wantTrigger string
		wantTag     string
	}{
		{name: "invoice paid", kind: models.EntityInvoice, id: "i1", status: "paid", wantTrigger: "invoice_paid", wantTag: "Paid"},
		{name: "invoice deposit", kind: models.EntityInvoice, id: "i1", status: "deposit_paid", wantTrigger: "invoice_deposit_paid", wantTag: "Deposit Paid"},
		{name: "booking confirmed", kind: models.EntityBooking, id: "b1", status: "confirmed", wantTrigger: "booking_confirmed", wantTag: "Confirmed"},
		{name: "booking cancelled shares the invoice tag", kind: models.EntityBooking, id: "b1", status: "cancelled", wantTrigger: "booking_cancelled", wantTag: "Cancelled"},
		{name: "payment refunded", kind: models.EntityPayment, id: "p1", status: "refunded", wantTrigger: "payment_refunded", wantTag: "Refunded"},
		{name: "contact lead", kind: models.EntityContact, id: "c1", status: "lead", wantTrigger: "lead_created", wantTag: "Lead"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newLifecycleFixture(t)

			result, err := f.lifecycle.Transition(t.Context(), tt.kind, "tenant-1", tt.id, tt.status)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTrigger, result.Trigger)
			assert.True(t, result.Tag.Applied)
			assert.True(t, result.Tag.New)
			assert.Equal(t, []string{tt.wantTag}, f.tagNames(t, tt.kind, tt.id))
			assert.Equal(t, []string{models.TagAddedTrigger(tt.kind), tt.wantTrigger}, f.emitted.all())
		})
	}
}

func TestLifecycle_TransitionPersistsStatus(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture(t)

	_, err := f.lifecycle.TransitionBooking(t.Context(), "tenant-1", "b1", "scheduled")
	require.NoError(t, err)

	_, err = f.lifecycle.TransitionBooking(t.Context(), "tenant-1", "b1", "completed")
	require.NoError(t, err)

	booking, err := f.store.EntityRepository().Booking(t.Context(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "completed", booking.Status)
	assert.Equal(t, []string{"Completed"}, f.tagNames(t, models.EntityBooking, "b1"))
}

func TestLifecycle_TransitionErrors(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture(t)

	_, err := f.lifecycle.TransitionInvoice(t.Context(), "tenant-1", "i1", "lost")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.lifecycle.TransitionInvoice(t.Context(), "", "i1", "paid")
	assert.ErrorIs(t, err, ErrTenantRequired)

	_, err = f.lifecycle.TransitionInvoice(t.Context(), "tenant-2", "i1", "paid")
	assert.True(t, persistence.IsEntityNotFound(err))

	_, err = f.lifecycle.TransitionBooking(t.Context(), "tenant-1", "missing", "confirmed")
	assert.True(t, persistence.IsEntityNotFound(err))

	_, err = f.lifecycle.Transition(t.Context(), "tenant", "tenant-1", "t1", "active")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	assert.Empty(t, f.emitted.all())
}

func TestLifecycle_EmissionErrorsAreSwallowed(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture(t)
	f.emitted.err = errors.New("bus down")

	result, err := f.lifecycle.TransitionInvoice(t.Context(), "tenant-1", "i1", "sent")
	require.NoError(t, err)
	assert.Equal(t, "invoice_sent", result.Trigger)
}

func TestLifecycle_RecordPayment(t *testing.T) {
	t.Parallel()

	f := newLifecycleFixture(t)

	_, err := f.lifecycle.TransitionContact(t.Context(), "tenant-1", "c1", "lead")
	require.NoError(t, err)

	result, err := f.lifecycle.RecordPayment(t.Context(), "tenant-1", "p1")
	require.NoError(t, err)

	assert.Equal(t, models.TriggerPaymentReceived, result.Trigger)
	assert.True(t, result.Converted)
	assert.Equal(t, []string{"Succeeded"}, f.tagNames(t, models.EntityPayment, "p1"))
	assert.Equal(t, []string{"Client"}, f.tagNames(t, models.EntityContact, "c1"))
	assert.Contains(t, f.emitted.all(), models.TriggerClientConverted)

	payment, err := f.store.EntityRepository().Payment(t.Context(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", payment.Status)

	converted, err := f.lifecycle.ConvertContact(t.Context(), "tenant-1", "c1")
	require.NoError(t, err)
	assert.False(t, converted)
}
