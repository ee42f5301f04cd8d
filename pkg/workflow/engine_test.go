package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/actions"
	"github.com/dmayes77/clientflow-sub001/pkg/mailer"
	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence/file"
	"github.com/dmayes77/clientflow-sub001/pkg/registry"
	"github.com/dmayes77/clientflow-sub001/pkg/tagstatus"
	"github.com/dmayes77/clientflow-sub001/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tenantID   = "tenant-1"
	actionPing = models.ActionType("ping")
	actionBoom = models.ActionType("boom")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// countingHandler records every execution and optionally fails the run.
type countingHandler struct {
	actionType models.ActionType
	calls      atomic.Int32
	err        error
}

func (h *countingHandler) Type() models.ActionType { return h.actionType }

func (h *countingHandler) Schema() map[string]any { return map[string]any{"type": "object"} }

func (h *countingHandler) Execute(context.Context, models.Action, *models.TriggerContext) (models.ActionResult, error) {
	h.calls.Add(1)

	if h.err != nil {
		return models.ActionResult{}, h.err
	}

	return models.Succeeded(h.actionType, "pong"), nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type harness struct {
	store  *file.Persistence
	engine *workflow.Engine
	ping   *countingHandler
	boom   *countingHandler
	clock  *clock
	tenant *models.Tenant
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	tenant := &models.Tenant{ID: tenantID, Name: "Shine Detailing", Email: "owner@shine.test"}
	require.NoError(t, store.EntityRepository().SaveTenant(t.Context(), tenant))

	h := &harness{
		store:  store,
		ping:   &countingHandler{actionType: actionPing},
		boom:   &countingHandler{actionType: actionBoom, err: errors.New("database unavailable")},
		clock:  &clock{now: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)},
		tenant: tenant,
	}

	reg := registry.NewRegistry(testLogger())
	actions.RegisterDefaults(reg, actions.Dependencies{
		Persistence: store,
		Mailer:      mailer.NewLogMailer(testLogger()),
		AppURL:      "https://app.clientflow.test",
		Logger:      testLogger(),
	})
	reg.Register(h.ping)
	reg.Register(h.boom)

	h.engine = workflow.NewEngine(store, actions.NewExecutor(reg, nil, testLogger()), testLogger(),
		workflow.WithClock(h.clock.Now))

	return h
}

func (h *harness) workflow(t *testing.T, wf *models.Workflow) *models.Workflow {
	t.Helper()

	wf.TenantID = tenantID
	wf.Active = true

	if wf.Name == "" {
		wf.Name = "workflow " + wf.TriggerType
	}

	require.NoError(t, h.store.WorkflowRepository().Save(t.Context(), wf))

	return wf
}

func (h *harness) tag(t *testing.T, name string, tagType models.TagType) *models.Tag {
	t.Helper()

	tag := &models.Tag{TenantID: tenantID, Name: name, Type: tagType, IsSystem: true}
	require.NoError(t, h.store.TagRepository().SaveTag(t.Context(), tag))

	return tag
}

func ping() models.Action {
	return models.Action{Type: actionPing, Config: models.UnknownConfig{}}
}

func TestEngine_TriggerWorkflows_RequiresTenant(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := h.engine.TriggerWorkflows(t.Context(), models.TriggerBookingCreated, &models.TriggerContext{})
	require.ErrorIs(t, err, workflow.ErrTenantRequired)

	_, err = h.engine.TriggerWorkflows(t.Context(), models.TriggerBookingCreated, nil)
	require.ErrorIs(t, err, workflow.ErrTenantRequired)
}

func TestEngine_TriggerWorkflows_NoMatch(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.workflow(t, &models.Workflow{TriggerType: models.TriggerInvoicePaid, Actions: []models.Action{ping()}})

	summary, err := h.engine.TriggerWorkflows(t.Context(), models.TriggerBookingCreated, &models.TriggerContext{Tenant: h.tenant})
	require.NoError(t, err)
	assert.Equal(t, "No workflows to execute", summary.Message)
	assert.Zero(t, summary.Executed)
	assert.Empty(t, summary.Runs)
	assert.Zero(t, h.ping.calls.Load())
}

func TestEngine_TriggerWorkflows_TagScoping(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	paid := h.tag(t, "Paid", models.TagTypeInvoice)
	draft := h.tag(t, "Draft", models.TagTypeInvoice)

	scopedPaid := h.workflow(t, &models.Workflow{Name: "paid only", TriggerType: models.TriggerInvoiceTagAdded, TriggerTagID: &paid.ID, Actions: []models.Action{ping()}})
	unscoped := h.workflow(t, &models.Workflow{Name: "any tag", TriggerType: models.TriggerInvoiceTagAdded, Actions: []models.Action{ping()}})
	h.workflow(t, &models.Workflow{Name: "draft only", TriggerType: models.TriggerInvoiceTagAdded, TriggerTagID: &draft.ID, Actions: []models.Action{ping()}})
	h.workflow(t, &models.Workflow{Name: "inactive", TriggerType: models.TriggerInvoiceTagAdded, Actions: []models.Action{ping()}})

	inactive, err := h.store.WorkflowRepository().ListByTenant(t.Context(), tenantID)
	require.NoError(t, err)

	for _, wf := range inactive {
		if wf.Name == "inactive" {
			wf.Active = false
			require.NoError(t, h.store.WorkflowRepository().Save(t.Context(), wf))
		}
	}

	summary, err := h.engine.TriggerWorkflows(t.Context(), models.TriggerInvoiceTagAdded,
		&models.TriggerContext{Tenant: h.tenant, Invoice: &models.Invoice{ID: "inv-1"}, Tag: paid})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Executed)

	matched := []string{}
	for _, rs := range summary.Runs {
		matched = append(matched, rs.WorkflowID)
		assert.Equal(t, models.RunStatusCompleted, rs.Status)
	}

	assert.ElementsMatch(t, []string{scopedPaid.ID, unscoped.ID}, matched)
	assert.Equal(t, int32(2), h.ping.calls.Load())
}

func TestEngine_TriggerWorkflows_PartialFailureCompletes(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	wf := h.workflow(t, &models.Workflow{
		TriggerType: models.TriggerBookingCreated,
		Actions: []models.Action{
			{Type: models.ActionAddTag, Config: models.TagConfig{TagID: "missing"}},
			{Type: "teleport", Config: models.UnknownConfig{}},
			ping(),
		},
	})

	summary, err := h.engine.TriggerWorkflows(t.Context(), models.TriggerBookingCreated, &models.TriggerContext{Tenant: h.tenant})
	require.NoError(t, err)
	require.Len(t, summary.Runs, 1)

	run, err := h.store.WorkflowRunRepository().GetByID(t.Context(), summary.Runs[0].RunID)
	require.NoError(t, err)

	assert.Equal(t, wf.ID, run.WorkflowID)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.NotNil(t, run.CompletedAt)
	require.Len(t, run.Results, 3)
	assert.Equal(t, "Missing tag or client", run.Results[0].Error)
	assert.Equal(t, "Unknown action type: teleport", run.Results[1].Error)
	assert.True(t, run.Results[2].Success)
}

func TestEngine_TriggerWorkflows_UndecodableConfigFailsOnlyItsAction(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	var broken models.Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"create_invoice","config":{"dueInDays":"15"}}`), &broken))

	h.workflow(t, &models.Workflow{TriggerType: models.TriggerBookingCompleted, Actions: []models.Action{broken, ping()}})

	summary, err := h.engine.TriggerWorkflows(t.Context(), models.TriggerBookingCompleted, &models.TriggerContext{Tenant: h.tenant})
	require.NoError(t, err)
	require.Len(t, summary.Runs, 1)

	run, err := h.store.WorkflowRunRepository().GetByID(t.Context(), summary.Runs[0].RunID)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	require.Len(t, run.Results, 2)
	assert.False(t, run.Results[0].Success)
	assert.Contains(t, run.Results[0].Error, "Invalid config for action create_invoice")
	assert.True(t, run.Results[1].Success)
}

func TestEngine_TriggerWorkflows_FatalErrorFailsRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.workflow(t, &models.Workflow{
		TriggerType: models.TriggerBookingCreated,
		Actions: []models.Action{
			ping(),
			{Type: actionBoom, Config: models.UnknownConfig{}},
			ping(),
		},
	})

	summary, err := h.engine.TriggerWorkflows(t.Context(), models.TriggerBookingCreated, &models.TriggerContext{Tenant: h.tenant})
	require.NoError(t, err)
	require.Len(t, summary.Runs, 1)
	assert.Equal(t, models.RunStatusFailed, summary.Runs[0].Status)

	run, err := h.store.WorkflowRunRepository().GetByID(t.Context(), summary.Runs[0].RunID)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "database unavailable")
	assert.Len(t, run.Results, 1)
	assert.Equal(t, int32(1), h.ping.calls.Load())
}

func TestEngine_DelayedRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := t.Context()

	contact := &models.Contact{ID: "c1", TenantID: tenantID, Name: "Ana Lima", Status: "lead"}
	require.NoError(t, h.store.EntityRepository().SaveContact(ctx, contact))

	wf := h.workflow(t, &models.Workflow{
		TriggerType:  models.TriggerLeadCreated,
		DelayMinutes: 60,
		Actions: []models.Action{
			{Type: models.ActionUpdateStatus, Config: models.UpdateStatusConfig{Status: "inactive"}},
			ping(),
		},
	})

	summary, err := h.engine.TriggerWorkflows(ctx, models.TriggerLeadCreated,
		&models.TriggerContext{Tenant: h.tenant, Contact: contact})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scheduled)
	assert.Zero(t, summary.Executed)

	rs := summary.Runs[0]
	assert.True(t, rs.Scheduled)
	assert.Equal(t, h.clock.Now().Add(time.Hour), *rs.ScheduledFor)

	run, err := h.store.WorkflowRunRepository().GetByID(ctx, rs.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPending, run.Status)
	assert.Equal(t, "c1", run.ContactID)
	assert.Equal(t, models.ContextRefs{TenantID: tenantID, ContactID: "c1"}, run.Snapshot.Context)
	assert.Zero(t, h.ping.calls.Load())

	h.clock.Advance(59 * time.Minute)

	processed, err := h.engine.ProcessPendingWorkflows(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed.Due)

	h.clock.Advance(2 * time.Minute)

	processed, err = h.engine.ProcessPendingWorkflows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed.Due)
	assert.Equal(t, 1, processed.Completed)
	assert.Equal(t, wf.Name, processed.Runs[0].WorkflowName)

	run, err = h.store.WorkflowRunRepository().GetByID(ctx, rs.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	require.Len(t, run.Results, 2)
	assert.True(t, run.Results[0].Success)

	stored, err := h.store.EntityRepository().Contact(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "inactive", stored.Status)

	processed, err = h.engine.ProcessPendingWorkflows(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed.Due)
	assert.Equal(t, int32(1), h.ping.calls.Load())
}

func TestEngine_ProcessPending_MissingEntitiesAreNil(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	wf := h.workflow(t, &models.Workflow{
		TriggerType: models.TriggerBookingConfirmed,
		Actions:     []models.Action{{Type: models.ActionUpdateBookingStatus, Config: models.UpdateBookingStatusConfig{Status: "confirmed"}}},
	})

	run := &models.WorkflowRun{
		WorkflowID: wf.ID,
		TenantID:   tenantID,
		Trigger:    models.TriggerBookingConfirmed,
		Status:     models.RunStatusPending,
		Snapshot: &models.RunSnapshot{
			ScheduledFor: h.clock.Now().Add(-time.Minute),
			Context:      models.ContextRefs{TenantID: tenantID, BookingID: "deleted-booking"},
		},
	}
	require.NoError(t, h.store.WorkflowRunRepository().Create(t.Context(), run))

	processed, err := h.engine.ProcessPendingWorkflows(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, processed.Completed)

	stored, err := h.store.WorkflowRunRepository().GetByID(t.Context(), run.ID)
	require.NoError(t, err)
	require.Len(t, stored.Results, 1)
	assert.Equal(t, "Missing status or booking", stored.Results[0].Error)
}

func TestEngine_ProcessPending_ConcurrentSweepsRunOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	wf := h.workflow(t, &models.Workflow{TriggerType: models.TriggerBookingCreated, DelayMinutes: 5, Actions: []models.Action{ping()}})

	for range 5 {
		_, err := h.engine.TriggerWorkflows(t.Context(), models.TriggerBookingCreated, &models.TriggerContext{Tenant: h.tenant})
		require.NoError(t, err)
	}

	h.clock.Advance(10 * time.Minute)

	var (
		wg        sync.WaitGroup
		completed atomic.Int32
	)

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			summary, err := h.engine.ProcessPendingWorkflows(t.Context())
			if assert.NoError(t, err) {
				completed.Add(int32(summary.Completed))
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(5), completed.Load())
	assert.Equal(t, int32(5), h.ping.calls.Load())

	runs, err := h.store.WorkflowRunRepository().ListByWorkflow(t.Context(), wf.ID)
	require.NoError(t, err)

	for _, run := range runs {
		assert.Equal(t, models.RunStatusCompleted, run.Status)
	}
}

func TestEngine_BookingCompletedCreatesInvoice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scoped bool
	}{
		{name: "any booking tag", scoped: false},
		{name: "completed tag only", scoped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			ctx := t.Context()

			completed := h.tag(t, "Completed", models.TagTypeBooking)
			h.tag(t, "Pending", models.TagTypeBooking)

			contact := &models.Contact{ID: "c1", TenantID: tenantID, Name: "Ana Lima", Email: "ana@example.com"}
			require.NoError(t, h.store.EntityRepository().SaveContact(ctx, contact))

			booking := &models.Booking{
				ID: "b1", TenantID: tenantID, ContactID: "c1", ServiceName: "Full Detail",
				TotalPrice: 5000, Status: "completed", ScheduledAt: h.clock.Now().Add(-2 * time.Hour),
			}
			require.NoError(t, h.store.EntityRepository().SaveBooking(ctx, booking))

			dueInDays := 15
			wf := &models.Workflow{
				Name:        "Invoice completed bookings",
				TriggerType: models.TriggerBookingTagAdded,
				Actions: []models.Action{{
					Type:   models.ActionCreateInvoice,
					Config: models.CreateInvoiceConfig{DueInDays: &dueInDays},
				}},
			}

			if tt.scoped {
				wf.TriggerTagID = &completed.ID
			}

			h.workflow(t, wf)

			manager := tagstatus.NewManager(h.store, workflow.SyncEmitter{Engine: h.engine}, testLogger())

			outcome, err := manager.ApplyStatusTag(ctx, models.EntityBooking, "b1", tenantID, "completed",
				tagstatus.Options{Tenant: h.tenant, Booking: booking})
			require.NoError(t, err)
			require.True(t, outcome.New)

			invoice, err := h.store.EntityRepository().InvoiceByBooking(ctx, "b1")
			require.NoError(t, err)

			assert.Equal(t, models.InvoiceStatusDraft, invoice.Status)
			assert.Equal(t, int64(5000), invoice.Total)
			assert.Equal(t, int64(5000), invoice.BalanceDue)
			assert.Equal(t, "c1", invoice.ContactID)
			require.Len(t, invoice.LineItems, 1)
			assert.Equal(t, "Full Detail", invoice.LineItems[0].Description)
			assert.True(t, invoice.IssueDate.AddDate(0, 0, 15).Equal(invoice.DueDate),
				"due %s, issued %s", invoice.DueDate, invoice.IssueDate)

			outcome, err = manager.ApplyStatusTag(ctx, models.EntityBooking, "b1", tenantID, "completed", tagstatus.Options{})
			require.NoError(t, err)
			assert.False(t, outcome.New)

			runs, err := h.store.WorkflowRunRepository().ListByWorkflow(ctx, wf.ID)
			require.NoError(t, err)
			assert.Len(t, runs, 1)
		})
	}
}

// Two workflows raised concurrently for the same booking: one rewrites the booking
// status while the other renders it. Run with -race.
func TestEngine_ConcurrentRunsDoNotShareEntities(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := t.Context()

	booking := &models.Booking{ID: "b1", TenantID: tenantID, ServiceName: "Full Detail", Status: "completed"}
	require.NoError(t, h.store.EntityRepository().SaveBooking(ctx, booking))

	h.workflow(t, &models.Workflow{
		TriggerType: models.TriggerBookingTagAdded,
		Actions: []models.Action{{
			Type:   models.ActionUpdateBookingStatus,
			Config: models.UpdateBookingStatusConfig{Status: "scheduled"},
		}},
	})
	h.workflow(t, &models.Workflow{
		TriggerType: models.TriggerBookingCompleted,
		Actions: []models.Action{{
			Type:   models.ActionSendNotification,
			Config: models.SendNotificationConfig{Message: "Booking is {{booking.status}}"},
		}},
	})

	emitter := workflow.NewAsyncEmitter(h.engine, testLogger())
	tc := &models.TriggerContext{Tenant: h.tenant, Booking: booking}

	for range 5 {
		require.NoError(t, emitter.EmitTrigger(ctx, models.TriggerBookingTagAdded, tc))
		require.NoError(t, emitter.EmitTrigger(ctx, models.TriggerBookingCompleted, tc))
	}

	emitter.Wait()

	assert.Equal(t, "completed", booking.Status)

	stored, err := h.store.EntityRepository().Booking(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "scheduled", stored.Status)
}

func TestAsyncEmitter(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.workflow(t, &models.Workflow{TriggerType: models.TriggerClientConverted, Actions: []models.Action{ping()}})

	emitter := workflow.NewAsyncEmitter(h.engine, testLogger())

	for range 3 {
		require.NoError(t, emitter.EmitTrigger(t.Context(), models.TriggerClientConverted, &models.TriggerContext{Tenant: h.tenant}))
	}

	emitter.Wait()
	assert.Equal(t, int32(3), h.ping.calls.Load())

	require.ErrorIs(t, emitter.EmitTrigger(t.Context(), models.TriggerClientConverted, &models.TriggerContext{}),
		workflow.ErrTenantRequired)
}
