package invoice_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/actions/invoice"
	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func TestCreateAction_Execute(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		config          models.CreateInvoiceConfig
		booking         *models.Booking
		expectedDue     time.Time
		expectedTotal   int64
		expectedItem    string
		expectedContact string
	}{
		{
			name:          "defaults",
			booking:       &models.Booking{TenantID: "tenant-1", ServiceName: "Full Detail", TotalPrice: 5000},
			expectedDue:   issued.AddDate(0, 0, 30),
			expectedTotal: 5000,
			expectedItem:  "Full Detail",
		},
		{
			name:            "due in 15 days, package name",
			config:          models.CreateInvoiceConfig{DueInDays: intPtr(15)},
			booking:         &models.Booking{TenantID: "tenant-1", PackageName: "Gold", TotalPrice: 12000, ContactEmail: "ana@example.com"},
			expectedDue:     issued.AddDate(0, 0, 15),
			expectedTotal:   12000,
			expectedItem:    "Gold",
			expectedContact: "ana@example.com",
		},
		{
			name:          "without booking total",
			config:        models.CreateInvoiceConfig{IncludeBookingTotal: boolPtr(false)},
			booking:       &models.Booking{TenantID: "tenant-1", ServiceName: "Wash", TotalPrice: 3000},
			expectedDue:   issued.AddDate(0, 0, 30),
			expectedTotal: 0,
			expectedItem:  "Wash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, err := file.NewPersistence(t.TempDir())
			require.NoError(t, err)
			require.NoError(t, store.EntityRepository().SaveBooking(t.Context(), tt.booking))

			action := invoice.NewCreateAction(store.EntityRepository(), testLogger()).
				WithClock(func() time.Time { return issued })

			tc := &models.TriggerContext{Tenant: &models.Tenant{ID: "tenant-1"}, Booking: tt.booking}

			result, err := action.Execute(t.Context(), models.Action{Type: models.ActionCreateInvoice, Config: tt.config}, tc)
			require.NoError(t, err)
			require.True(t, result.Success)
			assert.Equal(t, "Invoice created", result.Message)

			created, err := store.EntityRepository().InvoiceByBooking(t.Context(), tt.booking.ID)
			require.NoError(t, err)
			assert.Equal(t, result.Data["invoiceId"], created.ID)
			assert.Equal(t, models.InvoiceStatusDraft, created.Status)
			assert.Equal(t, tt.expectedDue, created.DueDate)
			assert.Equal(t, tt.expectedTotal, created.Subtotal)
			assert.Equal(t, tt.expectedTotal, created.Total)
			assert.Equal(t, tt.expectedTotal, created.BalanceDue)
			assert.Equal(t, tt.expectedContact, created.ContactEmail)
			require.Len(t, created.LineItems, 1)
			assert.Equal(t, models.LineItem{Description: tt.expectedItem, Quantity: 1, UnitPrice: tt.expectedTotal, Amount: tt.expectedTotal}, created.LineItems[0])
			assert.NotNil(t, tc.Invoice)
		})
	}
}

func TestCreateAction_IdempotentPerBooking(t *testing.T) {
	t.Parallel()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	booking := &models.Booking{TenantID: "tenant-1", ServiceName: "Full Detail", TotalPrice: 5000}
	require.NoError(t, store.EntityRepository().SaveBooking(t.Context(), booking))

	action := invoice.NewCreateAction(store.EntityRepository(), testLogger())
	tc := &models.TriggerContext{Tenant: &models.Tenant{ID: "tenant-1"}, Booking: booking}
	cfg := models.Action{Type: models.ActionCreateInvoice, Config: models.CreateInvoiceConfig{}}

	first, err := action.Execute(t.Context(), cfg, tc)
	require.NoError(t, err)

	second, err := action.Execute(t.Context(), cfg, tc)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, "Invoice already exists for booking", second.Message)
	assert.Equal(t, first.Data["invoiceId"], second.Data["invoiceId"])
}

func TestCreateAction_MissingPreconditions(t *testing.T) {
	t.Parallel()

	action := invoice.NewCreateAction(nil, testLogger())

	for _, tc := range []*models.TriggerContext{
		nil,
		{Tenant: &models.Tenant{ID: "tenant-1"}},
		{Booking: &models.Booking{ID: "b1"}},
	} {
		result, err := action.Execute(t.Context(), models.Action{Type: models.ActionCreateInvoice}, tc)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "Missing booking or tenant", result.Error)
	}
}
