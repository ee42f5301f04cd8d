package tagstatus

import (
	"testing"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestTagName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind     models.EntityKind
		status   string
		expected string
		ok       bool
	}{
		{models.EntityInvoice, "deposit_paid", "Deposit Paid", true},
		{models.EntityInvoice, "paid", "Paid", true},
		{models.EntityInvoice, "refunded", "", false},
		{models.EntityBooking, "inquiry", "Pending", true},
		{models.EntityBooking, "no_show", "No Show", true},
		{models.EntityBooking, "Completed", "", false},
		{models.EntityPayment, "disputed", "Disputed", true},
		{models.EntityContact, "lead", "Lead", true},
		{models.EntityKind("vehicle"), "lead", "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.status, func(t *testing.T) {
			t.Parallel()

			name, ok := TagName(tt.kind, tt.status)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, name)
		})
	}
}

func TestCategoryNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"Cancelled", "Completed", "Confirmed", "Inquiry", "No Show", "Pending", "Scheduled"},
		CategoryNames(models.EntityBooking))
	assert.Equal(t,
		[]string{"Cancelled", "Deposit Paid", "Draft", "Overdue", "Paid", "Sent", "Viewed"},
		CategoryNames(models.EntityInvoice))
	assert.Equal(t, []string{"Disputed", "Failed", "Refunded", "Succeeded"}, CategoryNames(models.EntityPayment))
	assert.Equal(t, []string{"Client", "Inactive", "Lead"}, CategoryNames(models.EntityContact))
}
