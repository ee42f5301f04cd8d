package tagstatus

import (
	"sort"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
)

const (
	TagLead   = "Lead"
	TagClient = "Client"
)

// statusTags maps each entity status to the name of its system status tag.
var statusTags = map[models.EntityKind]map[string]string{
	models.EntityInvoice: {
		"draft":        "Draft",
		"sent":         "Sent",
		"viewed":       "Viewed",
		"deposit_paid": "Deposit Paid",
		"paid":         "Paid",
		"overdue":      "Overdue",
		"cancelled":    "Cancelled",
	},
	models.EntityBooking: {
		"pending":   "Pending",
		"inquiry":   "Pending",
		"scheduled": "Scheduled",
		"confirmed": "Confirmed",
		"completed": "Completed",
		"cancelled": "Cancelled",
		"no_show":   "No Show",
	},
	models.EntityPayment: {
		"succeeded": "Succeeded",
		"failed":    "Failed",
		"refunded":  "Refunded",
		"disputed":  "Disputed",
	},
	models.EntityContact: {
		"lead":     "Lead",
		"client":   "Client",
		"inactive": "Inactive",
	},
}

// legacyTags are former status tag names still removed when a new status is applied.
var legacyTags = map[models.EntityKind][]string{
	models.EntityBooking: {"Inquiry"},
}

// TagName returns the status tag name for an entity status.
func TagName(kind models.EntityKind, status string) (string, bool) {
	name, ok := statusTags[kind][status]

	return name, ok
}

// CategoryNames returns every tag name of the status category of kind, legacy names
// included, in lexical order.
func CategoryNames(kind models.EntityKind) []string {
	seen := make(map[string]struct{})

	for _, name := range statusTags[kind] {
		seen[name] = struct{}{}
	}

	for _, name := range legacyTags[kind] {
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Statuses returns the statuses known for kind, in lexical order.
func Statuses(kind models.EntityKind) []string {
	statuses := make([]string, 0, len(statusTags[kind]))
	for status := range statusTags[kind] {
		statuses = append(statuses, status)
	}

	sort.Strings(statuses)

	return statuses
}
