package template

import (
	"strconv"
	"strings"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
)

const (
	bookingDateLayout = "Monday, January 2, 2006"
	bookingTimeLayout = "3:04 PM"
	longDateLayout    = "January 2, 2006"
)

// Namespaces lists every namespace BuildVariables fills.
var Namespaces = []string{"contact", "booking", "business", "invoice", "payment", "tag"}

// Options carries the inputs of BuildVariables that do not come from the context.
type Options struct {
	// AppURL is the public base URL used for links, without a trailing slash.
	AppURL string
}

// BuildVariables projects a trigger context onto template variables. It never
// fails: absent objects and fields produce empty strings.
func BuildVariables(tc *models.TriggerContext, opts Options) Variables {
	vars := make(Variables, len(Namespaces))
	for _, ns := range Namespaces {
		vars[ns] = map[string]string{}
	}

	if tc == nil {
		return vars
	}

	appURL := strings.TrimRight(opts.AppURL, "/")
	loc := tc.Tenant.Location()

	if c := tc.Contact; c != nil {
		first, last := splitName(c.Name)
		vars["contact"] = map[string]string{
			"name":      c.Name,
			"firstName": first,
			"lastName":  last,
			"email":     c.Email,
			"phone":     c.Phone,
		}
	}

	if b := tc.Booking; b != nil {
		service := b.ItemName()
		if service == "" {
			service = "Service"
		}

		booking := map[string]string{
			"service":            service,
			"date":               "",
			"time":               "",
			"duration":           "",
			"price":              "",
			"confirmationNumber": shortID(b.ID),
			"status":             b.Status,
			"notes":              b.Notes,
			"rescheduleUrl":      appURL + "/reschedule/" + b.ID,
			"cancelUrl":          appURL + "/cancel/" + b.ID,
		}

		if !b.ScheduledAt.IsZero() {
			at := b.ScheduledAt.In(loc)
			booking["date"] = at.Format(bookingDateLayout)
			booking["time"] = at.Format(bookingTimeLayout)
		}

		if b.DurationMinutes > 0 {
			booking["duration"] = strconv.Itoa(b.DurationMinutes) + " minutes"
		}

		if b.TotalPrice != 0 {
			booking["price"] = FormatCents(b.TotalPrice)
		}

		vars["booking"] = booking
	}

	if t := tc.Tenant; t != nil {
		name := t.BusinessName
		if name == "" {
			name = t.Name
		}

		vars["business"] = map[string]string{
			"name":    name,
			"email":   t.Email,
			"phone":   t.BusinessPhone,
			"address": joinNonEmpty(", ", t.BusinessAddress, t.BusinessCity, t.BusinessState, t.BusinessZip),
			"website": t.BusinessWebsite,
		}
	}

	if i := tc.Invoice; i != nil {
		number := i.InvoiceNumber
		if number == "" {
			number = shortID(i.ID)
		}

		vars["invoice"] = map[string]string{
			"number":     number,
			"amount":     formatNonZero(i.Total),
			"balanceDue": FormatCents(i.BalanceDue),
			"dueDate":    formatDate(i.DueDate, loc),
			"paidDate":   formatDatePtr(i.PaidAt, loc),
			"status":     i.Status,
			"pdfUrl":     appURL + "/invoices/" + i.ID + "/pdf",
			"paymentUrl": appURL + "/pay/" + i.ID,
		}
	}

	if p := tc.Payment; p != nil {
		method := p.Method
		if method == "" {
			method = "Card"
		}

		vars["payment"] = map[string]string{
			"amount":             formatNonZero(p.Amount),
			"date":               formatDate(p.CreatedAt, loc),
			"method":             method,
			"status":             p.Status,
			"confirmationNumber": shortID(p.ID),
			"receiptUrl":         p.ReceiptURL,
		}
	}

	if tag := tc.Tag; tag != nil {
		vars["tag"] = map[string]string{
			"name":  tag.Name,
			"type":  string(tag.Type),
			"color": tag.Color,
		}
	}

	return vars
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}

	return parts[0], strings.Join(parts[1:], " ")
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}

	return strings.Join(kept, sep)
}

func formatNonZero(cents int64) string {
	if cents == 0 {
		return ""
	}

	return FormatCents(cents)
}

func formatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}

	return t.In(loc).Format(longDateLayout)
}

func formatDatePtr(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}

	return formatDate(*t, loc)
}
