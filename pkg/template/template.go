// Package template binds trigger contexts to message variables and renders
// {{namespace.field}} placeholders with mustache.
package template

import (
	"fmt"
	"html"
	"strings"

	"github.com/cbroglie/mustache"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Variables maps namespace to field to display value.
type Variables map[string]map[string]string

// Get returns the value of ns.field, or "".
func (v Variables) Get(namespace, field string) string {
	return v[namespace][field]
}

// Interpolate renders text for plain-text use such as a subject line. Values are
// inserted verbatim. Unknown namespaces or fields render as the empty string; text
// that does not parse as a template is returned unchanged.
func Interpolate(text string, vars Variables) string {
	rendered, ok := render(text, vars)
	if !ok || rendered == text {
		return text
	}

	return html.UnescapeString(rendered)
}

// InterpolateHTML renders text for an HTML body. Values are HTML-escaped, the
// template text itself is not.
func InterpolateHTML(text string, vars Variables) string {
	rendered, ok := render(text, vars)
	if !ok {
		return text
	}

	return rendered
}

func render(text string, vars Variables) (string, bool) {
	if !strings.Contains(text, "{{") {
		return text, true
	}

	tmpl, err := mustache.ParseString(text)
	if err != nil {
		return "", false
	}

	rendered, err := tmpl.Render(vars)
	if err != nil {
		return "", false
	}

	return rendered, true
}

var centsScale, _ = currency.Standard.Rounding(currency.USD)

// FormatCents renders an amount in cents as US dollars, e.g. 123450 → "$1,234.50".
func FormatCents(cents int64) string {
	sign := ""
	magnitude := uint64(cents)

	if cents < 0 {
		sign = "-"
		magnitude = -magnitude
	}

	unit := uint64(1)
	for range centsScale {
		unit *= 10
	}

	dollars := message.NewPrinter(language.AmericanEnglish).Sprint(number.Decimal(magnitude / unit))

	return fmt.Sprintf("%s$%s.%0*d", sign, dollars, centsScale, magnitude%unit)
}

// shortID is the customer facing reference of an id: its last 8 characters, upper-cased.
func shortID(id string) string {
	if len(id) > 8 {
		id = id[len(id)-8:]
	}

	return strings.ToUpper(id)
}
