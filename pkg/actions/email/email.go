// Package email provides the send_email and send_notification actions.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmayes77/clientflow-sub001/pkg/mailer"
	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/dmayes77/clientflow-sub001/pkg/template"
)

// SendEmailAction renders a tenant email template for the customer of the context.
type SendEmailAction struct {
	templates persistence.EmailTemplateRepository
	mailer    mailer.Mailer
	appURL    string
	logger    *slog.Logger
}

func NewSendEmailAction(
	templates persistence.EmailTemplateRepository,
	m mailer.Mailer,
	appURL string,
	logger *slog.Logger,
) *SendEmailAction {
	return &SendEmailAction{
		templates: templates,
		mailer:    m,
		appURL:    appURL,
		logger:    logger.With("module", "send_email_action"),
	}
}

func (a *SendEmailAction) Type() models.ActionType {
	return models.ActionSendEmail
}

// Recipient returns the contact email, else the invoice's, else the booking's.
func Recipient(tc *models.TriggerContext) string {
	if tc == nil {
		return ""
	}

	if tc.Contact != nil && tc.Contact.Email != "" {
		return tc.Contact.Email
	}

	if tc.Invoice != nil && tc.Invoice.ContactEmail != "" {
		return tc.Invoice.ContactEmail
	}

	if tc.Booking != nil && tc.Booking.ContactEmail != "" {
		return tc.Booking.ContactEmail
	}

	return ""
}

func (a *SendEmailAction) Execute(ctx context.Context, action models.Action, tc *models.TriggerContext) (models.ActionResult, error) {
	config := models.ConfigAs[models.SendEmailConfig](action)
	recipient := Recipient(tc)

	if (config.TemplateID == "" && config.SystemTemplateKey == "") || recipient == "" {
		return models.Failed(a.Type(), "Missing template or recipient email"), nil
	}

	tmpl, err := a.loadTemplate(ctx, config, tc)
	if err != nil {
		if persistence.IsTemplateNotFound(err) {
			return models.Failed(a.Type(), "Email template not found"), nil
		}

		return models.ActionResult{}, err
	}

	vars := template.BuildVariables(tc, template.Options{AppURL: a.appURL})

	msg := mailer.Message{
		To:      recipient,
		Subject: template.Interpolate(tmpl.Subject, vars),
		HTML:    template.InterpolateHTML(tmpl.Body, vars),
	}

	if tc.Tenant != nil {
		msg.ReplyTo = tc.Tenant.Email
	}

	err = a.mailer.Send(ctx, msg)
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to send email", "template_id", tmpl.ID, "error", err)

		return models.Failed(a.Type(), err.Error()), nil
	}

	result := models.Succeeded(a.Type(), "Email sent to "+recipient)
	result.Data = map[string]any{"templateId": tmpl.ID, "to": recipient}

	return result, nil
}

func (a *SendEmailAction) loadTemplate(ctx context.Context, config models.SendEmailConfig, tc *models.TriggerContext) (*models.EmailTemplate, error) {
	if config.TemplateID != "" {
		return a.templates.TemplateByID(ctx, config.TemplateID)
	}

	if tc.Tenant == nil {
		return nil, fmt.Errorf("no tenant for system template %s: %w", config.SystemTemplateKey, persistence.ErrTemplateNotFound)
	}

	return a.templates.TemplateBySystemKey(ctx, tc.Tenant.ID, config.SystemTemplateKey)
}

func (a *SendEmailAction) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"templateId": map[string]any{
				"type":        "string",
				"description": "ID of the email template to send. Subject and body support {{namespace.field}} variables.",
			},
			"systemTemplateKey": map[string]any{
				"type":        "string",
				"description": "Key of a tenant system template, used when templateId is empty.",
				"examples":    []string{"booking_confirmed", "payment_received"},
			},
		},
		"anyOf": []any{
			map[string]any{"required": []string{"templateId"}},
			map[string]any{"required": []string{"systemTemplateKey"}},
		},
	}
}
