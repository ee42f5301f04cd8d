package email

import (
	"context"
	"log/slog"

	"github.com/dmayes77/clientflow-sub001/pkg/mailer"
	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/template"
)

const (
	defaultNotificationSubject = "Notification from ClientFlow"
	defaultNotificationMessage = "You have a new notification"
)

// SendNotificationAction emails the tenant owner a short message.
type SendNotificationAction struct {
	mailer mailer.Mailer
	appURL string
	logger *slog.Logger
}

func NewSendNotificationAction(m mailer.Mailer, appURL string, logger *slog.Logger) *SendNotificationAction {
	return &SendNotificationAction{
		mailer: m,
		appURL: appURL,
		logger: logger.With("module", "send_notification_action"),
	}
}

func (a *SendNotificationAction) Type() models.ActionType {
	return models.ActionSendNotification
}

func (a *SendNotificationAction) Execute(ctx context.Context, action models.Action, tc *models.TriggerContext) (models.ActionResult, error) {
	if tc == nil || tc.Tenant == nil || tc.Tenant.Email == "" {
		return models.Failed(a.Type(), "Missing tenant email"), nil
	}

	config := models.ConfigAs[models.SendNotificationConfig](action)

	subject := config.Subject
	if subject == "" {
		subject = defaultNotificationSubject
	}

	message := config.Message
	if message == "" {
		message = defaultNotificationMessage
	}

	vars := template.BuildVariables(tc, template.Options{AppURL: a.appURL})

	err := a.mailer.Send(ctx, mailer.Message{
		To:      tc.Tenant.Email,
		Subject: template.Interpolate(subject, vars),
		HTML:    "<p>" + template.InterpolateHTML(message, vars) + "</p>",
	})
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to send notification", "tenant_id", tc.Tenant.ID, "error", err)

		return models.Failed(a.Type(), err.Error()), nil
	}

	return models.Succeeded(a.Type(), "Notification sent to "+tc.Tenant.Email), nil
}

func (a *SendNotificationAction) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subject": map[string]any{
				"type":    "string",
				"default": defaultNotificationSubject,
			},
			"message": map[string]any{
				"type":    "string",
				"default": defaultNotificationMessage,
				"examples": []string{
					"New booking from {{contact.name}} on {{booking.date}}",
				},
			},
		},
	}
}
