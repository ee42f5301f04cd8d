package actions

import (
	"log/slog"

	"github.com/dmayes77/clientflow-sub001/pkg/actions/email"
	"github.com/dmayes77/clientflow-sub001/pkg/actions/invoice"
	"github.com/dmayes77/clientflow-sub001/pkg/actions/status"
	"github.com/dmayes77/clientflow-sub001/pkg/actions/tag"
	"github.com/dmayes77/clientflow-sub001/pkg/actions/wait"
	"github.com/dmayes77/clientflow-sub001/pkg/actions/webhook"
	"github.com/dmayes77/clientflow-sub001/pkg/mailer"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/dmayes77/clientflow-sub001/pkg/registry"
)

// Dependencies are the collaborators of the built-in handlers.
type Dependencies struct {
	Persistence    persistence.Persistence
	Mailer         mailer.Mailer
	AppURL         string
	WebhookOptions []webhook.Option
	Logger         *slog.Logger
}

// RegisterDefaults registers a handler for every built-in action type.
func RegisterDefaults(reg *registry.Registry, deps Dependencies) {
	p := deps.Persistence

	reg.Register(email.NewSendEmailAction(p.EmailTemplateRepository(), deps.Mailer, deps.AppURL, deps.Logger))
	reg.Register(email.NewSendNotificationAction(deps.Mailer, deps.AppURL, deps.Logger))

	for _, handler := range tag.NewActions(p.TagRepository(), p.TagAssociationRepository(), deps.Logger) {
		reg.Register(handler)
	}

	reg.Register(status.NewUpdateContactAction(p.EntityRepository()))
	reg.Register(status.NewUpdateBookingAction(p.EntityRepository()))
	reg.Register(invoice.NewCreateAction(p.EntityRepository(), deps.Logger))
	reg.Register(webhook.NewAction(deps.Logger, deps.WebhookOptions...))
	reg.Register(wait.NewAction())
}
