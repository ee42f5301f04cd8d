package workflow

import (
	"context"
	"fmt"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
)

// Loader rebuilds a TriggerContext from persisted identifiers.
type Loader struct {
	entities persistence.EntityRepository
	tags     persistence.TagRepository
}

func NewLoader(p persistence.Persistence) *Loader {
	return &Loader{entities: p.EntityRepository(), tags: p.TagRepository()}
}

// Load fetches every referenced object. Missing objects leave their slot nil;
// any other store error is returned.
func (l *Loader) Load(ctx context.Context, refs models.ContextRefs) (*models.TriggerContext, error) {
	var (
		tc  models.TriggerContext
		err error
	)

	if tc.Tenant, err = fetch(ctx, refs.TenantID, l.entities.Tenant); err != nil {
		return nil, err
	}

	if tc.Contact, err = fetch(ctx, refs.ContactID, l.entities.Contact); err != nil {
		return nil, err
	}

	if tc.Booking, err = fetch(ctx, refs.BookingID, l.entities.Booking); err != nil {
		return nil, err
	}

	if tc.Invoice, err = fetch(ctx, refs.InvoiceID, l.entities.Invoice); err != nil {
		return nil, err
	}

	if tc.Payment, err = fetch(ctx, refs.PaymentID, l.entities.Payment); err != nil {
		return nil, err
	}

	if tc.Tag, err = fetch(ctx, refs.TagID, l.tags.TagByID); err != nil {
		return nil, err
	}

	return &tc, nil
}

func fetch[T any](ctx context.Context, id string, get func(context.Context, string) (*T, error)) (*T, error) {
	if id == "" {
		return nil, nil
	}

	v, err := get(ctx, id)
	if persistence.IsNotFound(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", id, err)
	}

	return v, nil
}
