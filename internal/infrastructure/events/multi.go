package events

import (
	"context"
	"errors"

	"github.com/oksasatya/go-ddd-auth-portal/internal/application"
	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
)

// Multi fans an event out to every publisher. A failing publisher does not
// stop the others; all failures are joined.
type Multi []application.EventPublisher

func (m Multi) Publish(ctx context.Context, ev entity.AuthEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ application.EventPublisher = Multi(nil)
	_ application.EventPublisher = (*MailPublisher)(nil)
	_ application.EventPublisher = (*AuditIndexer)(nil)
)
