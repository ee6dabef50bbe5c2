// Package events delivers auth events to the audit index and the mail queue.
package events

import (
	"context"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/mailer"
	tpl "github.com/oksasatya/go-ddd-auth-portal/pkg/mailer/templates"
)

// JSONPublisher is satisfied by helpers.RabbitPublisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// MailPublisher queues a notification email for the events a user should
// hear about. Other events are ignored.
type MailPublisher struct {
	Pub   JSONPublisher
	Brand tpl.Brand
}

func NewMailPublisher(pub JSONPublisher, brand tpl.Brand) *MailPublisher {
	return &MailPublisher{Pub: pub, Brand: brand}
}

var securityActions = map[string]string{
	entity.EventTwoFactorEnabled:  "two-factor authentication enabled",
	entity.EventTwoFactorDisabled: "two-factor authentication disabled",
	entity.EventPasswordChanged:   "password changed",
}

// Job builds the email for ev, or reports false when ev sends none.
func (m *MailPublisher) Job(ev entity.AuthEvent) (mailer.EmailJob, bool) {
	if ev.Email == "" || ev.UserID == 0 {
		return mailer.EmailJob{}, false
	}
	opts := []tpl.Option{tpl.WithIP(ev.IP), tpl.WithTime(ev.At), tpl.WithTimezone(ev.Timezone)}

	var data map[string]any
	switch ev.Type {
	case entity.EventRegistered:
		data = tpl.NewWelcomeData(m.Brand, ev.Name, ev.Email, opts...)
	case entity.EventLoginSucceeded:
		data = tpl.NewLoginNotificationData(m.Brand, ev.Name, ev.Email, opts...)
	default:
		action, ok := securityActions[ev.Type]
		if !ok {
			return mailer.EmailJob{}, false
		}
		data = tpl.NewSecurityNoticeData(m.Brand, ev.Name, ev.Email, action, opts...)
	}
	return mailer.EmailJob{To: ev.Email, Template: data["Type"].(string), Data: data}, true
}

func (m *MailPublisher) Publish(ctx context.Context, ev entity.AuthEvent) error {
	job, ok := m.Job(ev)
	if !ok {
		return nil
	}
	return m.Pub.PublishJSON(ctx, job)
}
