package templates

import (
	"time"
)

// Brand carries the sender identity rendered in every mail footer.
type Brand struct {
	AppName        string
	CompanyName    string
	CompanyAddress string
	LogoURL        string
	SupportURL     string
	PrivacyURL     string
}

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option { return func(d *EmailData) { d.IP = ip } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}
func WithTimezone(tz string) Option { return func(d *EmailData) { d.Timezone = tz } }
func WithAction(action string) Option {
	return func(d *EmailData) { d.Action = action }
}

func NewBaseEmailData(b Brand, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		Type:           typ,

		CompanyName:    b.CompanyName,
		CompanyAddress: b.CompanyAddress,
		AppName:        b.AppName,

		LogoURL:    b.LogoURL,
		SupportURL: b.SupportURL,
		PrivacyURL: b.PrivacyURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(b Brand, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(b, Welcome, name, email, opts...))
}

func NewLoginNotificationData(b Brand, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(b, LoginNotification, name, email, opts...))
}

func NewSecurityNoticeData(b Brand, name, email, action string, opts ...Option) map[string]any {
	opts = append([]Option{WithAction(action)}, opts...)
	return ToMap(NewBaseEmailData(b, SecurityNotice, name, email, opts...))
}
