package entity

import "time"

// Auth event types emitted by the application service.
const (
	EventRegistered        = "registered"
	EventLoginSucceeded    = "login_succeeded"
	EventLoginFailed       = "login_failed"
	EventTwoFactorVerified = "two_factor_verified"
	EventTwoFactorFailed   = "two_factor_failed"
	EventTwoFactorEnabled  = "two_factor_enabled"
	EventTwoFactorDisabled = "two_factor_disabled"
	EventPasswordChanged   = "password_changed"
	EventTermsAccepted     = "terms_accepted"
	EventLoggedOut         = "logged_out"
)

// AuthEvent is an audit record of a state transition.
type AuthEvent struct {
	Type     string
	UserID   int64
	Email    string
	Name     string
	Timezone string
	IP       string
	At       time.Time
}
