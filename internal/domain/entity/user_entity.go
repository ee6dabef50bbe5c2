package entity

import (
	"time"
)

// User is the aggregate root for the identity domain.
// PasswordHash holds a bcrypt hash; TOTPSecret is set while enrollment is in
// progress or completed, TOTPEnabled only after a confirmed code.
type User struct {
	ID            int64
	Email         string
	PasswordHash  string
	Name          string
	Recovery      string
	TOTPSecret    *string
	TOTPEnabled   bool
	TermsAccepted bool
	Role          string
	Timezone      string
	LastSeen      *time.Time
	CreatedAt     time.Time
}

// Secret returns the stored TOTP secret or an empty string.
func (u *User) Secret() string {
	if u == nil || u.TOTPSecret == nil {
		return ""
	}
	return *u.TOTPSecret
}

// EnrollmentInProgress reports a generated but unconfirmed TOTP secret.
func (u *User) EnrollmentInProgress() bool {
	return u != nil && !u.TOTPEnabled && u.TOTPSecret != nil
}
