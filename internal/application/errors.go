package application

import (
	"errors"
	"strings"
)

// Recoverable transition failures. Each one maps to a redirect with a message.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrAlreadyEnrolled      = errors.New("two-factor authentication already enabled")
	ErrEnrollmentNotStarted = errors.New("two-factor enrollment not started")
	ErrInvalidOneTimeCode   = errors.New("invalid one-time code")
	ErrPasswordMismatch     = errors.New("password confirmation does not match")
	ErrStepUpRequired       = errors.New("fresh one-time code required")
	ErrRegistrationClosed   = errors.New("registration closed")
)

// ValidationError reports the first input field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Field + " " + e.Reason
}

var fieldLabels = map[string]string{
	"email":     "Email",
	"password":  "Password",
	"confirm":   "Password confirmation",
	"name":      "Name",
	"current":   "Current password",
	"new":       "New password",
	"verify":    "Password confirmation",
	"token":     "Token",
	"termOne":   "Every term",
	"termTwo":   "Every term",
	"termThree": "Every term",
	"termFour":  "Every term",
}

// Message is the sentence shown to the user.
func (e *ValidationError) Message() string {
	label, ok := fieldLabels[e.Field]
	if !ok && e.Field != "" {
		label = strings.ToUpper(e.Field[:1]) + e.Field[1:]
	}
	return label + " " + e.Reason + "."
}

// IsRecoverable reports whether err belongs to the user-facing taxonomy.
func IsRecoverable(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	for _, known := range []error{
		ErrInvalidCredentials, ErrDuplicateEmail, ErrAlreadyEnrolled, ErrEnrollmentNotStarted,
		ErrInvalidOneTimeCode, ErrPasswordMismatch, ErrStepUpRequired, ErrRegistrationClosed,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
