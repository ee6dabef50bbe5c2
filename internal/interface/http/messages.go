package handlers

import (
	"errors"
	"strings"

	"github.com/oksasatya/go-ddd-auth-portal/internal/application"
)

const (
	msgGeneric      = "An error occurred. Please try again."
	msgInvalidToken = "You have entered an invalid token."
	msgAllTerms     = "Please agree to all terms."
)

// userMessage is the only place errors become text shown to users.
// Anything outside the recoverable taxonomy collapses to msgGeneric.
func userMessage(err error) string {
	var ve *application.ValidationError
	switch {
	case errors.As(err, &ve):
		if strings.HasPrefix(ve.Field, "term") {
			return msgAllTerms
		}
		return ve.Message()
	case errors.Is(err, application.ErrInvalidCredentials):
		return "Wrong login details."
	case errors.Is(err, application.ErrDuplicateEmail):
		return "This email address is already registered."
	case errors.Is(err, application.ErrAlreadyEnrolled):
		return "You already have a 2FA coupled to this account."
	case errors.Is(err, application.ErrEnrollmentNotStarted):
		return "Please start the 2FA setup first."
	case errors.Is(err, application.ErrInvalidOneTimeCode), errors.Is(err, application.ErrStepUpRequired):
		return msgInvalidToken
	case errors.Is(err, application.ErrPasswordMismatch):
		return "The new password does not match."
	case errors.Is(err, application.ErrRegistrationClosed):
		return "Registration is currently closed."
	default:
		return msgGeneric
	}
}
