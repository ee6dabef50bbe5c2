package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-portal/internal/application"
	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/helpers"
)

const invalidTokenMessage = "You have entered an invalid token."

// StepUpVerifier checks a fresh one-time code for a sensitive action.
type StepUpVerifier interface {
	StepUp(ctx context.Context, u *entity.User, code string) error
}

type tokenForm struct {
	Token string `form:"token" json:"token"`
}

// StepUp requires a valid "token" field on this very request when the user
// has 2FA enabled. On failure the browser is sent back to the form with a
// warning and the handler never runs.
func StepUp(v StepUpVerifier, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := Current(c).CurrentUser()
		if u == nil {
			Redirect(c, "/login")
			return
		}
		var in tokenForm
		_ = Bind(c, &in)

		err := v.StepUp(c.Request.Context(), u, in.Token)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, application.ErrStepUpRequired):
			helpers.LogEntry(c.Request.Context(), logger).WithField("user_id", u.ID).Info("step-up verification failed")
			Flash(c, entity.FlashWarning, invalidTokenMessage)
			Redirect(c, c.Request.URL.Path)
		default:
			Flash(c, entity.FlashError, genericError)
			Redirect(c, c.Request.URL.Path)
		}
	}
}
