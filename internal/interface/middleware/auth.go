package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/gate"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/helpers"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/response"
)

const genericError = "An error occurred. Please try again."

// UserLoader resolves the account a session points at.
type UserLoader interface {
	CurrentUser(ctx context.Context, sess *entity.Session) (*entity.User, error)
}

// LoadUser attaches the session's user, fetched fresh on every request.
func LoadUser(users UserLoader, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := state(c)
		if st.session == nil || !st.session.Authenticated() {
			c.Next()
			return
		}
		u, err := users.CurrentUser(c.Request.Context(), st.session)
		if err != nil {
			helpers.LogEntry(c.Request.Context(), logger).WithError(err).Error("load current user failed")
			response.Error[any](c, http.StatusInternalServerError, genericError, nil).Abort(c)
			return
		}
		st.user = u
		c.Next()
	}
}

func evaluate(c *gin.Context) gate.Decision {
	st := state(c)
	return gate.Evaluate(gate.State{Session: st.session, User: st.user})
}

// RequireAuth only demands a signed-in user; terms and 2FA are not checked.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if d := evaluate(c); d.Stage == gate.Anonymous {
			Redirect(c, d.Redirect)
			return
		}
		c.Next()
	}
}

// Gate lets the request through only in the Allowed stage.
func Gate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if d := evaluate(c); !d.Allowed() {
			Redirect(c, d.Redirect)
			return
		}
		c.Next()
	}
}

// RequireStage lets the request through only in stage; anything else goes
// to fallback.
func RequireStage(stage gate.Stage, fallback string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d := evaluate(c); d.Stage != stage {
			if d.Stage == gate.Anonymous {
				Redirect(c, d.Redirect)
				return
			}
			Redirect(c, fallback)
			return
		}
		c.Next()
	}
}

// Stage reports the caller's current gate stage.
func Stage(c *gin.Context) gate.Stage {
	return evaluate(c).Stage
}
