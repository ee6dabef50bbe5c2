package middleware

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/repository"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/helpers"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/response"
)

// SessionConfig wires the session middleware.
type SessionConfig struct {
	Store   repository.SessionRepository
	Signer  *helpers.SessionSigner
	Cookies *helpers.Manager
	Logger  *logrus.Logger
}

// Sessions loads the caller's session from the signed cookie, or starts an
// anonymous one, and persists it before the first byte of the response.
// Untouched anonymous sessions are never stored.
func Sessions(cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var sess *entity.Session

		if raw := cfg.Cookies.Read(c); raw != "" {
			sid, err := cfg.Signer.Parse(raw)
			if err == nil {
				sess, err = cfg.Store.Get(ctx, sid)
				if err != nil && !errors.Is(err, repository.ErrNotFound) {
					helpers.LogEntry(ctx, cfg.Logger).WithError(err).Error("load session failed")
					response.Error[any](c, http.StatusInternalServerError, genericError, nil).Abort(c)
					return
				}
			}
		}
		if sess == nil {
			sess = entity.NewSession(uuid.NewString(), time.Now().UTC())
		}
		state(c).session = sess

		w := &sessionWriter{ResponseWriter: c.Writer}
		w.commit = func() { commitSession(c, cfg, sess) }
		c.Writer = w

		c.Next()
		w.flush()
	}
}

func commitSession(c *gin.Context, cfg SessionConfig, sess *entity.Session) {
	ctx := c.Request.Context()
	log := helpers.LogEntry(ctx, cfg.Logger)

	if old := sess.ReplacedID(); old != "" {
		if err := cfg.Store.Delete(ctx, old); err != nil {
			log.WithError(err).Warn("drop rotated session failed")
		}
	}
	if sess.Destroyed() {
		if err := cfg.Store.Delete(ctx, sess.ID); err != nil {
			log.WithError(err).Error("destroy session failed")
		}
		cfg.Cookies.Clear(c)
		return
	}
	if !sess.Dirty() && !sess.Authenticated() {
		return
	}
	if err := cfg.Store.Save(ctx, sess); err != nil {
		log.WithError(err).Error("save session failed")
		return
	}
	token, err := cfg.Signer.Sign(sess.ID)
	if err != nil {
		log.WithError(err).Error("sign session failed")
		return
	}
	cfg.Cookies.Set(c, token)
	sess.Persisted()
}

// sessionWriter runs commit once, right before headers leave the process.
type sessionWriter struct {
	gin.ResponseWriter
	once   sync.Once
	commit func()
}

func (w *sessionWriter) flush() { w.once.Do(w.commit) }

func (w *sessionWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) WriteHeaderNow() {
	w.flush()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) WriteString(s string) (int, error) {
	w.flush()
	return w.ResponseWriter.WriteString(s)
}
