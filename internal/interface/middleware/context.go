package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
)

const stateKey = "auth_state"

// RequestContext is what handlers may know about the caller.
type RequestContext interface {
	CurrentUser() *entity.User
	Session() *entity.Session
}

type requestState struct {
	session *entity.Session
	user    *entity.User
}

func (s *requestState) CurrentUser() *entity.User { return s.user }
func (s *requestState) Session() *entity.Session  { return s.session }

func state(c *gin.Context) *requestState {
	if v, ok := c.Get(stateKey); ok {
		if st, ok := v.(*requestState); ok {
			return st
		}
	}
	st := &requestState{}
	c.Set(stateKey, st)
	return st
}

// Current returns the request context installed by Sessions and LoadUser.
func Current(c *gin.Context) RequestContext {
	return state(c)
}
