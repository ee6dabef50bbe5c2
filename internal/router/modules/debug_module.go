package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-auth-portal/internal/interface/middleware"
)

type DebugModule struct {
	Limits Limiter
}

func NewDebugModule(limits Limiter) *DebugModule { return &DebugModule{Limits: limits} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// expvar counters, rate-limited per IP; private callers are not limited
	rl := m.Limits.PerMinute(120, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
