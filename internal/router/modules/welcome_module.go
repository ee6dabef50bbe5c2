package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ddd-auth-portal/internal/interface/http"
	"github.com/oksasatya/go-ddd-auth-portal/internal/interface/middleware"
)

// WelcomeModule serves the terms page; it needs a signed-in user but not the full gate.
type WelcomeModule struct {
	Handler *handlers.WelcomeHandler
}

func NewWelcomeModule(h *handlers.WelcomeHandler) *WelcomeModule {
	return &WelcomeModule{Handler: h}
}

func (m *WelcomeModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/welcome", middleware.RequireAuth())
	g.GET("", m.Handler.Show)
	g.POST("", m.Handler.Accept)
}
