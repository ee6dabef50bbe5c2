package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ddd-auth-portal/internal/interface/http"
	"github.com/oksasatya/go-ddd-auth-portal/internal/interface/middleware"
)

type DashboardModule struct {
	Handler *handlers.DashboardHandler
}

func NewDashboardModule(h *handlers.DashboardHandler) *DashboardModule {
	return &DashboardModule{Handler: h}
}

func (m *DashboardModule) Register(rg *gin.RouterGroup) {
	rg.GET("/dashboard", middleware.Gate(), m.Handler.Show)
}
