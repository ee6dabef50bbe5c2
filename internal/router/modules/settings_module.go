package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	handlers "github.com/oksasatya/go-ddd-auth-portal/internal/interface/http"
	"github.com/oksasatya/go-ddd-auth-portal/internal/interface/middleware"
)

// SettingsModule wires 2FA enrollment and revocation and password change.
// Revocation and password change demand a fresh one-time code.
type SettingsModule struct {
	Handler *handlers.SettingsHandler
	StepUp  middleware.StepUpVerifier
	Logger  *logrus.Logger
	Limits  Limiter
}

func NewSettingsModule(h *handlers.SettingsHandler, stepUp middleware.StepUpVerifier, logger *logrus.Logger, limits Limiter) *SettingsModule {
	return &SettingsModule{Handler: h, StepUp: stepUp, Logger: logger, Limits: limits}
}

func (m *SettingsModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/settings", middleware.Gate())
	stepUp := middleware.StepUp(m.StepUp, m.Logger)
	limit := m.Limits.PerMinute(30, middleware.KeyByUser(), nil)

	g.GET("", m.Handler.Index)

	g.GET("/2fa/new", m.Handler.TwoFactorNew)
	g.POST("/2fa/new", limit, m.Handler.TwoFactorRestart)
	g.POST("/2fa/verify", limit, m.Handler.TwoFactorVerify)

	g.GET("/2fa/delete", m.Handler.TwoFactorDeleteForm)
	g.POST("/2fa/delete", limit, stepUp, m.Handler.TwoFactorDelete)

	g.GET("/password", m.Handler.PasswordForm)
	g.POST("/password", limit, stepUp, m.Handler.ChangePassword)
}
