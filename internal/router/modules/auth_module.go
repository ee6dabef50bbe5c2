package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/gate"
	handlers "github.com/oksasatya/go-ddd-auth-portal/internal/interface/http"
	"github.com/oksasatya/go-ddd-auth-portal/internal/interface/middleware"
)

// AuthModule wires the public pages, login, registration, the 2FA challenge and logout.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Captcha middleware.CaptchaVerifier
	Logger  *logrus.Logger
	Limits  Limiter
}

func NewAuthModule(h *handlers.AuthHandler, captcha middleware.CaptchaVerifier, logger *logrus.Logger, limits Limiter) *AuthModule {
	return &AuthModule{Handler: h, Captcha: captcha, Logger: logger, Limits: limits}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	captcha := middleware.RequireCaptcha(m.Captcha, m.Logger)

	rg.GET("/", m.Handler.Index)
	rg.GET("/401", m.Handler.Unauthorized)
	rg.GET("/403", m.Handler.Forbidden)

	rg.GET("/login", m.Handler.LoginForm)
	rg.POST("/login", m.Limits.PerMinute(10, middleware.KeyByIPAndPath(), nil), captcha, m.Handler.Login)
	rg.GET("/register", m.Handler.RegisterForm)
	rg.POST("/register", m.Limits.PerMinute(5, middleware.KeyByIPAndPath(), nil), captcha, m.Handler.Register)

	// the challenge is only reachable while it is pending
	pending := middleware.RequireStage(gate.TwoFactorPending, "/")
	rg.GET("/verify", pending, m.Handler.VerifyForm)
	rg.POST("/verify", pending, m.Limits.PerMinute(10, middleware.KeyByUser(), nil), m.Handler.Verify)

	rg.GET("/logout", m.Handler.Logout)
}
