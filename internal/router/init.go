package router

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-portal/config"
	"github.com/oksasatya/go-ddd-auth-portal/internal/application"
	"github.com/oksasatya/go-ddd-auth-portal/internal/container"
	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/repository"
	pginfra "github.com/oksasatya/go-ddd-auth-portal/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-auth-portal/internal/infrastructure/redisstore"
	"github.com/oksasatya/go-ddd-auth-portal/internal/infrastructure/totp"
	handlers "github.com/oksasatya/go-ddd-auth-portal/internal/interface/http"
	"github.com/oksasatya/go-ddd-auth-portal/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-auth-portal/internal/router/modules"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/helpers"
)

// Deps is everything the HTTP modules are built from.
type Deps struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Users    repository.UserRepository
	Sessions repository.SessionRepository
	Signer   *helpers.SessionSigner
	Cookies  *helpers.Manager
	OTP      application.OTPProvider
	Hasher   application.PasswordHasher
	Events   application.EventPublisher
	Captcha  middleware.CaptchaVerifier
	// Redis backs the rate limiters; nil disables them.
	Redis *redis.Client
}

func buildDeps() Deps {
	cfg := container.GetConfig()
	var captcha middleware.CaptchaVerifier
	if cfg.RecaptchaSecretKey != "" {
		captcha = middleware.NewRecaptcha(cfg.RecaptchaSecretKey)
	}
	return Deps{
		Config:   cfg,
		Logger:   container.GetLogger(),
		Users:    pginfra.NewUserRepository(container.GetPGPool()),
		Sessions: redisstore.NewSessionStore(container.GetRedis(), cfg.SessionIdleTTL),
		Signer:   container.GetSessionSigner(),
		Cookies:  container.GetCookies(),
		OTP:      totp.NewProvider(cfg.TOTPIssuer),
		Hasher:   helpers.Bcrypt{},
		Events:   container.GetEvents(),
		Captcha:  captcha,
		Redis:    container.GetRedis(),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	Mount(r, buildDeps())
}

// Mount installs the session middleware and every module on r.
func Mount(r *Registry, d Deps) *application.Service {
	svc := application.NewService(d.Users, d.Hasher, d.OTP, d.Events, d.Logger, d.Config.RegistrationEnabled)

	r.Use(
		middleware.Sessions(middleware.SessionConfig{Store: d.Sessions, Signer: d.Signer, Cookies: d.Cookies, Logger: d.Logger}),
		middleware.LoadUser(svc, d.Logger),
	)

	limits := modules.Limiter{Redis: d.Redis}
	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(svc, d.Logger, d.Config.RecaptchaSiteKey), d.Captcha, d.Logger, limits))
	r.Add(modules.NewWelcomeModule(handlers.NewWelcomeHandler(svc)))
	r.Add(modules.NewDashboardModule(handlers.NewDashboardHandler()))
	r.Add(modules.NewSettingsModule(handlers.NewSettingsHandler(svc, d.Logger), svc, d.Logger, limits))
	if d.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(limits))
	}
	return svc
}
