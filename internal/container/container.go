package container

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-portal/config"
	"github.com/oksasatya/go-ddd-auth-portal/internal/application"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client

	sessionSigner *helpers.SessionSigner
	cookies       *helpers.Manager

	events application.EventPublisher
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config  { return cfg }
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger  { return logger }
func SetPGPool(p *pgxpool.Pool)  { pgPool = p }
func GetPGPool() *pgxpool.Pool   { return pgPool }
func SetRedis(r *redis.Client)   { redisClient = r }
func GetRedis() *redis.Client    { return redisClient }

func SetSessionSigner(s *helpers.SessionSigner) { sessionSigner = s }
func GetSessionSigner() *helpers.SessionSigner {
	if sessionSigner != nil {
		return sessionSigner
	}
	return helpers.NewSessionSigner(cfg.SessionSecret)
}

func SetCookies(m *helpers.Manager) { cookies = m }
func GetCookies() *helpers.Manager {
	if cookies != nil {
		return cookies
	}
	return helpers.NewCookie(cfg.SessionCookieName, cfg.CookieDomain, cfg.CookieSecure, cfg.SessionIdleTTL)
}

// SetEvents installs the auth event sink; nil means events are dropped.
func SetEvents(p application.EventPublisher) { events = p }
func GetEvents() application.EventPublisher  { return events }
