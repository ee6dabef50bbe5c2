package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-portal/config"
	"github.com/oksasatya/go-ddd-auth-portal/internal/application"
	"github.com/oksasatya/go-ddd-auth-portal/internal/container"
	"github.com/oksasatya/go-ddd-auth-portal/internal/infrastructure/events"
	pginfra "github.com/oksasatya/go-ddd-auth-portal/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-auth-portal/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-auth-portal/internal/router"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/helpers"
	tpl "github.com/oksasatya/go-ddd-auth-portal/pkg/mailer/templates"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	// Initialize Postgres pool
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	// Redis holds sessions and rate limit counters
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	sinks, closeSinks := eventSinks(ctx, cfg, logger)
	defer closeSinks()

	// Provide infra singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)
	container.SetRedis(rdb)
	container.SetSessionSigner(helpers.NewSessionSigner(cfg.SessionSecret))
	container.SetCookies(helpers.NewCookie(cfg.SessionCookieName, cfg.CookieDomain, cfg.CookieSecure, cfg.SessionIdleTTL))
	container.SetEvents(sinks)

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) > 0 {
		r.Use(cors.New(corsCfg))
	}
	if cfg.IsDevelopment() || cfg.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

// eventSinks connects the optional audit index and mail queue. A sink that
// cannot be reached is skipped; the portal works without both.
func eventSinks(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (application.EventPublisher, func()) {
	var (
		sinks   events.Multi
		closers []func()
	)

	if cfg.AuthEventsEnabled {
		es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err == nil {
			err = helpers.PingES(ctx, es)
		}
		if err != nil {
			helpers.LogError(logger, "elasticsearch unavailable; audit indexing disabled", err, nil)
		} else {
			audit := events.NewAuditIndexer(es, cfg.AuthEventsIndex)
			if err := audit.EnsureIndex(ctx); err != nil {
				helpers.LogError(logger, "ensure audit index failed", err, logrus.Fields{"index": cfg.AuthEventsIndex})
			}
			sinks = append(sinks, audit)
		}
	}

	if cfg.MailSendEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			helpers.LogError(logger, "rabbitmq unavailable; notification emails disabled", err, nil)
		} else {
			closers = append(closers, pub.Close)
			sinks = append(sinks, events.NewMailPublisher(pub, tpl.Brand{
				AppName:        cfg.AppName,
				CompanyName:    cfg.CompanyName,
				CompanyAddress: cfg.CompanyAddress,
				LogoURL:        cfg.LogoURL,
				SupportURL:     cfg.SupportURL,
				PrivacyURL:     cfg.PrivacyURL,
			}))
		}
	}

	helpers.LogInfo(logger, "auth event sinks ready", logrus.Fields{"count": len(sinks)})
	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}
