package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/civic-service-portal/internal/access"
	"github.com/iliyamo/civic-service-portal/internal/config"
	"github.com/iliyamo/civic-service-portal/internal/database"
	"github.com/iliyamo/civic-service-portal/internal/handler"
	"github.com/iliyamo/civic-service-portal/internal/lifecycle"
	"github.com/iliyamo/civic-service-portal/internal/logging"
	"github.com/iliyamo/civic-service-portal/internal/middleware"
	"github.com/iliyamo/civic-service-portal/internal/queue"
	"github.com/iliyamo/civic-service-portal/internal/repository"
	"github.com/iliyamo/civic-service-portal/internal/router"
	"github.com/iliyamo/civic-service-portal/internal/service"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.Env, cfg.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.WithError(err).Fatal("database connect failed")
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("schema migration failed")
		}
	}

	// nil disables the shared limiter and the catalog cache
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.WithField("addr", cfg.Redis.Addr).Warn("redis unavailable; rate limiting and catalog cache disabled")
	} else {
		defer rdb.Close()
	}

	guard := access.NewPipeline(middleware.DenialObserver(log))
	clock := lifecycle.SystemClock{}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	departments := repository.NewDepartmentRepo(db)
	services := repository.NewServiceRepo(db)
	requests := repository.NewRequestRepo(db)
	payments := repository.NewPaymentRepo(db)
	documents := repository.NewDocumentRepo(db)
	notifications := repository.NewNotificationRepo(db)

	opts := []lifecycle.Option{
		lifecycle.WithLogger(log),
		lifecycle.WithMaxReferenceAttempts(cfg.ReferenceMaxAttempts),
	}
	if cfg.Queue.PublishEnabled {
		pub := service.NewEventPublisher(cfg.Queue, log)
		defer pub.Close()
		opts = append(opts, lifecycle.WithPublisher(pub))
	}
	engine := lifecycle.New(repository.NewStore(db), opts...)
	defer engine.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	secure := router.Secure{
		Secret:    cfg.JWTSecret,
		Users:     users,
		Guard:     guard,
		Log:       log,
		Limit:     middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
		OpenLimit: middleware.NewTokenBucket(cfg.RateLimit.ForAnonymous(), rdb, log),
	}

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), secure)

	var cache echo.MiddlewareFunc
	if rdb != nil {
		cache = middleware.NewRedisCache(cfg.Cache, rdb)
	}
	router.RegisterPublic(e, handler.NewCatalogHandler(departments, services), secure, cache)

	router.RegisterCitizen(e, &handler.CitizenHandler{
		Engine:        engine,
		Guard:         guard,
		Services:      services,
		Requests:      requests,
		Payments:      payments,
		Documents:     documents,
		Notifications: notifications,
		Clock:         clock,
	}, secure)
	router.RegisterOfficer(e, &handler.OfficerHandler{
		Engine:    engine,
		Guard:     guard,
		Requests:  requests,
		Payments:  payments,
		Documents: documents,
	}, secure)
	router.RegisterAdmin(e, &handler.AdminHandler{
		Departments: departments,
		Services:    services,
		Users:       users,
		Sessions:    tokens,
		Requests:    requests,
		Audits:      repository.NewAuditRepo(db),
		Reports:     repository.NewReportRepo(db),
		Clock:       clock,
	}, secure)

	if cfg.Queue.ConsumerEnabled {
		consumer := queue.NewConsumer(cfg.Queue, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("event consumer stopped")
			}
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
