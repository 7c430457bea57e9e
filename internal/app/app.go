// Package app assembles the API process: storage, services, the request gate and the
// supervised background workers.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-edu-api/internal/config"
	"github.com/noah-isme/gema-edu-api/internal/database"
	"github.com/noah-isme/gema-edu-api/internal/handler"
	"github.com/noah-isme/gema-edu-api/internal/middleware"
	"github.com/noah-isme/gema-edu-api/internal/ratelimit"
	"github.com/noah-isme/gema-edu-api/internal/repository"
	"github.com/noah-isme/gema-edu-api/internal/router"
	"github.com/noah-isme/gema-edu-api/internal/service"
	"github.com/noah-isme/gema-edu-api/internal/supervisor"
)

// Server owns every long-lived resource of the API process.
type Server struct {
	Config     config.Config
	Logger     zerolog.Logger
	DB         *gorm.DB
	HTTP       *fiber.App
	Tree       *supervisor.Tree
	LoginGuard service.LoginGuard
	Seeder     service.SeedService
	Activity   service.ActivityService

	redis *redis.Client
	nats  *nats.Conn
}

// Open connects to the configured stores and builds the server.
func Open(cfg config.Config, logger zerolog.Logger) (*Server, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return Build(cfg, logger, db)
}

// Build wires the server on top of an open database.
func Build(cfg config.Config, logger zerolog.Logger, db *gorm.DB) (*Server, error) {
	srv := &Server{Config: cfg, Logger: logger, DB: db}

	if cfg.RedisURL != "" {
		client, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		srv.redis = client
	}
	store, err := srv.rateLimitStore()
	if err != nil {
		return nil, err
	}

	nc, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		return nil, err
	}
	srv.nats = nc

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	attemptRepo := repository.NewLoginAttemptRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	studentRepo := repository.NewAdminStudentRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	analyticsRepo := repository.NewAdminAnalyticsRepository(db)

	srv.LoginGuard = service.NewLoginGuard(attemptRepo, service.LoginGuardConfig{
		Window:       cfg.LoginGuardWindow,
		MaxFailures:  cfg.LoginGuardMaxFailures,
		ReadTimeout:  cfg.StoreTimeout,
		WriteTimeout: cfg.StoreTimeout,
	}, logger)
	authService := service.NewAuthService(userRepo, refreshRepo, srv.LoginGuard, validate, service.AuthConfig{
		Secret:       cfg.JWTSecret,
		Issuer:       cfg.JWTIssuer,
		AccessTTL:    cfg.AccessTokenTTL,
		RefreshTTL:   cfg.RefreshTokenTTL,
		StoreTimeout: cfg.StoreTimeout,
	}, logger)
	permissionService := service.NewPermissionService(userRepo, permissionRepo, cfg.StoreTimeout, logger)
	srv.Activity = service.NewActivityService(activityRepo, logger)
	srv.Seeder = service.NewSeedService(permissionRepo, userRepo, logger)
	adminUserService := service.NewAdminUserService(userRepo, validate, logger)
	adminStudentService := service.NewAdminStudentService(studentRepo, validate, logger)
	lessonService := service.NewLessonService(lessonRepo, logger)
	analyticsService := service.NewAdminAnalyticsService(analyticsRepo, srv.redis, cfg.AnalyticsCacheTTL, cfg.StoreTimeout, logger)

	queue := service.NewActivityQueue(cfg.ActivityQueueSize, logger)
	var publisher service.ActivityPublisher
	if nc != nil {
		publisher = nc
	}
	dispatcher := service.NewActivityDispatcher(queue, activityRepo, publisher, service.DispatcherConfig{
		Workers:      cfg.ActivityWorkers,
		Subject:      cfg.EventsSubject,
		WriteTimeout: cfg.StoreTimeout,
	}, logger)

	srv.Tree = supervisor.New("gema-api", supervisor.DefaultConfig(), logger)
	srv.Tree.Add(dispatcher)
	srv.Tree.Add(ratelimit.NewJanitor(store, cfg.RateLimitSweepInterval, logger))

	csrf := middleware.NewCSRF(cfg.CSRFSecret, cfg.CSRFCookieSecure)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ErrorHandler: middleware.ErrorHandler(logger),
	})
	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    !cfg.IsProduction(),
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:            handler.NewAuthHandler(authService, permissionService, csrf, validate, logger),
		AdminUserHandler:       handler.NewAdminUserHandler(adminUserService, logger),
		AdminStudentHandler:    handler.NewAdminStudentHandler(adminStudentService, logger),
		AdminPermissionHandler: handler.NewAdminPermissionHandler(permissionService, validate, logger),
		AdminActivityHandler:   handler.NewAdminActivityHandler(srv.Activity, logger),
		AdminAnalyticsHandler:  handler.NewAdminAnalyticsHandler(analyticsService, logger),
		SeedHandler:            handler.NewSeedHandler(srv.Seeder, logger),
		LessonHandler:          handler.NewLessonHandler(lessonService, validate, logger),
		Verifier:               authService,
		Resolver:               permissionService,
		Recorder:               queue,
		CSRF:                   csrf,
		RateLimitStore:         store,
		HealthChecks:           srv.healthChecks(),
		Logger:                 logger,
	})
	srv.HTTP = app

	return srv, nil
}

func (s *Server) rateLimitStore() (ratelimit.Store, error) {
	local := ratelimit.NewMemoryStore()
	if s.Config.RateLimitStore != "redis" {
		return local, nil
	}
	if s.redis == nil {
		return nil, fmt.Errorf("redis rate limit store requires a redis url")
	}
	return ratelimit.NewBreakerStore(ratelimit.NewRedisStore(s.redis, "gema:ratelimit:"), local, ratelimit.BreakerSettings{}, s.Logger), nil
}

func (s *Server) healthChecks() map[string]handler.PingFunc {
	checks := map[string]handler.PingFunc{
		"database": func(ctx context.Context) error {
			sqlDB, err := s.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if s.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return s.redis.Ping(ctx).Err()
		}
	}
	if s.nats != nil {
		checks["nats"] = func(context.Context) error {
			if !s.nats.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}
	}
	return checks
}

// Bootstrap seeds the permission catalog and, when configured, the first administrator.
func (s *Server) Bootstrap(ctx context.Context) error {
	if err := s.Seeder.SeedAccessControl(ctx); err != nil {
		return err
	}
	if s.Config.SeedAdminEmail == "" && s.Config.SeedAdminPassword == "" {
		return nil
	}
	if _, err := s.Seeder.SeedAdmin(ctx, s.Config.SeedAdminEmail, s.Config.SeedAdminPassword); err != nil {
		return err
	}
	return nil
}

// Run serves HTTP and the background workers until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	treeCtx, stopTree := context.WithCancel(context.Background())
	treeDone := s.Tree.ServeBackground(treeCtx)

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- s.HTTP.Listen(s.Config.HTTPAddress())
	}()
	s.Logger.Info().Str("address", s.Config.HTTPAddress()).Msg("api listening")

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-listenErr:
		runErr = fmt.Errorf("http server stopped: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.HTTP.ShutdownWithContext(shutdownCtx); err != nil {
		s.Logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	// Workers stop after the listener so in-flight requests can still enqueue activity.
	stopTree()
	<-treeDone
	s.LoginGuard.Wait()
	s.Close()

	s.Logger.Info().Msg("server stopped")
	return runErr
}

// Close releases external connections.
func (s *Server) Close() {
	if s.nats != nil {
		s.nats.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
