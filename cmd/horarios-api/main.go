package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/ufrn-horarios/horarios-api/api/swagger"
	"github.com/ufrn-horarios/horarios-api/internal/handler"
	"github.com/ufrn-horarios/horarios-api/internal/repository"
	"github.com/ufrn-horarios/horarios-api/internal/service"
	"github.com/ufrn-horarios/horarios-api/pkg/cache"
	"github.com/ufrn-horarios/horarios-api/pkg/config"
	"github.com/ufrn-horarios/horarios-api/pkg/database"
	"github.com/ufrn-horarios/horarios-api/pkg/events"
	"github.com/ufrn-horarios/horarios-api/pkg/logger"
)

// @title Horarios API
// @version 1.0.0
// @description Curricular components, sections and weekly timetables with conflict detection.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()

	var redisClient *redis.Client
	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, schedule cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduling.ConflictCacheTTL, logr, cfg.Cache.Enabled)

	validate := validator.New()

	componentRepo := repository.NewComponentRepository(db)
	professorRepo := repository.NewProfessorRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	userRepo := repository.NewUserRepository(db)

	dispatcherCfg := service.EventDispatcherConfig{
		Workers:    cfg.Events.Workers,
		MaxRetries: cfg.Events.MaxRetries,
		RetryDelay: cfg.Events.RetryDelay,
	}
	var dispatcher *service.EventDispatcher
	if cfg.Events.Enabled {
		publisher := events.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Queue, logr)
		defer publisher.Close() //nolint:errcheck
		dispatcher = service.NewEventDispatcher(publisher, metrics, logr, dispatcherCfg)
	} else {
		dispatcher = service.NewEventDispatcher(nil, metrics, logr, dispatcherCfg)
	}
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	tracker := service.NewProfessorLoadTracker(professorRepo, cfg.Scheduling.MaxWeeklyHours, metrics, logr)
	sectionSvc := service.NewSectionService(sectionRepo, componentRepo, professorRepo, tracker, db, cacheSvc, dispatcher, validate, logr)
	componentSvc := service.NewComponentService(componentRepo, sectionRepo, sectionSvc, db, cacheSvc, validate, logr)
	professorSvc := service.NewProfessorService(professorRepo, cacheSvc, validate, logr)
	scheduleSvc := service.NewScheduleService(sectionRepo, componentRepo, professorRepo, cacheSvc, metrics, cfg.Scheduling.ConflictCacheTTL, validate, logr)
	exportSvc := service.NewExportService(scheduleSvc, professorRepo, cfg.Exports.Enabled, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	if err := authSvc.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		logr.Fatal("failed to seed admin user", zap.Error(err))
	}

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	router := newRouter(cfg, logr, metrics, authSvc, routeHandlers{
		auth:       handler.NewAuthHandler(authSvc),
		components: handler.NewComponentHandler(componentSvc),
		professors: handler.NewProfessorHandler(professorSvc),
		sections:   handler.NewSectionHandler(sectionSvc),
		schedules:  handler.NewScheduleHandler(scheduleSvc, exportSvc),
		metrics:    handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
