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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	"github.com/noah-isme/timetable-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

// @title Timetable API
// @version 1.0.0
// @description Weekly university timetable generation, views and exports
// @BasePath /
// @schemes http

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

	metricsSvc := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	var db *sqlx.DB
	if cfg.Scheduler.CatalogSource == config.CatalogSourcePostgres || cfg.Scheduler.PersistRuns {
		db, err = database.NewPostgres(ctx, cfg.Database, logr)
		if err != nil {
			logr.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer db.Close()
		if cfg.Database.RunMigrations {
			if err := database.RunMigrations(db.DB, logr); err != nil {
				logr.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		checks["postgres"] = db.PingContext
	}

	var redisClient *redis.Client
	if cfg.Views.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			// views are still served uncached
			logr.Warn("redis unavailable, view cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var timetableSvc *service.TimetableService
	if cfg.Scheduler.Enabled {
		var catalogs service.CatalogSource
		if cfg.Scheduler.CatalogSource == config.CatalogSourcePostgres {
			catalogs = repository.NewCatalogRepository(db)
		} else {
			catalogs = repository.NewCSVCatalogRepository(cfg.Scheduler.CatalogDir)
		}

		var store service.TimetableStore
		if cfg.Scheduler.PersistRuns {
			store = repository.NewTimetableRepository(db)
		}

		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		if redisClient != nil {
			checks["redis"] = cacheRepo.Ping
		}
		cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Views.CacheTTL, logr, cfg.Views.CacheEnabled && redisClient != nil)

		timetableSvc = service.NewTimetableService(catalogs, store, cacheSvc, metricsSvc, validator.New(), logr.Named("timetable"), service.TimetableServiceConfig{
			Seed:            cfg.Scheduler.Seed,
			GenerateTimeout: cfg.Scheduler.GenerateTimeout,
			SessionHours:    cfg.Scheduler.SessionHours,
			AsyncWorkers:    cfg.Scheduler.AsyncWorkers,
			AsyncRetries:    cfg.Scheduler.AsyncRetries,
		})
		if err := timetableSvc.Restore(ctx); err != nil {
			logr.Warn("failed to restore published timetable", zap.Error(err))
		}
		timetableSvc.Start(ctx)

		viewSvc := service.NewViewService(timetableSvc, cacheSvc, cfg.Views.CacheTTL, logr)
		exportSvc := service.NewExportService(timetableSvc, viewSvc, logr)

		api := r.Group(cfg.APIPrefix)
		handler.NewTimetableHandler(timetableSvc, viewSvc, exportSvc).
			Register(api, ratelimit.PerMinute(cfg.Scheduler.RegenerateRatePerMinute, logr))
	} else {
		logr.Info("scheduler disabled, timetable routes not mounted")
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
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
	if timetableSvc != nil {
		timetableSvc.Stop()
	}
}
