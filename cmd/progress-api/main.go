package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-progress-api/api/swagger"
	"github.com/noah-isme/sma-progress-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-progress-api/internal/middleware"
	"github.com/noah-isme/sma-progress-api/internal/repository"
	"github.com/noah-isme/sma-progress-api/internal/service"
	"github.com/noah-isme/sma-progress-api/internal/upstream"
	"github.com/noah-isme/sma-progress-api/pkg/cache"
	"github.com/noah-isme/sma-progress-api/pkg/config"
	"github.com/noah-isme/sma-progress-api/pkg/database"
	"github.com/noah-isme/sma-progress-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-progress-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-progress-api/pkg/middleware/requestid"
)

// @title Student Progress API
// @version 0.1.0
// @description Session timelines, progress metrics and upcoming assignments reconciled from the academic backend.
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

	ctx := context.Background()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}

	metricsSvc := service.NewMetricsService()
	client := upstream.NewClient(upstream.ClientParams{
		Config:   cfg.Upstream,
		Observer: metricsSvc,
		Logger:   logr.Named("upstream"),
	})

	cacheRepo := repository.NewCacheRepository(redisClient, "progress")
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Fanout.SharedCacheTTL, logr.Named("cache"),
		redisClient != nil && cfg.Fanout.SharedCacheEnabled)

	topics := service.NewTopicResolver(service.TopicResolverParams{
		CoveredTopics: client,
		Catalog:       repository.NewTopicCatalogRepository(db),
		Concurrency:   cfg.Upstream.MaxConcurrency,
		Logger:        logr.Named("topics"),
	})
	upcoming := service.NewAssignmentFanoutCache(service.AssignmentFanoutCacheParams{
		Source:      client,
		Shared:      cacheSvc,
		Metrics:     metricsSvc,
		Logger:      logr.Named("fanout"),
		TTL:         cfg.Fanout.CacheTTL,
		SharedTTL:   cfg.Fanout.SharedCacheTTL,
		Concurrency: cfg.Upstream.MaxConcurrency,
	})
	progressSvc := service.NewProgressService(service.ProgressServiceParams{
		Source:      client,
		Topics:      topics,
		Assignments: service.NewAssignmentAggregator(client, logr.Named("assignments")),
		Upcoming:    upcoming,
		Metrics:     metricsSvc,
		Logger:      logr.Named("progress"),
		Config: service.ProgressServiceConfig{
			AttendancePolicy: service.AttendancePolicyFor(cfg.Progress.AttendancePrecedence),
			Thresholds: service.WarningThresholds{
				Score:      cfg.Progress.WarningScoreThreshold,
				Completion: cfg.Progress.WarningCompletionThreshold,
			},
			WindowWeeks:    cfg.Progress.WindowWeeks,
			WindowSessions: cfg.Progress.WindowSessions,
		},
	})
	exportSvc := service.NewExportService(cfg.Export.Enabled, logr.Named("export"), nil, nil)
	authSvc := service.NewAuthService(logr.Named("auth"), service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})

	validate := validator.New()
	readiness := map[string]handler.ReadinessCheck{}
	if db != nil {
		readiness["database"] = func(ctx context.Context) error { return db.PingContext(ctx) }
	}
	if redisClient != nil {
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	routes := handler.Routes{
		Progress:    handler.NewProgressHandler(progressSvc, exportSvc, validate),
		Assignments: handler.NewAssignmentHandler(progressSvc, validate),
		Metrics:     handler.NewMetricsHandler(metricsSvc.Handler(), readiness),
	}
	if cfg.JWT.Enabled {
		routes.Auth = internalmiddleware.JWT(authSvc)
		routes.StudentScope = internalmiddleware.StudentScope(authSvc)
	} else {
		logr.Warn("JWT verification disabled; API routes are unauthenticated")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	routes.Register(r, cfg.APIPrefix)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
}
