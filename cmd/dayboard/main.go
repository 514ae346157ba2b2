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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/dayboard/api/swagger"
	"github.com/noah-isme/dayboard/internal/handler"
	"github.com/noah-isme/dayboard/internal/middleware"
	"github.com/noah-isme/dayboard/internal/repository"
	"github.com/noah-isme/dayboard/internal/service"
	"github.com/noah-isme/dayboard/pkg/cache"
	"github.com/noah-isme/dayboard/pkg/config"
	"github.com/noah-isme/dayboard/pkg/database"
	"github.com/noah-isme/dayboard/pkg/logger"
	corsmiddleware "github.com/noah-isme/dayboard/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/dayboard/pkg/middleware/requestid"
)

// @title Dayboard API
// @version 1.0.0
// @description Live personal calendar: day agenda, week density and month grid kept in sync with the events table.
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	events := repository.NewEventRepository(db)
	storeParams := service.EventStoreParams{
		Repo:    events,
		Metrics: metrics,
		Logger:  logr,
	}
	sessionParams := service.SessionParams{
		Engine: service.NewMergeEngine(service.MergeEngineConfig{
			InboxSize: cfg.Realtime.InboxSize,
			Metrics:   metrics,
			Logger:    logr,
		}),
		Metrics: metrics,
		Logger:  logr,
		Config: service.SessionConfig{
			Location:       cfg.Location(),
			ResyncSchedule: cfg.Realtime.ResyncSchedule,
		},
	}

	switch cfg.Realtime.Driver {
	case config.RealtimeDriverRedis:
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		sessionParams.Feed = repository.NewRedisChangeFeed(rdb, cfg.Realtime.Channel, cfg.Realtime.InboxSize, logr)
		storeParams.Publisher = repository.NewRedisChangePublisher(rdb, cfg.Realtime.Channel)
	default:
		sessionParams.Feed = repository.NewPostgresChangeFeed(repository.PostgresFeedConfig{
			DSN:          cfg.Database.DSN(),
			Channel:      cfg.Realtime.Channel,
			MinReconnect: cfg.Realtime.MinReconnect,
			MaxReconnect: cfg.Realtime.MaxReconnect,
			Buffer:       cfg.Realtime.InboxSize,
		}, logr)
	}

	sessionParams.Store = service.NewEventStoreService(storeParams)
	session := service.NewSessionService(sessionParams)
	if err := session.Mount(ctx); err != nil {
		logr.Fatal("failed to mount session", zap.Error(err))
	}
	defer session.Unmount()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics"))
	r.Use(middleware.WithResponseMeta())

	handler.RegisterRoutes(r, handler.Handlers{
		Session: handler.NewSessionHandler(session),
		Export:  handler.NewExportHandler(service.NewExportService(session, logr, nil, nil, nil), session),
		Metrics: handler.NewMetricsHandler(metrics, session, events),
	}, handler.RouteOptions{
		Prefix:        cfg.APIPrefix,
		EnableExports: cfg.Exports.Enabled,
		EnableMetrics: cfg.Metrics.Enabled,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "realtime", cfg.Realtime.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logr.Error("server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("server shutdown", zap.Error(err))
	}
	logr.Info("server stopped")
}
