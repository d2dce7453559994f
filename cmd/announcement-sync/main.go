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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/announcement-sync/api/swagger"
	"github.com/noah-isme/announcement-sync/internal/handler"
	internalmiddleware "github.com/noah-isme/announcement-sync/internal/middleware"
	"github.com/noah-isme/announcement-sync/internal/repository"
	"github.com/noah-isme/announcement-sync/internal/service"
	"github.com/noah-isme/announcement-sync/pkg/config"
	"github.com/noah-isme/announcement-sync/pkg/jobs"
	"github.com/noah-isme/announcement-sync/pkg/logger"
	corsmiddleware "github.com/noah-isme/announcement-sync/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/announcement-sync/pkg/middleware/requestid"
)

const (
	shutdownTimeout   = 15 * time.Second
	queueDrainTimeout = 60 * time.Second
)

// @title Announcement Sync API
// @version 1.0.0
// @description Fetches portal announcements page by page and mirrors them into the ledger.
// @BasePath /
// @schemes http

type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *service.MetricsService
	sync    *service.SyncService
	docs    *service.DocumentService
	queue   *jobs.Queue
}

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, logr)
	if cfg.Ledger.Mode == config.LedgerModeAsync {
		a.queue.Start(context.Background())
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "ledger_mode", cfg.Ledger.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown error", "error", err)
	}

	if cfg.Ledger.Mode == config.LedgerModeAsync {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), queueDrainTimeout)
		defer drainCancel()
		a.queue.Stop(drainCtx)
	}
	logr.Info("server stopped")
}

func newApp(cfg *config.Config, logr *zap.Logger) *app {
	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}
	events := service.NewLoggingEventSink(logr, metrics)

	portal := repository.NewPortalClient(cfg.Portal)
	docs := service.NewDocumentService(portal, events, logr)
	announcements := service.NewAnnouncementService(portal, docs, events, logr, service.AnnouncementServiceConfig{
		DefaultPageSize:   cfg.Portal.DefaultPageSize,
		MaxPageSize:       cfg.Portal.MaxPageSize,
		EnrichConcurrency: cfg.Portal.EnrichConcurrency,
	})

	ledger := service.NewLedgerService(repository.NewLedgerRepository(cfg.Ledger), events, logr, service.LedgerServiceConfig{
		WriteDelay:     cfg.Ledger.WriteDelay,
		MaxAttachments: cfg.Ledger.MaxAttachments,
	})

	a := &app{cfg: cfg, logger: logr, metrics: metrics, docs: docs}
	a.queue = jobs.NewQueue("ledger", func(ctx context.Context, job jobs.Job) error {
		return a.sync.HandleLedgerJob(ctx, job)
	}, jobs.QueueConfig{Workers: 1, BufferSize: cfg.Queue.BufferSize, Logger: logr})
	a.sync = service.NewSyncService(announcements, ledger, a.queue, cfg.Ledger.Mode, logr)
	return a
}

func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(corsmiddleware.New(a.cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(a.metrics))

	metricsHandler := handler.NewMetricsHandler(a.metrics, a.sync.Mode())
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if a.metrics != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
		r.GET("/metrics/summary", metricsHandler.Summary)
	}

	if a.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	announcementHandler := handler.NewAnnouncementHandler(a.sync, a.docs)
	api := r.Group(a.cfg.APIPrefix)
	api.POST("/announcements", announcementHandler.Fetch)
	api.POST("/announcements/more", announcementHandler.LoadMore)
	api.POST("/announcements/documents", announcementHandler.Documents)

	return r
}
