package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bogdanivan12/odes/internal/handler"
	"github.com/bogdanivan12/odes/internal/repository"
	"github.com/bogdanivan12/odes/internal/service"
	"github.com/bogdanivan12/odes/pkg/cache"
	"github.com/bogdanivan12/odes/pkg/config"
	"github.com/bogdanivan12/odes/pkg/database"
	"github.com/bogdanivan12/odes/pkg/jobs"
	"github.com/bogdanivan12/odes/pkg/logger"
)

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	scheduleRepo := repository.NewScheduleRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	queue := jobs.NewQueue(redisClient, jobs.QueueConfig{
		Workers: cfg.Worker.Concurrency,
		Logger:  logr,
	})

	metricsSvc := service.NewMetricsService(queue)
	generationSvc := service.NewGenerationService(scheduleRepo, snapshotRepo, metricsSvc, logr, service.GenerationConfig{
		SolverMaxTime:  cfg.Solver.MaxTime,
		SolverWorkers:  cfg.Solver.Workers,
		PersistRetries: cfg.Worker.PersistRetries,
		RetryDelay:     cfg.Worker.RetryDelay,
		ReaperInterval: cfg.Worker.ReaperInterval,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx, generationSvc.Handle)
	generationSvc.StartReaper(ctx)

	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	addr := fmt.Sprintf(":%d", cfg.Worker.Port)
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		logr.Sugar().Infow("worker starting", "addr", addr, "concurrency", cfg.Worker.Concurrency)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("worker http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("worker shutting down")
	queue.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("worker shutdown failed", "error", err)
	}
}
