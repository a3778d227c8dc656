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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/bogdanivan12/odes/api/swagger"
	"github.com/bogdanivan12/odes/internal/handler"
	"github.com/bogdanivan12/odes/internal/middleware"
	"github.com/bogdanivan12/odes/internal/models"
	"github.com/bogdanivan12/odes/internal/repository"
	"github.com/bogdanivan12/odes/internal/service"
	"github.com/bogdanivan12/odes/pkg/cache"
	"github.com/bogdanivan12/odes/pkg/config"
	"github.com/bogdanivan12/odes/pkg/database"
	"github.com/bogdanivan12/odes/pkg/jobs"
	"github.com/bogdanivan12/odes/pkg/logger"
	corsmiddleware "github.com/bogdanivan12/odes/pkg/middleware/cors"
	reqidmiddleware "github.com/bogdanivan12/odes/pkg/middleware/requestid"
	"github.com/bogdanivan12/odes/pkg/storage"
)

// @title Timetable API
// @version 1.0.0
// @description University timetable generation service
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

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	institutionRepo := repository.NewInstitutionRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	placementRepo := repository.NewScheduledActivityRepository(db)
	queue := jobs.NewQueue(redisClient, jobs.QueueConfig{Logger: logr})
	signer := storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Exports.SignedURLTTL)

	// Services.
	metricsSvc := service.NewMetricsService(queue)
	cacheRepo := repository.NewCacheRepository(redisClient, logr, metricsSvc)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:             cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "timetable-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	institutionSvc := service.NewInstitutionService(institutionRepo, cacheRepo, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, institutionRepo, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, institutionRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, institutionRepo, validate, logr)
	activitySvc := service.NewActivityService(activityRepo, courseRepo, groupRepo, userRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, placementRepo, institutionRepo, activityRepo, queue, logr)
	timetableSvc := service.NewTimetableService(scheduleRepo, placementRepo, groupRepo, cacheRepo, logr)
	exportSvc := service.NewExportService(timetableSvc, scheduleRepo, placementRepo, exportStore, signer, cfg.APIURL+cfg.APIPrefix, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	exportSvc.StartCleanup(ctx, cfg.Exports.CleanupInterval, cfg.Exports.SignedURLTTL)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	institutionHandler := handler.NewInstitutionHandler(institutionSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	groupHandler := handler.NewGroupHandler(groupSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, timetableSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	users := api.Group("/users")
	{
		users.POST("", userHandler.Register)
		users.GET("", middleware.JWT(authSvc), userHandler.List)
		users.GET("/:id", middleware.JWT(authSvc), userHandler.Get)
		users.PUT("/:id", middleware.JWT(authSvc), userHandler.Update)
		users.PUT("/:id/password", middleware.JWT(authSvc), userHandler.ChangePassword)
		users.DELETE("/:id", middleware.JWT(authSvc), middleware.Audit(userRepo, models.AuditActionDelete, "user"), userHandler.Delete)
	}

	institutions := api.Group("/institutions", middleware.JWT(authSvc))
	{
		institutions.POST("", institutionHandler.Create)
		institutions.GET("", institutionHandler.List)

		scoped := institutions.Group("/:institutionId")
		admin := middleware.RequireRoles(userRepo, models.RoleAdmin)
		staff := middleware.RequireRoles(userRepo, models.RoleAdmin, models.RoleProfessor, models.RoleStudent)

		scoped.GET("", staff, institutionHandler.Get)
		scoped.PUT("", admin, middleware.Audit(userRepo, models.AuditActionUpdate, "institution"), institutionHandler.Update)
		scoped.PUT("/time-grid", admin, middleware.Audit(userRepo, models.AuditActionUpdate, "time_grid"), institutionHandler.UpdateTimeGrid)
		scoped.DELETE("", admin, middleware.Audit(userRepo, models.AuditActionDelete, "institution"), institutionHandler.Delete)

		scoped.POST("/rooms", admin, roomHandler.Create)
		scoped.GET("/rooms", staff, roomHandler.List)
		scoped.GET("/rooms/:id", staff, roomHandler.Get)
		scoped.PUT("/rooms/:id", admin, roomHandler.Update)
		scoped.DELETE("/rooms/:id", admin, roomHandler.Delete)

		scoped.POST("/groups", admin, groupHandler.Create)
		scoped.GET("/groups", staff, groupHandler.List)
		scoped.GET("/groups/:id", staff, groupHandler.Get)
		scoped.PUT("/groups/:id", admin, groupHandler.Update)
		scoped.DELETE("/groups/:id", admin, groupHandler.Delete)

		scoped.POST("/courses", admin, courseHandler.Create)
		scoped.GET("/courses", staff, courseHandler.List)
		scoped.GET("/courses/:id", staff, courseHandler.Get)
		scoped.PUT("/courses/:id", admin, courseHandler.Update)
		scoped.DELETE("/courses/:id", admin, courseHandler.Delete)

		scoped.POST("/activities", admin, activityHandler.Create)
		scoped.GET("/activities", staff, activityHandler.List)
		scoped.GET("/activities/:id", staff, activityHandler.Get)
		scoped.PUT("/activities/:id", admin, activityHandler.Update)
		scoped.DELETE("/activities/:id", admin, activityHandler.Delete)

		scoped.POST("/users/:id/roles", admin, middleware.Audit(userRepo, models.AuditActionRoleGrant, "role"), userHandler.GrantRole)
		scoped.DELETE("/users/:id/roles/:role", admin, middleware.Audit(userRepo, models.AuditActionRoleRevoke, "role"), userHandler.RevokeRole)

	}

	schedules := api.Group("/schedules", middleware.JWT(authSvc))
	{
		schedules.POST("", middleware.Audit(userRepo, models.AuditActionScheduleGenerate, "schedule"), scheduleHandler.Generate)
		schedules.GET("", scheduleHandler.List)
		schedules.GET("/:id", scheduleHandler.Get)
		schedules.PUT("/:id", middleware.Audit(userRepo, models.AuditActionUpdate, "schedule"), scheduleHandler.Update)
		schedules.DELETE("/:id", middleware.Audit(userRepo, models.AuditActionDelete, "schedule"), scheduleHandler.Delete)
		schedules.GET("/:id/scheduled-activities", scheduleHandler.Placements)
		schedules.GET("/:id/timetable", scheduleHandler.Timetable)
		schedules.GET("/:id/stats", scheduleHandler.Stats)
		schedules.POST("/:id/export", scheduleHandler.Export)
	}

	// Signed token is the credential; no JWT on downloads.
	api.GET("/downloads/:token", scheduleHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("api server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("api server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown failed", "error", err)
	}
}
