package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/schoolyard-io/schoolyard-api/internal/handler"
	"github.com/schoolyard-io/schoolyard-api/internal/middleware"
	"github.com/schoolyard-io/schoolyard-api/internal/models"
	"github.com/schoolyard-io/schoolyard-api/internal/repository"
	"github.com/schoolyard-io/schoolyard-api/internal/service"
	"github.com/schoolyard-io/schoolyard-api/pkg/cache"
	"github.com/schoolyard-io/schoolyard-api/pkg/config"
	"github.com/schoolyard-io/schoolyard-api/pkg/database"
	"github.com/schoolyard-io/schoolyard-api/pkg/logger"
	corsmiddleware "github.com/schoolyard-io/schoolyard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/schoolyard-io/schoolyard-api/pkg/middleware/requestid"

	redislib "github.com/redis/go-redis/v9"
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redislib.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, list caching disabled", "error", err)
			redisClient = nil
		}
	}

	validate := validator.New()
	metricsService := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, metricsService, logr)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:            cfg.JWT.Secret,
		SessionExpiration: cfg.JWT.SessionExpiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userService := service.NewUserService(userRepo, validate, logr)
	accessService := service.NewAccessService(schoolRepo, logr)
	classroomService := service.NewClassroomService(classroomRepo, schoolRepo, userService, accessService, cacheRepo, cfg.Cache.ListTTL, validate, logr)
	schoolService := service.NewSchoolService(schoolRepo, userService, classroomService, cacheRepo, cfg.Cache.ListTTL, validate, logr)
	adminService := service.NewAdminService(userService, logr)
	studentService := service.NewStudentService(userService, schoolService, classroomService, accessService, logr)
	exportService := service.NewExportService(studentService, schoolService, logr)

	authHandler := handler.NewAuthHandler(authService)
	schoolHandler := handler.NewSchoolHandler(schoolService)
	classroomHandler := handler.NewClassroomHandler(classroomService)
	adminHandler := handler.NewAdminHandler(adminService)
	studentHandler := handler.NewStudentHandler(studentService)
	exportHandler := handler.NewExportHandler(exportService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))

	superadmin := middleware.RequireRoles(models.RoleSuperAdmin)
	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	authed.GET("/schools", staff, schoolHandler.List)
	authed.POST("/schools", superadmin, schoolHandler.Create)
	authed.DELETE("/schools/:id", superadmin, schoolHandler.Delete)
	authed.POST("/schools/:id/admins", superadmin, schoolHandler.EnrollAdmin)
	authed.DELETE("/schools/:id/admins/:adminId", superadmin, schoolHandler.UnenrollAdmin)

	authed.GET("/schools/:id/classrooms", classroomHandler.List)
	authed.POST("/classrooms", staff, classroomHandler.Create)
	authed.DELETE("/classrooms/:id", staff, classroomHandler.Delete)
	authed.POST("/classrooms/:id/students", staff, classroomHandler.EnrollStudent)
	authed.DELETE("/classrooms/:id/students/:studentId", staff, classroomHandler.UnenrollStudent)

	authed.GET("/admins", superadmin, adminHandler.List)
	authed.POST("/admins", superadmin, adminHandler.Create)
	authed.DELETE("/admins/:id", superadmin, adminHandler.Delete)

	authed.GET("/schools/:id/students", staff, studentHandler.List)
	authed.POST("/schools/:id/students", staff, studentHandler.Create)
	authed.DELETE("/students/:id", staff, studentHandler.Delete)

	if cfg.Export.Enabled {
		authed.GET("/schools/:id/roster/export", staff, exportHandler.Roster)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
