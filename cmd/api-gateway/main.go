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

	_ "github.com/tutorbase/booking-api/api/swagger"
	"github.com/tutorbase/booking-api/internal/handler"
	"github.com/tutorbase/booking-api/internal/middleware"
	"github.com/tutorbase/booking-api/internal/models"
	"github.com/tutorbase/booking-api/internal/repository"
	"github.com/tutorbase/booking-api/internal/service"
	"github.com/tutorbase/booking-api/pkg/cache"
	"github.com/tutorbase/booking-api/pkg/config"
	"github.com/tutorbase/booking-api/pkg/database"
	"github.com/tutorbase/booking-api/pkg/logger"
	corsmiddleware "github.com/tutorbase/booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tutorbase/booking-api/pkg/middleware/requestid"
	"github.com/tutorbase/booking-api/pkg/storage"
)

// @title TutorBase Booking API
// @version 1.0.0
// @description Availability windows, slot discovery, and tutoring session booking
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
	sugar := logr.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			sugar.Fatalw("failed to apply migrations", "error", err)
		}
		if version, verr := database.MigrationVersion(ctx, db); verr == nil {
			sugar.Infow("database schema ready", "version", version)
		}
	}

	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		sugar.Fatalw("invalid booking timezone", "timezone", cfg.Booking.Timezone, "error", err)
	}

	// Redis only backs the slot-preview cache. The API stays up without it;
	// previews just recompute on every request.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		sugar.Warnw("redis unavailable, slot cache disabled", "error", err)
		redisClient = nil
	}

	sessionRepo := repository.NewSessionRepository(db)
	windowRepo := repository.NewWindowRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	trialRepo := repository.NewTrialRepository(db)
	eventRepo := repository.NewBookingEventRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Booking.SlotsCacheTTL, logr, true)
	}

	// The event queue outlives the signal context so audit events recorded
	// while in-flight requests drain still persist. Stop runs after the
	// server has shut down.
	eventSvc := service.NewEventService(eventRepo, cfg.Events, logr)
	eventSvc.Start(context.Background())
	defer eventSvc.Stop()

	bookingSvc := service.NewBookingService(service.BookingServiceParams{
		Tx:            db,
		Windows:       windowRepo,
		Sessions:      sessionRepo,
		Subscriptions: subscriptionRepo,
		Trials:        trialRepo,
		Events:        eventSvc,
		Cache:         cacheSvc,
		Metrics:       metricsSvc,
		Logger:        logr,
		Config:        cfg.Booking,
		Location:      loc,
	})

	availabilitySvc := service.NewAvailabilityService(service.AvailabilityServiceParams{
		Windows:  windowRepo,
		Sessions: sessionRepo,
		Events:   eventSvc,
		Cache:    cacheSvc,
		Metrics:  metricsSvc,
		Logger:   logr,
		Config:   cfg.Booking,
		Location: loc,
	})

	trialSvc := service.NewTrialService(trialRepo, cfg.Booking, logr)

	exportStore, err := storage.NewLocalStorage(cfg.Export.ArchiveDir)
	if err != nil {
		sugar.Fatalw("failed to prepare export archive", "dir", cfg.Export.ArchiveDir, "error", err)
	}
	exportSvc := service.NewExportService(sessionRepo, exportStore, cfg.Export, loc, logr, nil, nil)
	if removed, cerr := exportSvc.CleanupArchive(0); cerr != nil {
		sugar.Warnw("export archive cleanup failed", "error", cerr)
	} else if len(removed) > 0 {
		sugar.Infow("export archive cleaned", "removed", len(removed))
	}

	sessionHandler := handler.NewSessionHandler(bookingSvc, eventSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	subscriptionHandler := handler.NewSubscriptionHandler(bookingSvc)
	trialHandler := handler.NewTrialHandler(trialSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)

	r.GET("/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		status := gin.H{"status": "ready"}
		if redisClient != nil {
			if err := redisClient.Ping(pingCtx).Err(); err != nil {
				status["cache"] = "unavailable"
			}
		}
		c.JSON(http.StatusOK, status)
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	admin := string(models.RoleAdmin)
	tutor := string(models.RoleTutor)
	guardian := string(models.RoleGuardian)

	v1 := r.Group(cfg.APIPrefix)
	v1.Use(middleware.JWT(cfg.JWT))

	v1.GET("/tutors/:id/windows", availabilityHandler.ListWindows)
	v1.PUT("/tutors/:id/windows", middleware.RBAC(admin, "SELF"), availabilityHandler.ReplaceWindows)
	v1.GET("/tutors/:id/slots", availabilityHandler.PreviewSlots)
	v1.GET("/tutors/:id/sessions", middleware.RBAC(admin, "SELF"), sessionHandler.ListByTutor)
	v1.GET("/tutors/:id/sessions/export", middleware.RBAC(admin, "SELF"), exportHandler.TutorSchedule)

	v1.POST("/sessions", middleware.RBAC(guardian, admin), sessionHandler.Book)
	v1.GET("/sessions/:id", sessionHandler.Get)
	v1.PATCH("/sessions/:id/schedule", middleware.RBAC(guardian, admin), sessionHandler.Reschedule)
	v1.DELETE("/sessions/:id", middleware.RBAC(guardian, admin), sessionHandler.Cancel)
	v1.PATCH("/sessions/:id/status", middleware.RBAC(tutor, admin), sessionHandler.SetStatus)
	v1.GET("/sessions/:id/events", middleware.RBAC(admin), sessionHandler.Events)

	v1.POST("/subscriptions", middleware.RBAC(guardian, admin), subscriptionHandler.Create)
	v1.GET("/subscriptions/:id/sessions", subscriptionHandler.Sessions)
	v1.PATCH("/subscriptions/:id/schedule", middleware.RBAC(guardian, admin), subscriptionHandler.Reschedule)
	v1.DELETE("/subscriptions/:id", middleware.RBAC(guardian, admin), subscriptionHandler.Cancel)

	v1.GET("/parents/:id/trial-eligibility", middleware.RBAC(admin, "SELF"), trialHandler.Eligibility)
	v1.GET("/parents/:id/sessions", middleware.RBAC(admin, "SELF"), sessionHandler.ListByParent)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Errorw("server shutdown failed", "error", err)
		}
	}()

	sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalw("server failed", "error", err)
	}
	sugar.Infow("server stopped")
}
