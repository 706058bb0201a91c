package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/univer-hq/timetable-api/api/swagger"
	"github.com/univer-hq/timetable-api/internal/dto"
	"github.com/univer-hq/timetable-api/internal/handler"
	"github.com/univer-hq/timetable-api/internal/middleware"
	"github.com/univer-hq/timetable-api/internal/repository"
	"github.com/univer-hq/timetable-api/internal/service"
	"github.com/univer-hq/timetable-api/pkg/cache"
	"github.com/univer-hq/timetable-api/pkg/config"
	"github.com/univer-hq/timetable-api/pkg/database"
	appErrors "github.com/univer-hq/timetable-api/pkg/errors"
	"github.com/univer-hq/timetable-api/pkg/jobs"
	"github.com/univer-hq/timetable-api/pkg/logger"
	corsmiddleware "github.com/univer-hq/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/univer-hq/timetable-api/pkg/middleware/requestid"
)

// @title Univer Timetable API
// @version 1.0.0
// @description Greedy constraint-based university timetable generation service
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
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Scheduler.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, timetable cache disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	streamRepo := repository.NewStreamRepository(db)
	weekdayRepo := repository.NewWeekdayRepository(db)
	timeSlotRepo := repository.NewTimeSlotRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	errorRepo := repository.NewScheduleErrorRepository(db)
	lessonLogRepo := repository.NewLessonLogRepository(db)

	timetableSvc := service.NewTimetableService(timetableRepo, errorRepo, redisClient, cfg.Scheduler.TimetableTTL, logr)
	generatorSvc := service.NewGeneratorService(
		streamRepo,
		weekdayRepo,
		timeSlotRepo,
		roomRepo,
		availabilityRepo,
		timetableRepo,
		errorRepo,
		db,
		timetableSvc,
		metricsSvc,
		validate,
		logr,
		service.GeneratorConfig{
			Shift1Levels: cfg.Scheduler.Shift1Levels,
			Shift2Levels: cfg.Scheduler.Shift2Levels,
		},
	)
	journalSvc := service.NewJournalService(timetableRepo, lessonLogRepo, db, validate, logr)

	journalQueue := jobs.NewQueue("journal", func(ctx context.Context, job jobs.Job) error {
		req, ok := job.Payload.(dto.GenerateJournalRequest)
		if !ok {
			return appErrors.Clone(appErrors.ErrInternal, "unexpected journal job payload")
		}
		created, err := journalSvc.Generate(ctx, req)
		if err != nil {
			return err
		}
		metricsSvc.CountJournalEntries(created)
		return nil
	}, jobs.QueueConfig{
		Workers:    cfg.Journal.Workers,
		MaxRetries: cfg.Journal.MaxRetries,
		RetryDelay: cfg.Journal.RetryDelay,
		Logger:     logr,
	})
	journalQueue.Start(context.Background())
	defer journalQueue.Stop()

	generatorHandler := handler.NewGeneratorHandler(generatorSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	journalHandler := handler.NewJournalHandler(journalQueue, validate)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/timetable/generate", generatorHandler.Generate)
		api.POST("/timetable/commit", generatorHandler.Commit)
		api.GET("/timetable", timetableHandler.List)
		api.GET("/timetable/errors", timetableHandler.ListErrors)
		api.POST("/journal/generate", journalHandler.Generate)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
