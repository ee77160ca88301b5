package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-sentiment-quant/internal/scheduler/config"
	delivery "golang-sentiment-quant/internal/scheduler/delivery/http"
	"golang-sentiment-quant/internal/scheduler/repository"
	"golang-sentiment-quant/internal/scheduler/service"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/postgres"
	"golang-sentiment-quant/pkg/redis"
	"golang-sentiment-quant/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the job scheduler and its management API",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Scheduling Service",
		logger.Field("name", cfg.App.Name),
		logger.DurationField("polling_interval", cfg.Scheduler.PollingInterval))

	db, err := postgres.NewDB(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	jobRepo := repository.NewJobRepository(db.DB)
	scheduleRepo := repository.NewTaskScheduleRepository(db.DB)
	historyRepo := repository.NewTaskExecutionHistoryRepository(db.DB)

	taskPublisher := service.NewRedisTaskPublisher(redisClient.Client, cfg.Redis.StreamMaxLen)
	schedulerSvc := service.NewSchedulerService(jobRepo, scheduleRepo, historyRepo, taskPublisher, appLogger, cfg.Scheduler.PollingInterval)

	utils.GoSafe(appLogger, func() { schedulerSvc.Start(ctx) })

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			appLogger.Debug("request",
				logger.StringField("method", v.Method),
				logger.StringField("uri", v.URI),
				logger.IntField("status", v.Status),
				logger.DurationField("latency", v.Latency))
			return nil
		},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "time": utils.NowUTC()})
	})

	v1 := e.Group("/api/v1")
	jobs := v1.Group("/jobs")
	historyHandler := delivery.NewExecutionHistoryHandler(service.NewExecutionHistoryService(historyRepo, appLogger), appLogger)

	delivery.NewJobHandler(service.NewJobService(jobRepo, appLogger, cfg.Scheduler.DefaultTimeout), schedulerSvc, appLogger).RegisterRoutes(jobs)
	historyHandler.RegisterJobRoutes(jobs)
	historyHandler.RegisterRoutes(v1.Group("/executions"))
	delivery.NewScheduleHandler(service.NewScheduleService(scheduleRepo, jobRepo, appLogger), appLogger).RegisterRoutes(v1.Group("/schedules"))

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop()
		}
	}()

	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func main() {
	rootCmd := &cobra.Command{Use: "scheduling-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-scheduler.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing scheduling-service CLI: %s\n", err)
		os.Exit(1)
	}
}
