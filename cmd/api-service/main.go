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

	"golang-sentiment-quant/internal/api/config"
	delivery "golang-sentiment-quant/internal/api/delivery/http"
	"golang-sentiment-quant/internal/api/delivery/ws"
	"golang-sentiment-quant/internal/api/repository"
	"golang-sentiment-quant/internal/api/service"
	"golang-sentiment-quant/pkg/common"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/metrics"
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
	Short: "Starts the sentiment, portfolio and backtest API",
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

	appLogger.Info("Starting API Service",
		logger.Field("name", cfg.App.Name),
		logger.Float64Field("sentiment_weight", cfg.Portfolio.SentimentWeight),
		logger.Float64Field("max_position_percent", cfg.Portfolio.MaxPositionPercent))

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

	registry := metrics.New("sentiment_quant")
	publisher := common.NewRedisPublisher(redisClient.Client)

	securityRepo := repository.NewSecurityRepository(db.DB)
	sentimentRepo := repository.NewSentimentRepository(db.DB)
	portfolioRepo := repository.NewPortfolioRepository(db.DB)
	backtestRepo := repository.NewBacktestRepository(db.DB)

	sentimentSvc := service.NewSentimentService(securityRepo, sentimentRepo, cfg.Portfolio, appLogger)
	portfolioSvc := service.NewPortfolioService(portfolioRepo, securityRepo, sentimentSvc, publisher, registry, cfg.Portfolio, appLogger)
	backtestSvc := service.NewBacktestService(backtestRepo, sentimentRepo, publisher, registry, cfg.Portfolio, cfg.Backtest, appLogger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "time": utils.NowUTC()})
	})
	e.GET("/metrics", echo.WrapHandler(registry.Handler()))

	api := e.Group("/api", delivery.Metrics(registry), delivery.UserID())
	delivery.NewSentimentHandler(sentimentSvc, appLogger).RegisterRoutes(api.Group("/sentiment"))
	delivery.NewPortfolioHandler(portfolioSvc, appLogger).RegisterRoutes(api.Group("/portfolio"))
	delivery.NewBacktestHandler(backtestSvc, appLogger).RegisterRoutes(api.Group("/backtest"))

	if cfg.WebSocket.Enabled {
		hub := ws.NewHub(cfg.WebSocket.OriginPatterns, cfg.WebSocket.SendBuffer, appLogger, registry)
		hub.RegisterRoutes(e.Group("/ws"))

		sub := redisClient.Subscribe(ctx, common.RedisChannelPipelineEvents)
		defer sub.Close()
		utils.GoSafe(appLogger, func() { hub.Run(ctx, sub.Channel()) })
	}

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
	rootCmd := &cobra.Command{Use: "api-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-api.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing api-service CLI: %s\n", err)
		os.Exit(1)
	}
}
