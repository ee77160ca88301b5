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

	"golang-sentiment-quant/internal/executor/config"
	"golang-sentiment-quant/internal/executor/delivery/consumer"
	"golang-sentiment-quant/internal/executor/repository"
	"golang-sentiment-quant/internal/executor/service"
	"golang-sentiment-quant/internal/executor/strategy"
	"golang-sentiment-quant/pkg/common"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/metrics"
	"golang-sentiment-quant/pkg/postgres"
	"golang-sentiment-quant/pkg/redis"
	"golang-sentiment-quant/pkg/telegram"
	"golang-sentiment-quant/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"google.golang.org/genai"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the execution service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Execution Service",
		logger.Field("name", cfg.App.Name),
		logger.IntField("max_concurrent_tasks", cfg.Executor.MaxConcurrentTasks))

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

	if err := redisClient.EnsureGroup(ctx, common.RedisStreamSchedulerTaskExecution, common.RedisStreamGroup); err != nil {
		appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err))
	}

	registry := metrics.New("sentiment_quant")
	publisher := common.NewRedisPublisher(redisClient.Client)

	telegramNotifier, err := telegram.New(cfg.Telegram)
	if err != nil {
		appLogger.Fatal("Failed to initialize Telegram notifier", logger.ErrorField(err))
	}

	jobRepo := repository.NewJobRepository(db.DB)
	historyRepo := repository.NewTaskExecutionHistoryRepository(db.DB)
	articleRepo := repository.NewArticleRepository(db.DB)
	securityRepo := repository.NewSecurityRepository(db.DB)
	sentimentRepo := repository.NewSentimentRepository(db.DB)

	classifierChain := repository.NewClassifierChain(appLogger, registry, buildClassifiers(ctx, cfg, appLogger)...)
	appLogger.Info("Classifier chain ready", logger.Field("providers", classifierChain.Providers()))

	scraper := strategy.NewNewsScraperStrategy(appLogger, articleRepo, publisher, cfg.Scraper)
	analyzer := strategy.NewSentimentAnalyzerStrategy(appLogger, articleRepo, securityRepo, classifierChain, publisher, registry)
	aggregator := strategy.NewDailyAggregatorStrategy(appLogger, sentimentRepo, publisher)
	alert := strategy.NewSentimentAlertStrategy(appLogger, sentimentRepo, telegramNotifier, redisClient.Client, publisher, cfg.Alert)

	strategies := []strategy.JobExecutionStrategy{
		strategy.NewHTTPStrategy(appLogger, cfg.Executor.HTTPJobTimeout),
		scraper,
		analyzer,
		aggregator,
		alert,
		strategy.NewSentimentPipelineStrategy(appLogger, telegramNotifier, scraper, analyzer, aggregator, alert),
	}

	executorSvc := service.NewExecutorService(cfg, redisClient.Client, jobRepo, historyRepo, appLogger, telegramNotifier, registry, strategies)

	redisConsumer := consumer.NewRedisConsumer(cfg, executorSvc, appLogger)
	redisConsumer.Start(ctx)

	var e *echo.Echo
	if cfg.Executor.MetricsPort > 0 {
		e = echo.New()
		e.HideBanner = true
		e.GET("/health", func(c echo.Context) error {
			return c.JSON(http.StatusOK, echo.Map{"status": "ok", "time": utils.NowUTC()})
		})
		e.GET("/metrics", echo.WrapHandler(registry.Handler()))
		utils.GoSafe(appLogger, func() {
			addr := fmt.Sprintf(":%d", cfg.Executor.MetricsPort)
			if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
				appLogger.Error("Metrics server failed", logger.ErrorField(err))
			}
		})
	}

	appLogger.Info("Execution service started. Waiting for tasks...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down execution service...")
	cancel()
	redisConsumer.Stop()
	if e != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = e.Shutdown(shutdownCtx)
	}
	appLogger.Info("Execution service stopped.")
}

// buildClassifiers returns the enabled remote classifiers in the configured order.
func buildClassifiers(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) []repository.Classifier {
	var classifiers []repository.Classifier
	for _, name := range cfg.Classifier.Providers {
		switch name {
		case "finbert":
			if !cfg.FinBERT.Enabled {
				continue
			}
			classifiers = append(classifiers, repository.NewFinBERTClassifier(cfg.FinBERT, appLogger))
		case "gemini":
			if !cfg.Gemini.Enabled {
				continue
			}
			genAiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
				APIKey:  cfg.Gemini.APIKey,
				Backend: genai.BackendGeminiAPI,
			})
			if err != nil {
				appLogger.Fatal("Failed to initialize Gemini AI client", logger.ErrorField(err))
			}
			classifiers = append(classifiers, repository.NewGeminiClassifier(cfg.Gemini, appLogger, genAiClient))
		case "keyword":
			// always appended by the chain
		default:
			appLogger.Warn("Unknown classifier provider ignored", logger.StringField("provider", name))
		}
	}
	return classifiers
}

func main() {
	rootCmd := &cobra.Command{Use: "execution-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-executor.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing execution-service CLI: %s\n", err)
		os.Exit(1)
	}
}
