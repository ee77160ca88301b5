package consumer

import (
	"context"
	"sync"
	"time"

	"golang-sentiment-quant/internal/executor/config"
	"golang-sentiment-quant/internal/executor/service"
	"golang-sentiment-quant/pkg/common"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/utils"
)

// RedisConsumer manages the consumption of tasks from a Redis stream.
type RedisConsumer struct {
	cfg             *config.Config
	executorService service.ExecutorService
	logger          *logger.Logger
	stopChan        chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

// NewRedisConsumer creates a new RedisConsumer.
func NewRedisConsumer(cfg *config.Config, executorService service.ExecutorService, log *logger.Logger) *RedisConsumer {
	return &RedisConsumer{
		cfg:             cfg,
		executorService: executorService,
		logger:          log,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the consumer's task processing loops.
func (c *RedisConsumer) Start(ctx context.Context) {
	c.logger.Info("Redis consumer started")
	workers := c.cfg.Executor.MaxConcurrentTasks
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		c.RegisterStreamHandler(ctx, c.executorService.ProcessTask, common.RedisStreamSchedulerTaskExecution, c.cfg.Executor.RedisStreamTaskExecutionTimeout)
	}

	//handle retry
	c.RegisterTickerHandler(ctx, c.executorService.ProcessRetries, c.cfg.Executor.RedisStreamTaskRetryInterval, c.cfg.Executor.RedisStreamTaskExecutionTimeout, common.RedisStreamSchedulerTaskExecution+"-retry")
}

func (c *RedisConsumer) RegisterStreamHandler(ctx context.Context, fn func(ctx context.Context), streamName string, timeout time.Duration) {
	c.logger.Info("Registering stream handler", logger.StringField("stream", streamName))
	c.wg.Add(1)
	utils.GoSafe(c.logger, func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Redis consumer stopping due to context cancellation")
				return
			case <-c.stopChan:
				c.logger.Info("Redis consumer stopping")
				return
			default:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			}
		}
	})
}

func (c *RedisConsumer) RegisterTickerHandler(ctx context.Context, fn func(ctx context.Context), interval time.Duration, timeout time.Duration, name string) {
	c.logger.Info("Registering ticker handler",
		logger.StringField("name", name),
		logger.DurationField("interval", interval),
		logger.DurationField("timeout", timeout))
	c.wg.Add(1)
	utils.GoSafe(c.logger, func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			case <-ctx.Done():
				c.logger.Info("Ticker handler stopping due to context cancellation", logger.StringField("name", name))
				return
			case <-c.stopChan:
				c.logger.Info("Ticker handler stopping", logger.StringField("name", name))
				return
			}
		}
	})
}

// Stop gracefully shuts down the consumer.
func (c *RedisConsumer) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
	c.logger.Info("Redis consumer stopped")
}
