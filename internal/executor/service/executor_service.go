package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/internal/executor/config"
	"golang-sentiment-quant/internal/executor/repository"
	"golang-sentiment-quant/internal/executor/strategy"
	"golang-sentiment-quant/pkg/common"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/metrics"
	"golang-sentiment-quant/pkg/telegram"
	"golang-sentiment-quant/pkg/utils"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// recordTimeout bounds the writes that settle a finished task: the history row and the stream ack.
// They run detached from the task context, which may already be done.
const recordTimeout = 10 * time.Second

// ExecutorService manages the execution of tasks.
type ExecutorService interface {
	ProcessTask(ctx context.Context)
	ProcessRetries(ctx context.Context)
}

// NewExecutorService creates a new ExecutorService.
func NewExecutorService(
	cfg *config.Config,
	redisClient *redis.Client,
	jobRepo repository.JobRepository,
	historyRepo repository.TaskExecutionHistoryRepository,
	log *logger.Logger,
	telegramNotifier telegram.Notifier,
	registry *metrics.Registry,
	strategies []strategy.JobExecutionStrategy,
) ExecutorService {
	strategyMap := make(map[entity.JobType]strategy.JobExecutionStrategy)
	for _, s := range strategies {
		strategyMap[s.GetType()] = s
	}

	return &executorService{
		cfg:                cfg,
		redisClient:        redisClient,
		jobRepo:            jobRepo,
		historyRepo:        historyRepo,
		logger:             log,
		telegramNotifier:   telegramNotifier,
		metrics:            registry,
		executorStrategies: strategyMap,
		now:                utils.NowUTC,
	}
}

type executorService struct {
	cfg                *config.Config
	redisClient        *redis.Client
	jobRepo            repository.JobRepository
	historyRepo        repository.TaskExecutionHistoryRepository
	logger             *logger.Logger
	telegramNotifier   telegram.Notifier
	metrics            *metrics.Registry
	executorStrategies map[entity.JobType]strategy.JobExecutionStrategy
	now                func() time.Time
}

// ProcessTask dequeues and executes a single task. The message stays pending until the
// execution has been recorded, so a crash mid-run is picked up again by ProcessRetries.
func (s *executorService) ProcessTask(ctx context.Context) {
	streams, err := s.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamSchedulerTaskExecution, ">"}, // ">" means only new messages
		Count:    1,
		Block:    2 * time.Second, // Block for 2 seconds to allow graceful shutdown
	}).Result()

	if err != nil {
		// Ignore context cancellation and timeout errors, as they are expected during shutdown or idle periods.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return
		}
		s.logger.Error("Failed to read from stream", logger.ErrorField(err))
		return
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return
	}

	message := streams[0].Messages[0]
	if err := s.handleMessage(ctx, message); err != nil {
		s.logger.Error("Task left pending for retry", logger.ErrorField(err), logger.StringField("message_id", message.ID))
		return
	}
	if err := s.ackNDel(ctx, message.ID); err != nil {
		s.logger.Error("Failed to acknowledge task", logger.ErrorField(err), logger.StringField("message_id", message.ID))
	}
}

// ProcessRetries claims one task that has been pending longer than the max idle duration
// and runs it again, or gives up on it once the delivery count reaches the max retry.
func (s *executorService) ProcessRetries(ctx context.Context) {
	msgs, _, err := s.redisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   common.RedisStreamSchedulerTaskExecution,
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer + "-retry",
		MinIdle:  s.cfg.Executor.RedisStreamTaskMaxIdleDuration,
		Start:    "0",
		Count:    1,
	}).Result()
	if err != nil {
		s.logger.Error("Failed to claim pending task", logger.ErrorField(err))
		return
	}

	if len(msgs) == 0 {
		s.logger.Debug("Retry no pending messages found", logger.StringField("stream", common.RedisStreamSchedulerTaskExecution))
		return
	}

	msg := msgs[0]
	pendingInfo, err := s.redisClient.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: common.RedisStreamSchedulerTaskExecution,
		Group:  common.RedisStreamGroup,
		Start:  msg.ID,
		End:    msg.ID,
		Count:  1,
	}).Result()
	if err != nil {
		s.logger.Error("Failed to get pending info", logger.ErrorField(err))
		return
	}
	if len(pendingInfo) == 0 {
		s.logger.Warn("pending msg not found, but exist on xautoclaim",
			logger.StringField("stream", common.RedisStreamSchedulerTaskExecution),
			logger.StringField("message_id", msg.ID))
		return
	}

	if pendingInfo[0].RetryCount >= int64(s.cfg.Executor.RedisStreamTaskMaxRetry) {
		payload, _ := msg.Values["payload"].(string)
		s.logger.Error("pending msg retry count exceeded",
			logger.StringField("message_id", msg.ID),
			logger.IntField("retry_count", int(pendingInfo[0].RetryCount)),
			logger.IntField("max_retry", s.cfg.Executor.RedisStreamTaskMaxRetry))

		alert := telegram.FormatErrorAlertMessage(s.now(), "Task retry count exceeded",
			fmt.Sprintf("message %s was delivered %d times", msg.ID, pendingInfo[0].RetryCount),
			utils.Truncate(payload, 500))
		if err := s.telegramNotifier.SendMessage(alert); err != nil {
			s.logger.Error("Failed to send telegram message retry exceeded", logger.ErrorField(err))
		}
		if err := s.ackNDel(ctx, msg.ID); err != nil {
			s.logger.Error("Failed to acknowledge abandoned task", logger.ErrorField(err), logger.StringField("message_id", msg.ID))
		}
		return
	}

	s.logger.Info("Retrying pending task", logger.StringField("message_id", msg.ID), logger.IntField("retry_count", int(pendingInfo[0].RetryCount)))
	if err := s.handleMessage(ctx, msg); err != nil {
		s.logger.Error("Retry failed, task left pending", logger.ErrorField(err), logger.StringField("message_id", msg.ID))
		return
	}
	if err := s.ackNDel(ctx, msg.ID); err != nil {
		s.logger.Error("Failed to acknowledge retried task", logger.ErrorField(err), logger.StringField("message_id", msg.ID))
	}
}

// handleMessage returns an error only when the task should stay pending. Malformed messages
// and unknown jobs are dropped; a failing strategy is a finished execution.
func (s *executorService) handleMessage(ctx context.Context, message redis.XMessage) error {
	// The task data is expected to be a JSON string in the 'payload' field.
	taskData, ok := message.Values["payload"].(string)
	if !ok {
		s.logger.Error("field 'payload' not found or not a string in stream message", logger.StringField("message_id", message.ID))
		return nil
	}

	var taskHistory entity.TaskExecutionHistory
	if err := json.Unmarshal([]byte(taskData), &taskHistory); err != nil {
		s.logger.Error("Failed to unmarshal task data", logger.ErrorField(err), logger.StringField("message_id", message.ID))
		return nil
	}

	s.logger.Info("Processing job", logger.Field("job_id", taskHistory.JobID), logger.Field("history_id", taskHistory.ID))

	job, err := s.jobRepo.FindForExecution(ctx, taskHistory.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("Job not found, dropping task", logger.Field("job_id", taskHistory.JobID))
			return nil
		}
		return fmt.Errorf("failed to find job %d: %w", taskHistory.JobID, err)
	}

	return s.executeAndUpdate(ctx, job, &taskHistory)
}

func (s *executorService) executeAndUpdate(ctx context.Context, job *entity.Job, history *entity.TaskExecutionHistory) error {
	timeout := time.Duration(job.Timeout) * time.Second
	if timeout <= 0 {
		timeout = s.cfg.Executor.RedisStreamTaskExecutionTimeout
	}
	// The job's own timeout governs the run. The caller's deadline is dropped; only cancellation
	// (service shutdown) is passed through.
	executionCtx, cancelExec := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancelExec()
	stopPropagation := context.AfterFunc(ctx, func() {
		if errors.Is(ctx.Err(), context.Canceled) {
			cancelExec()
		}
	})
	defer stopPropagation()

	started := s.now()
	jobStrategy, ok := s.executorStrategies[job.Type]
	if !ok {
		err := fmt.Errorf("no executor strategy found for task type: %s", job.Type)
		s.logger.Error("Job execution failed", logger.ErrorField(err), logger.Field("job_id", job.ID))
		history.Status = entity.StatusFailed
		history.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
	} else {
		output, err := jobStrategy.Execute(executionCtx, job)
		if err != nil {
			s.logger.Error("Job execution failed", logger.ErrorField(err), logger.Field("job_id", job.ID), logger.IntField("history_id", int(history.ID)))
			history.Status = entity.StatusFailed
			history.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		} else {
			s.logger.Info("Job executed successfully", logger.Field("job_id", job.ID), logger.IntField("history_id", int(history.ID)))
			history.Status = entity.StatusCompleted
		}
		history.Output = sql.NullString{String: output, Valid: output != ""}
	}

	history.CompletedAt = sql.NullTime{Time: s.now(), Valid: true}
	s.metrics.JobExecuted(string(job.Type), string(history.Status))

	writeCtx, cancelWrite := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancelWrite()
	if err := s.historyRepo.MarkFinished(writeCtx, history); err != nil {
		s.logger.Error("Failed to update task history", logger.ErrorField(err), logger.Field("history_id", history.ID))
		return fmt.Errorf("failed to update task history %d: %w", history.ID, err)
	}
	s.logger.Info("Job execution completed",
		logger.Field("job_id", job.ID),
		logger.IntField("history_id", int(history.ID)),
		logger.StringField("status", string(history.Status)),
		logger.DurationField("duration", s.now().Sub(started)))
	return nil
}

func (s *executorService) ackNDel(ctx context.Context, messageID string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.redisClient.XAck(ctx, common.RedisStreamSchedulerTaskExecution, common.RedisStreamGroup, messageID).Err(); err != nil {
		return err
	}
	return s.redisClient.XDel(ctx, common.RedisStreamSchedulerTaskExecution, messageID).Err()
}
