package service

import (
	"context"
	"encoding/json"
	"fmt"

	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/pkg/common"

	"github.com/redis/go-redis/v9"
)

// TaskPublisher hands an execution over to the executor.
type TaskPublisher interface {
	Publish(ctx context.Context, history *entity.TaskExecutionHistory) error
}

// NewRedisTaskPublisher returns a TaskPublisher that appends to the task execution stream.
func NewRedisTaskPublisher(redisClient *redis.Client, maxLen int64) TaskPublisher {
	return &redisTaskPublisher{redisClient: redisClient, maxLen: maxLen}
}

type redisTaskPublisher struct {
	redisClient *redis.Client
	maxLen      int64
}

func (p *redisTaskPublisher) Publish(ctx context.Context, history *entity.TaskExecutionHistory) error {
	taskPayload, err := json.Marshal(history) // Pass history object to executor
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return p.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamSchedulerTaskExecution,
		Values: map[string]interface{}{"payload": string(taskPayload)},
		MaxLen: p.maxLen,
		Approx: true,
	}).Err()
}
