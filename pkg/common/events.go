package common

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types published on RedisChannelPipelineEvents.
const (
	EventNewsScraped       = "news_scraped"
	EventSentimentAnalyzed = "sentiment_analyzed"
	EventDailyAggregated   = "daily_aggregated"
	EventSentimentAlert    = "sentiment_alert"
	EventRebalanced        = "portfolio_rebalanced"
	EventBacktestCompleted = "backtest_completed"
)

// PipelineEvent is the payload broadcast to websocket subscribers.
type PipelineEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Publisher sends pipeline events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data map[string]interface{}) error
}

type redisPublisher struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisPublisher returns a Publisher backed by Redis pub/sub.
func NewRedisPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client, now: func() time.Time { return time.Now().UTC() }}
}

func (p *redisPublisher) Publish(ctx context.Context, eventType string, data map[string]interface{}) error {
	payload, err := json.Marshal(PipelineEvent{Type: eventType, Data: data, OccurredAt: p.now()})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, RedisChannelPipelineEvents, payload).Err()
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, map[string]interface{}) error { return nil }
