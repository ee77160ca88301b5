package strategy

import (
	"context"
	"fmt"
	"time"

	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/internal/executor/config"
	"golang-sentiment-quant/internal/executor/dto"
	"golang-sentiment-quant/internal/executor/repository"
	"golang-sentiment-quant/pkg/common"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/telegram"
	"golang-sentiment-quant/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// SentimentAlertStrategy notifies about securities whose daily weighted sentiment is extreme.
type SentimentAlertStrategy struct {
	logger           *logger.Logger
	sentimentRepo    repository.SentimentRepository
	telegramNotifier telegram.Notifier
	redisClient      *redis.Client
	publisher        common.Publisher
	cfg              config.Alert
	now              func() time.Time
}

// NewSentimentAlertStrategy creates a new instance of SentimentAlertStrategy.
func NewSentimentAlertStrategy(
	log *logger.Logger,
	sentimentRepo repository.SentimentRepository,
	telegramNotifier telegram.Notifier,
	redisClient *redis.Client,
	publisher common.Publisher,
	cfg config.Alert,
) *SentimentAlertStrategy {
	if publisher == nil {
		publisher = common.NopPublisher{}
	}
	return &SentimentAlertStrategy{
		logger:           log,
		sentimentRepo:    sentimentRepo,
		telegramNotifier: telegramNotifier,
		redisClient:      redisClient,
		publisher:        publisher,
		cfg:              cfg,
		now:              utils.NowUTC,
	}
}

// GetType returns the job type this strategy handles.
func (s *SentimentAlertStrategy) GetType() entity.JobType {
	return entity.JobTypeSentimentAlert
}

// Execute sends at most one alert per security, alert type and day.
func (s *SentimentAlertStrategy) Execute(ctx context.Context, job *entity.Job) (string, error) {
	payload := dto.SentimentAlertPayload{Threshold: s.cfg.Threshold}
	if err := decodePayload(job, &payload); err != nil {
		s.logger.Error("Failed to unmarshal job payload", logger.ErrorField(err), logger.Field("job_id", job.ID))
		return "", err
	}
	if payload.Threshold <= 0 {
		payload.Threshold = s.cfg.Threshold
	}

	day, err := resolveDay(payload.Date, s.now)
	if err != nil {
		return "", err
	}
	result := dto.AlertResult{Date: utils.FormatDate(day), Sent: []string{}, Skipped: []string{}}

	movers, err := s.sentimentRepo.FindMovers(ctx, day, payload.Threshold)
	if err != nil {
		s.logger.Error("Failed to get sentiment movers", logger.ErrorField(err), logger.StringField("date", result.Date))
		return "", fmt.Errorf("failed to get sentiment movers: %w", err)
	}

	for _, m := range movers {
		alertType := telegram.AlertTypeFor(m.WeightedSentiment)
		sent, err := s.sendAlert(ctx, m, alertType, day)
		switch {
		case err != nil:
			s.logger.Error("Failed to send sentiment alert", logger.ErrorField(err), logger.StringField("symbol", m.Symbol))
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", m.Symbol, err.Error()))
		case !sent:
			s.logger.Debug("Sentiment alert already sent today", logger.StringField("symbol", m.Symbol), logger.StringField("alert_type", string(alertType)))
			result.Skipped = append(result.Skipped, m.Symbol)
		default:
			result.Sent = append(result.Sent, m.Symbol)
			if err := s.publisher.Publish(ctx, common.EventSentimentAlert, map[string]interface{}{
				"symbol":             m.Symbol,
				"alert_type":         string(alertType),
				"weighted_sentiment": m.WeightedSentiment,
				"date":               result.Date,
			}); err != nil {
				s.logger.Warn("Failed to publish pipeline event", logger.ErrorField(err))
			}
		}
	}

	switch {
	case len(result.Errors) > 0:
		result.Status = FAILED
	case len(result.Sent) == 0:
		result.Status = SKIPPED
	default:
		result.Status = SUCCESS
	}

	output, err := marshalResult(result)
	if err != nil {
		return "", err
	}
	if len(result.Errors) > 0 && len(result.Sent) == 0 {
		return output, fmt.Errorf("failed to send %d sentiment alerts", len(result.Errors))
	}
	return output, nil
}

// sendAlert claims the per-day de-duplication key first and releases it again if delivery fails.
func (s *SentimentAlertStrategy) sendAlert(ctx context.Context, m repository.DailyMover, alertType telegram.AlertType, day time.Time) (bool, error) {
	key := alertKey(alertType, m.Symbol, day)
	claimed, err := s.redisClient.SetNX(ctx, key, m.WeightedSentiment, s.cfg.DedupeTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim alert key: %w", err)
	}
	if !claimed {
		return false, nil
	}

	message := telegram.FormatSentimentAlert(alertType, m.Symbol, m.Name, m.WeightedSentiment, m.ArticleCount, day)
	if err := s.telegramNotifier.SendMessage(message); err != nil {
		if delErr := s.redisClient.Del(ctx, key).Err(); delErr != nil {
			s.logger.Error("Failed to release alert key", logger.ErrorField(delErr), logger.StringField("key", key))
		}
		return false, fmt.Errorf("failed to send telegram message: %w", err)
	}
	return true, nil
}

func alertKey(alertType telegram.AlertType, symbol string, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s", common.RedisKeySentimentAlert, alertType, symbol, utils.FormatDate(day))
}
