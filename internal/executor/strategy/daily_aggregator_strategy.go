package strategy

import (
	"context"
	"fmt"
	"time"

	"golang-sentiment-quant/internal/analytics"
	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/internal/executor/dto"
	"golang-sentiment-quant/internal/executor/repository"
	"golang-sentiment-quant/pkg/common"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/utils"
)

// DailyAggregatorStrategy folds one day of sentiment scores into per-security daily aggregates.
type DailyAggregatorStrategy struct {
	logger        *logger.Logger
	sentimentRepo repository.SentimentRepository
	publisher     common.Publisher
	now           func() time.Time
}

// NewDailyAggregatorStrategy creates a new DailyAggregatorStrategy.
func NewDailyAggregatorStrategy(log *logger.Logger, sentimentRepo repository.SentimentRepository, publisher common.Publisher) *DailyAggregatorStrategy {
	if publisher == nil {
		publisher = common.NopPublisher{}
	}
	return &DailyAggregatorStrategy{
		logger:        log,
		sentimentRepo: sentimentRepo,
		publisher:     publisher,
		now:           utils.NowUTC,
	}
}

// GetType returns the job type this strategy handles.
func (s *DailyAggregatorStrategy) GetType() entity.JobType {
	return entity.JobTypeDailySentimentAggregator
}

// Execute aggregates the payload date, or today when none is given. Re-running a day overwrites its rows.
func (s *DailyAggregatorStrategy) Execute(ctx context.Context, job *entity.Job) (string, error) {
	var payload dto.DailyAggregatorPayload
	if err := decodePayload(job, &payload); err != nil {
		s.logger.Error("Failed to unmarshal job payload", logger.ErrorField(err), logger.Field("job_id", job.ID))
		return "", err
	}

	day, err := resolveDay(payload.Date, s.now)
	if err != nil {
		return "", err
	}
	result := dto.AggregateResult{Date: utils.FormatDate(day)}

	scores, err := s.sentimentRepo.FindScoresBetween(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		s.logger.Error("Failed to get sentiment scores", logger.ErrorField(err), logger.StringField("date", result.Date))
		return "", fmt.Errorf("failed to get sentiment scores: %w", err)
	}
	result.Scores = len(scores)

	if len(scores) == 0 {
		s.logger.Info("No sentiment scores to aggregate", logger.StringField("date", result.Date))
		result.Status = SKIPPED
		return marshalResult(result)
	}

	labeled := make([]analytics.LabeledScore, 0, len(scores))
	for _, sc := range scores {
		labeled = append(labeled, analytics.LabeledScore{
			SecurityID: sc.SecurityID,
			Label:      analytics.Label(sc.Label),
			RawScore:   sc.RawScore,
		})
	}

	folds := analytics.FoldDaily(labeled)
	rows := make([]entity.DailySentimentAggregate, 0, len(folds))
	for _, f := range folds {
		rows = append(rows, entity.DailySentimentAggregate{
			SecurityID:        f.SecurityID,
			Date:              day,
			AvgSentiment:      f.AvgSentiment,
			WeightedSentiment: f.WeightedSentiment,
			ArticleCount:      f.ArticleCount,
			PositiveCount:     f.PositiveCount,
			NegativeCount:     f.NegativeCount,
			NeutralCount:      f.NeutralCount,
		})
	}

	if err := s.sentimentRepo.UpsertDaily(ctx, rows); err != nil {
		s.logger.Error("Failed to upsert daily sentiment", logger.ErrorField(err), logger.StringField("date", result.Date))
		return "", fmt.Errorf("failed to upsert daily sentiment: %w", err)
	}
	result.Securities = len(rows)
	result.Status = SUCCESS

	s.logger.Info("Daily sentiment aggregated",
		logger.StringField("date", result.Date),
		logger.IntField("securities", result.Securities),
		logger.IntField("scores", result.Scores))

	if err := s.publisher.Publish(ctx, common.EventDailyAggregated, map[string]interface{}{
		"date":       result.Date,
		"securities": result.Securities,
	}); err != nil {
		s.logger.Warn("Failed to publish pipeline event", logger.ErrorField(err))
	}

	return marshalResult(result)
}

// resolveDay parses a YYYY-MM-DD date, defaulting to the current UTC day.
func resolveDay(date string, now func() time.Time) (time.Time, error) {
	if date == "" {
		return utils.StartOfDay(now()), nil
	}
	return utils.ParseDate(date)
}
