package strategy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang-sentiment-quant/internal/analytics"
	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/internal/executor/dto"
	"golang-sentiment-quant/internal/executor/repository"
	"golang-sentiment-quant/pkg/common"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/metrics"
	"golang-sentiment-quant/pkg/utils"
)

// DefaultAnalyzerBatchSize is the number of unprocessed articles scored per run.
const DefaultAnalyzerBatchSize = 50

// SentimentAnalyzerStrategy scores unprocessed articles and tags the securities they mention.
type SentimentAnalyzerStrategy struct {
	logger       *logger.Logger
	articleRepo  repository.ArticleRepository
	securityRepo repository.SecurityRepository
	classifier   *repository.ClassifierChain
	publisher    common.Publisher
	metrics      *metrics.Registry
	now          func() time.Time
}

// NewSentimentAnalyzerStrategy creates a new SentimentAnalyzerStrategy.
func NewSentimentAnalyzerStrategy(
	log *logger.Logger,
	articleRepo repository.ArticleRepository,
	securityRepo repository.SecurityRepository,
	classifier *repository.ClassifierChain,
	publisher common.Publisher,
	registry *metrics.Registry,
) *SentimentAnalyzerStrategy {
	if publisher == nil {
		publisher = common.NopPublisher{}
	}
	return &SentimentAnalyzerStrategy{
		logger:       log,
		articleRepo:  articleRepo,
		securityRepo: securityRepo,
		classifier:   classifier,
		publisher:    publisher,
		metrics:      registry,
		now:          utils.NowUTC,
	}
}

// GetType returns the job type this strategy handles.
func (s *SentimentAnalyzerStrategy) GetType() entity.JobType {
	return entity.JobTypeSentimentAnalyzer
}

// Execute classifies one batch of articles. A failing article is logged and left unprocessed for the next run.
func (s *SentimentAnalyzerStrategy) Execute(ctx context.Context, job *entity.Job) (string, error) {
	payload := dto.SentimentAnalyzerPayload{BatchSize: DefaultAnalyzerBatchSize}
	if err := decodePayload(job, &payload); err != nil {
		s.logger.Error("Failed to unmarshal job payload", logger.ErrorField(err), logger.Field("job_id", job.ID))
		return "", err
	}
	if payload.BatchSize <= 0 {
		payload.BatchSize = DefaultAnalyzerBatchSize
	}

	securities, err := s.securityRepo.FindActive(ctx)
	if err != nil {
		s.logger.Error("Failed to get securities", logger.ErrorField(err))
		return "", fmt.Errorf("failed to get securities: %w", err)
	}
	tagger := analytics.NewTagger(toTaggedSecurities(securities))

	articles, err := s.articleRepo.FindUnprocessed(ctx, payload.BatchSize)
	if err != nil {
		s.logger.Error("Failed to get unprocessed articles", logger.ErrorField(err))
		return "", fmt.Errorf("failed to get unprocessed articles: %w", err)
	}

	result := dto.AnalyzeResult{Providers: map[string]int{}}
	if len(articles) == 0 {
		result.Status = SKIPPED
		return marshalResult(result)
	}

	for _, article := range articles {
		if !utils.ShouldContinue(ctx) {
			break
		}

		text := articleText(article)
		classification, provider := s.classifier.Classify(ctx, text)
		analyzedAt := s.now()

		mentioned := tagger.Tag(text)
		scores := make([]entity.SentimentScore, 0, len(mentioned))
		for _, sec := range mentioned {
			scores = append(scores, entity.SentimentScore{
				SecurityID: sec.ID,
				Label:      entity.SentimentLabel(classification.Label),
				Confidence: classification.Confidence,
				RawScore:   classification.RawScore,
				AnalyzedAt: analyzedAt,
			})
		}

		if err := s.articleRepo.SaveScores(ctx, article.ID, scores); err != nil {
			s.logger.Error("Failed to save article scores", logger.ErrorField(err), logger.Field("article_id", article.ID))
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("article %d: %s", article.ID, err.Error()))
			continue
		}

		s.logger.Debug("Article scored",
			logger.Field("article_id", article.ID),
			logger.StringField("provider", provider),
			logger.StringField("label", string(classification.Label)),
			logger.Float64Field("raw_score", classification.RawScore),
			logger.IntField("mentions", len(mentioned)))

		result.Processed++
		result.Scores += len(scores)
		result.Providers[provider]++
	}

	s.metrics.ArticlesScored(result.Processed)

	if result.Processed == 0 {
		result.Status = FAILED
	} else {
		result.Status = SUCCESS
	}

	s.logger.Info("Sentiment analysis finished",
		logger.Field("job_id", job.ID),
		logger.IntField("processed", result.Processed),
		logger.IntField("scores", result.Scores),
		logger.IntField("failed", result.Failed))

	if err := s.publisher.Publish(ctx, common.EventSentimentAnalyzed, map[string]interface{}{
		"processed": result.Processed,
		"scores":    result.Scores,
	}); err != nil {
		s.logger.Warn("Failed to publish pipeline event", logger.ErrorField(err))
	}

	output, err := marshalResult(result)
	if err != nil {
		return "", err
	}
	if result.Status == FAILED {
		return output, fmt.Errorf("no article of %d could be scored", len(articles))
	}
	return output, nil
}

// articleText is what gets classified and tagged: the title, followed by the body when present.
func articleText(a entity.Article) string {
	content := strings.TrimSpace(a.Content)
	if content == "" {
		return a.Title
	}
	return a.Title + ". " + content
}

func toTaggedSecurities(securities []entity.Security) []analytics.TaggedSecurity {
	out := make([]analytics.TaggedSecurity, 0, len(securities))
	for _, s := range securities {
		out = append(out, analytics.TaggedSecurity{ID: s.ID, Symbol: s.Symbol, Keywords: s.Keywords})
	}
	return out
}
