package strategy

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/internal/executor/dto"
	"golang-sentiment-quant/internal/executor/repository"
	"golang-sentiment-quant/internal/testutil"
	"golang-sentiment-quant/pkg/common"
	"golang-sentiment-quant/pkg/logger"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedTrackedSecurities(t *testing.T, db *gorm.DB) (apple, tesla entity.Security) {
	t.Helper()
	apple = entity.Security{Symbol: "AAPL", Name: "Apple Inc.", Keywords: pq.StringArray{"apple", "iphone"}, IsActive: true}
	tesla = entity.Security{Symbol: "TSLA", Name: "Tesla Inc.", Keywords: pq.StringArray{"tesla", "elon musk"}, IsActive: true}
	require.NoError(t, db.Create(&apple).Error)
	require.NoError(t, db.Create(&tesla).Error)
	return apple, tesla
}

func newTestAnalyzer(db *gorm.DB, publisher common.Publisher) *SentimentAnalyzerStrategy {
	s := NewSentimentAnalyzerStrategy(
		logger.NewNop(),
		repository.NewArticleRepository(db),
		repository.NewSecurityRepository(db),
		repository.NewClassifierChain(logger.NewNop(), nil),
		publisher,
		nil,
	)
	s.now = fixedClock
	return s
}

func TestSentimentAnalyzerStrategyScoresAndTags(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	apple, tesla := seedTrackedSecurities(t, db)

	articles := []entity.Article{
		{Source: "s", Title: "Apple and Tesla shares surge", Content: "Strong profit growth for the iPhone maker", URL: "u1", ScrapedAt: fixedNow},
		{Source: "s", Title: "Tesla stock falls after weak deliveries", URL: "u2", ScrapedAt: fixedNow.Add(-time.Hour)},
		{Source: "s", Title: "Central bank holds rates", URL: "u3", ScrapedAt: fixedNow.Add(-2 * time.Hour)},
	}
	require.NoError(t, db.Create(&articles).Error)

	publisher := &mockPublisher{}
	publisher.On("Publish", mock.Anything, common.EventSentimentAnalyzed, map[string]interface{}{"processed": 3, "scores": 3}).Return(nil).Once()

	output, err := newTestAnalyzer(db, publisher).Execute(context.Background(), &entity.Job{ID: 7})
	require.NoError(t, err)

	var res dto.AnalyzeResult
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	assert.Equal(t, SUCCESS, res.Status)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 3, res.Scores)
	assert.Equal(t, map[string]int{"keyword": 3}, res.Providers)

	var first []entity.SentimentScore
	require.NoError(t, db.Where("article_id = ?", articles[0].ID).Order("security_id asc").Find(&first).Error)
	require.Len(t, first, 2)
	assert.Equal(t, apple.ID, first[0].SecurityID)
	assert.Equal(t, tesla.ID, first[1].SecurityID)
	assert.Equal(t, entity.LabelPositive, first[0].Label)
	assert.Equal(t, first[0].RawScore, first[1].RawScore)
	assert.True(t, first[0].AnalyzedAt.Equal(fixedNow))

	var second []entity.SentimentScore
	require.NoError(t, db.Where("article_id = ?", articles[1].ID).Find(&second).Error)
	require.Len(t, second, 1)
	assert.Equal(t, entity.LabelNegative, second[0].Label)
	assert.Less(t, second[0].RawScore, 0.0)

	var unprocessed int64
	require.NoError(t, db.Model(&entity.Article{}).Where("processed = ?", false).Count(&unprocessed).Error)
	assert.Zero(t, unprocessed)

	publisher.AssertExpectations(t)
}

func TestSentimentAnalyzerStrategyHonoursBatchSize(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	seedTrackedSecurities(t, db)
	require.NoError(t, db.Create(&[]entity.Article{
		{Source: "s", Title: "Apple older", URL: "u1", ScrapedAt: fixedNow.Add(-time.Hour)},
		{Source: "s", Title: "Apple newer", URL: "u2", ScrapedAt: fixedNow},
	}).Error)

	output, err := newTestAnalyzer(db, nil).Execute(context.Background(), &entity.Job{ID: 8, Payload: []byte(`{"batch_size":1}`)})
	require.NoError(t, err)

	var res dto.AnalyzeResult
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	assert.Equal(t, 1, res.Processed)

	var remaining entity.Article
	require.NoError(t, db.Where("processed = ?", false).First(&remaining).Error)
	assert.Equal(t, "u1", remaining.URL)
}

func TestSentimentAnalyzerStrategySkipsWhenNothingToScore(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	seedTrackedSecurities(t, db)

	output, err := newTestAnalyzer(db, nil).Execute(context.Background(), &entity.Job{ID: 9})
	require.NoError(t, err)

	var res dto.AnalyzeResult
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	assert.Equal(t, SKIPPED, res.Status)
	assert.Zero(t, res.Processed)
}

func TestArticleText(t *testing.T) {
	assert.Equal(t, "Title", articleText(entity.Article{Title: "Title", Content: "  "}))
	assert.Equal(t, "Title. Body", articleText(entity.Article{Title: "Title", Content: "Body"}))
}
