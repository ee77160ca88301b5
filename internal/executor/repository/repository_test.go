package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/internal/testutil"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var baseTime = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func seedArticle(t *testing.T, db *gorm.DB, url string, scrapedAt time.Time, processed bool) entity.Article {
	t.Helper()
	a := entity.Article{Source: "test", Title: "title " + url, URL: url, ScrapedAt: scrapedAt, Processed: processed}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func TestArticleRepositoryCreateIgnoreConflict(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	seedArticle(t, db, "https://news.test/a", baseTime, false)

	existing, err := repo.ExistingURLs(ctx, []string{"https://news.test/a", "https://news.test/b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"https://news.test/a": true}, existing)

	inserted, err := repo.CreateIgnoreConflict(ctx, []entity.Article{
		{Source: "test", Title: "dup", URL: "https://news.test/a", ScrapedAt: baseTime},
		{Source: "test", Title: "new", URL: "https://news.test/b", ScrapedAt: baseTime},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, inserted)

	var count int64
	require.NoError(t, db.Model(&entity.Article{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	inserted, err = repo.CreateIgnoreConflict(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestArticleRepositoryFindUnprocessed(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewArticleRepository(db)

	seedArticle(t, db, "https://news.test/old", baseTime.Add(-2*time.Hour), false)
	seedArticle(t, db, "https://news.test/new", baseTime, false)
	seedArticle(t, db, "https://news.test/mid", baseTime.Add(-time.Hour), false)
	seedArticle(t, db, "https://news.test/done", baseTime.Add(time.Hour), true)

	articles, err := repo.FindUnprocessed(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "https://news.test/new", articles[0].URL)
	assert.Equal(t, "https://news.test/mid", articles[1].URL)
}

func TestArticleRepositorySaveScores(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	a := seedArticle(t, db, "https://news.test/a", baseTime, false)
	scores := []entity.SentimentScore{
		{SecurityID: 1, Label: entity.LabelPositive, Confidence: 0.9, RawScore: 0.7, AnalyzedAt: baseTime},
		{SecurityID: 2, Label: entity.LabelPositive, Confidence: 0.9, RawScore: 0.7, AnalyzedAt: baseTime},
	}
	require.NoError(t, repo.SaveScores(ctx, a.ID, scores))

	var stored []entity.SentimentScore
	require.NoError(t, db.Where("article_id = ?", a.ID).Find(&stored).Error)
	assert.Len(t, stored, 2)

	var reloaded entity.Article
	require.NoError(t, db.First(&reloaded, a.ID).Error)
	assert.True(t, reloaded.Processed)

	// No mentions still marks the article processed.
	b := seedArticle(t, db, "https://news.test/b", baseTime, false)
	require.NoError(t, repo.SaveScores(ctx, b.ID, nil))
	var second entity.Article
	require.NoError(t, db.First(&second, b.ID).Error)
	assert.True(t, second.Processed)
}

func TestArticleRepositorySaveScoresRollsBackForMissingArticle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewArticleRepository(db)

	err := repo.SaveScores(context.Background(), 999, []entity.SentimentScore{
		{SecurityID: 1, Label: entity.LabelNeutral, Confidence: 0.5, AnalyzedAt: baseTime},
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&entity.SentimentScore{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSecurityRepositoryFindActive(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, db.Create(&entity.Security{Symbol: "AAPL", Name: "Apple", Keywords: pq.StringArray{"apple", "iphone"}, IsActive: true}).Error)
	inactive := entity.Security{Symbol: "OLD", Name: "Old", IsActive: true}
	require.NoError(t, db.Create(&inactive).Error)
	require.NoError(t, db.Model(&inactive).Update("is_active", false).Error)

	securities, err := NewSecurityRepository(db).FindActive(context.Background())
	require.NoError(t, err)
	require.Len(t, securities, 1)
	assert.Equal(t, pq.StringArray{"apple", "iphone"}, securities[0].Keywords)
}

func TestSentimentRepositoryScoresAndDaily(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewSentimentRepository(db)
	ctx := context.Background()

	apple := entity.Security{Symbol: "AAPL", Name: "Apple Inc.", IsActive: true}
	tesla := entity.Security{Symbol: "TSLA", Name: "Tesla Inc.", IsActive: true}
	require.NoError(t, db.Create(&apple).Error)
	require.NoError(t, db.Create(&tesla).Error)

	a := seedArticle(t, db, "https://news.test/a", baseTime, true)
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&[]entity.SentimentScore{
		{ArticleID: a.ID, SecurityID: apple.ID, Label: entity.LabelPositive, Confidence: 0.9, RawScore: 0.8, AnalyzedAt: baseTime},
		{ArticleID: a.ID, SecurityID: tesla.ID, Label: entity.LabelNegative, Confidence: 0.9, RawScore: -0.3, AnalyzedAt: day.Add(-time.Minute)},
	}).Error)

	scores, err := repo.FindScoresBetween(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, apple.ID, scores[0].SecurityID)

	require.NoError(t, repo.UpsertDaily(ctx, []entity.DailySentimentAggregate{
		{SecurityID: apple.ID, Date: day, AvgSentiment: 0.2, WeightedSentiment: 0.2, ArticleCount: 1, PositiveCount: 1},
		{SecurityID: tesla.ID, Date: day, AvgSentiment: -0.7, WeightedSentiment: -0.7, ArticleCount: 3, NegativeCount: 3},
	}))
	// A second run for the same day replaces the row instead of duplicating it.
	require.NoError(t, repo.UpsertDaily(ctx, []entity.DailySentimentAggregate{
		{SecurityID: apple.ID, Date: day, AvgSentiment: 0.8, WeightedSentiment: 0.8, ArticleCount: 2, PositiveCount: 2},
	}))

	var rows []entity.DailySentimentAggregate
	require.NoError(t, db.Order("security_id asc").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.InDelta(t, 0.8, rows[0].WeightedSentiment, 1e-9)
	assert.Equal(t, 2, rows[0].ArticleCount)

	movers, err := repo.FindMovers(ctx, day, 0.5)
	require.NoError(t, err)
	require.Len(t, movers, 2)
	assert.Equal(t, "AAPL", movers[0].Symbol)
	assert.Equal(t, "Tesla Inc.", movers[1].Name)
	assert.InDelta(t, -0.7, movers[1].WeightedSentiment, 1e-9)

	movers, err = repo.FindMovers(ctx, day, 0.75)
	require.NoError(t, err)
	require.Len(t, movers, 1)
	assert.Equal(t, "AAPL", movers[0].Symbol)

	movers, err = repo.FindMovers(ctx, day.AddDate(0, 0, 1), 0.5)
	require.NoError(t, err)
	assert.Empty(t, movers)
}

func TestJobRepositoryFindForExecution(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	job := entity.Job{Name: "pipeline", Description: "every four hours", Type: entity.JobTypeSentimentPipeline, Payload: datatypes.JSON(`{"notify":true}`), Timeout: 1800}
	require.NoError(t, db.Create(&job).Error)

	found, err := repo.FindForExecution(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, found.ID)
	assert.Equal(t, entity.JobTypeSentimentPipeline, found.Type)
	assert.Equal(t, 1800, found.Timeout)
	assert.JSONEq(t, `{"notify":true}`, string(found.Payload))
	assert.Empty(t, found.Description)

	_, err = repo.FindForExecution(ctx, job.ID+1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTaskExecutionHistoryRepositoryMarkFinished(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewTaskExecutionHistoryRepository(db)
	ctx := context.Background()

	job := entity.Job{Name: "aggregate", Type: entity.JobTypeDailySentimentAggregator}
	require.NoError(t, db.Create(&job).Error)
	queued := entity.TaskExecutionHistory{JobID: job.ID, ScheduleID: 4, Status: entity.StatusRunning, StartedAt: baseTime}
	require.NoError(t, db.Create(&queued).Error)

	// The executor only knows what the stream payload carried.
	finished := &entity.TaskExecutionHistory{
		ID:           queued.ID,
		Status:       entity.StatusFailed,
		CompletedAt:  sql.NullTime{Time: baseTime.Add(time.Minute), Valid: true},
		ErrorMessage: sql.NullString{String: "no scores", Valid: true},
	}
	require.NoError(t, repo.MarkFinished(ctx, finished))

	var stored entity.TaskExecutionHistory
	require.NoError(t, db.First(&stored, queued.ID).Error)
	assert.Equal(t, entity.StatusFailed, stored.Status)
	assert.Equal(t, job.ID, stored.JobID)
	assert.EqualValues(t, 4, stored.ScheduleID)
	assert.Equal(t, baseTime, stored.StartedAt.UTC())
	assert.Equal(t, baseTime.Add(time.Minute), stored.CompletedAt.Time.UTC())
	assert.Equal(t, "no scores", stored.ErrorMessage.String)
	assert.False(t, stored.Output.Valid)

	err := repo.MarkFinished(ctx, &entity.TaskExecutionHistory{ID: queued.ID + 10, Status: entity.StatusCompleted})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
