package strategy

import (
	"context"
	"sync"
	"time"

	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/internal/executor/repository"

	"github.com/stretchr/testify/mock"
)

var fixedNow = time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, eventType string, data map[string]interface{}) error {
	args := m.Called(ctx, eventType, data)
	return args.Error(0)
}

type mockSentimentRepository struct {
	mock.Mock
}

func (m *mockSentimentRepository) FindScoresBetween(ctx context.Context, from, to time.Time) ([]entity.SentimentScore, error) {
	args := m.Called(ctx, from, to)
	scores, _ := args.Get(0).([]entity.SentimentScore)
	return scores, args.Error(1)
}

func (m *mockSentimentRepository) UpsertDaily(ctx context.Context, rows []entity.DailySentimentAggregate) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *mockSentimentRepository) FindMovers(ctx context.Context, date time.Time, threshold float64) ([]repository.DailyMover, error) {
	args := m.Called(ctx, date, threshold)
	movers, _ := args.Get(0).([]repository.DailyMover)
	return movers, args.Error(1)
}

// recordingNotifier captures telegram messages.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) SendMessage(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, text)
	return nil
}

type stubStrategy struct {
	jobType entity.JobType
	output  string
	err     error
	got     *entity.Job
}

func (s *stubStrategy) GetType() entity.JobType { return s.jobType }

func (s *stubStrategy) Execute(_ context.Context, job *entity.Job) (string, error) {
	s.got = job
	return s.output, s.err
}
