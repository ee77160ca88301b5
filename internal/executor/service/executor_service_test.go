package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/internal/executor/config"
	"golang-sentiment-quant/internal/executor/strategy"
	"golang-sentiment-quant/pkg/common"
	"golang-sentiment-quant/pkg/logger"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockJobRepository struct {
	mock.Mock
}

func (m *mockJobRepository) FindForExecution(ctx context.Context, id uint) (*entity.Job, error) {
	args := m.Called(ctx, id)
	job, _ := args.Get(0).(*entity.Job)
	return job, args.Error(1)
}

type mockHistoryRepository struct {
	mock.Mock
}

func (m *mockHistoryRepository) MarkFinished(ctx context.Context, history *entity.TaskExecutionHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

type fakeStrategy struct {
	output string
	err    error
	calls  int
	run    func(ctx context.Context) error
}

func (f *fakeStrategy) GetType() entity.JobType { return entity.JobTypeDailySentimentAggregator }

func (f *fakeStrategy) Execute(ctx context.Context, job *entity.Job) (string, error) {
	f.calls++
	if f.run != nil {
		if err := f.run(ctx); err != nil {
			return "", err
		}
	}
	return f.output, f.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) SendMessage(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

const taskPayload = `{"id":11,"job_id":3,"schedule_id":2,"status":"running"}`

func testConfig() *config.Config {
	return &config.Config{Executor: config.Executor{
		RedisStreamTaskExecutionTimeout: time.Minute,
		RedisStreamTaskMaxIdleDuration:  15 * time.Minute,
		RedisStreamTaskMaxRetry:         3,
	}}
}

func readArgs() *redis.XReadGroupArgs {
	return &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamSchedulerTaskExecution, ">"},
		Count:    1,
		Block:    2 * time.Second,
	}
}

func streamWith(id, payload string) []redis.XStream {
	return []redis.XStream{{
		Stream:   common.RedisStreamSchedulerTaskExecution,
		Messages: []redis.XMessage{{ID: id, Values: map[string]interface{}{"payload": payload}}},
	}}
}

func newTestService(t *testing.T, strat strategy.JobExecutionStrategy) (*executorService, redismock.ClientMock, *mockJobRepository, *mockHistoryRepository, *recordingNotifier) {
	t.Helper()
	db, redisMock := redismock.NewClientMock()
	jobs := &mockJobRepository{}
	histories := &mockHistoryRepository{}
	notifier := &recordingNotifier{}
	svc := NewExecutorService(testConfig(), db, jobs, histories, logger.NewNop(), notifier, nil, []strategy.JobExecutionStrategy{strat}).(*executorService)
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC) }
	return svc, redisMock, jobs, histories, notifier
}

func TestProcessTaskRecordsSuccessAndAcks(t *testing.T) {
	strat := &fakeStrategy{output: `{"status":"SUCCESS"}`}
	svc, redisMock, jobs, histories, _ := newTestService(t, strat)

	redisMock.ExpectXReadGroup(readArgs()).SetVal(streamWith("1-0", taskPayload))
	redisMock.ExpectXAck(common.RedisStreamSchedulerTaskExecution, common.RedisStreamGroup, "1-0").SetVal(1)
	redisMock.ExpectXDel(common.RedisStreamSchedulerTaskExecution, "1-0").SetVal(1)

	jobs.On("FindForExecution", mock.Anything, uint(3)).Return(&entity.Job{ID: 3, Type: entity.JobTypeDailySentimentAggregator, Timeout: 30}, nil).Once()
	var saved *entity.TaskExecutionHistory
	histories.On("MarkFinished", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*entity.TaskExecutionHistory)
	}).Return(nil).Once()

	svc.ProcessTask(context.Background())

	require.NotNil(t, saved)
	assert.EqualValues(t, 11, saved.ID)
	assert.Equal(t, entity.StatusCompleted, saved.Status)
	assert.Equal(t, `{"status":"SUCCESS"}`, saved.Output.String)
	assert.True(t, saved.CompletedAt.Valid)
	assert.Equal(t, 1, strat.calls)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestProcessTaskRecordsStrategyFailure(t *testing.T) {
	strat := &fakeStrategy{err: errors.New("no scores")}
	svc, redisMock, jobs, histories, _ := newTestService(t, strat)

	redisMock.ExpectXReadGroup(readArgs()).SetVal(streamWith("2-0", taskPayload))
	redisMock.ExpectXAck(common.RedisStreamSchedulerTaskExecution, common.RedisStreamGroup, "2-0").SetVal(1)
	redisMock.ExpectXDel(common.RedisStreamSchedulerTaskExecution, "2-0").SetVal(1)

	jobs.On("FindForExecution", mock.Anything, uint(3)).Return(&entity.Job{ID: 3, Type: entity.JobTypeDailySentimentAggregator}, nil).Once()
	histories.On("MarkFinished", mock.Anything, mock.MatchedBy(func(h *entity.TaskExecutionHistory) bool {
		return h.Status == entity.StatusFailed && h.ErrorMessage.String == "no scores" && !h.Output.Valid
	})).Return(nil).Once()

	svc.ProcessTask(context.Background())

	histories.AssertExpectations(t)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestProcessTaskLeavesTaskPendingWhenHistoryUpdateFails(t *testing.T) {
	svc, redisMock, jobs, histories, _ := newTestService(t, &fakeStrategy{output: "ok"})

	redisMock.ExpectXReadGroup(readArgs()).SetVal(streamWith("3-0", taskPayload))
	jobs.On("FindForExecution", mock.Anything, uint(3)).Return(&entity.Job{ID: 3, Type: entity.JobTypeDailySentimentAggregator}, nil).Once()
	histories.On("MarkFinished", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	svc.ProcessTask(context.Background())

	// No XAck expected: the message stays in the pending list.
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestProcessTaskRunsPastCallerDeadline(t *testing.T) {
	var (
		runDeadline time.Time
		runErr      error
	)
	strat := &fakeStrategy{output: "aggregated", run: func(ctx context.Context) error {
		runDeadline, _ = ctx.Deadline()
		select {
		case <-ctx.Done():
		case <-time.After(150 * time.Millisecond):
		}
		runErr = ctx.Err()
		return nil
	}}
	svc, redisMock, jobs, histories, _ := newTestService(t, strat)

	redisMock.ExpectXReadGroup(readArgs()).SetVal(streamWith("7-0", taskPayload))
	redisMock.ExpectXAck(common.RedisStreamSchedulerTaskExecution, common.RedisStreamGroup, "7-0").SetVal(1)
	redisMock.ExpectXDel(common.RedisStreamSchedulerTaskExecution, "7-0").SetVal(1)

	jobs.On("FindForExecution", mock.Anything, uint(3)).Return(&entity.Job{ID: 3, Type: entity.JobTypeDailySentimentAggregator, Timeout: 1800}, nil).Once()
	var (
		saved    *entity.TaskExecutionHistory
		writeErr error
	)
	histories.On("MarkFinished", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		writeErr = args.Get(0).(context.Context).Err()
		saved = args.Get(1).(*entity.TaskExecutionHistory)
	}).Return(nil).Once()

	// The read loop's deadline expires long before the job's own 30 minute timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	svc.ProcessTask(ctx)

	assert.NoError(t, runErr)
	assert.True(t, runDeadline.After(time.Now().Add(29*time.Minute)), "run deadline %s", runDeadline)
	require.NotNil(t, saved)
	assert.NoError(t, writeErr)
	assert.Equal(t, entity.StatusCompleted, saved.Status)
	assert.Equal(t, "aggregated", saved.Output.String)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestProcessTaskCancelsRunOnShutdown(t *testing.T) {
	strat := &fakeStrategy{run: func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
			return nil
		}
	}}
	svc, redisMock, jobs, histories, _ := newTestService(t, strat)

	redisMock.ExpectXReadGroup(readArgs()).SetVal(streamWith("8-0", taskPayload))
	redisMock.ExpectXAck(common.RedisStreamSchedulerTaskExecution, common.RedisStreamGroup, "8-0").SetVal(1)
	redisMock.ExpectXDel(common.RedisStreamSchedulerTaskExecution, "8-0").SetVal(1)

	jobs.On("FindForExecution", mock.Anything, uint(3)).Return(&entity.Job{ID: 3, Type: entity.JobTypeDailySentimentAggregator, Timeout: 1800}, nil).Once()
	var writeErr error
	histories.On("MarkFinished", mock.Anything, mock.MatchedBy(func(h *entity.TaskExecutionHistory) bool {
		return h.Status == entity.StatusFailed && h.ErrorMessage.String == context.Canceled.Error()
	})).Run(func(args mock.Arguments) {
		writeErr = args.Get(0).(context.Context).Err()
	}).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)
	started := time.Now()
	svc.ProcessTask(ctx)

	assert.Less(t, time.Since(started), time.Second)
	assert.NoError(t, writeErr)
	histories.AssertExpectations(t)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestProcessTaskDropsMalformedAndUnknownJobs(t *testing.T) {
	svc, redisMock, jobs, _, _ := newTestService(t, &fakeStrategy{})

	redisMock.ExpectXReadGroup(readArgs()).SetVal(streamWith("4-0", "not-json"))
	redisMock.ExpectXAck(common.RedisStreamSchedulerTaskExecution, common.RedisStreamGroup, "4-0").SetVal(1)
	redisMock.ExpectXDel(common.RedisStreamSchedulerTaskExecution, "4-0").SetVal(1)
	svc.ProcessTask(context.Background())

	redisMock.ExpectXReadGroup(readArgs()).SetVal(streamWith("5-0", taskPayload))
	redisMock.ExpectXAck(common.RedisStreamSchedulerTaskExecution, common.RedisStreamGroup, "5-0").SetVal(1)
	redisMock.ExpectXDel(common.RedisStreamSchedulerTaskExecution, "5-0").SetVal(1)
	jobs.On("FindForExecution", mock.Anything, uint(3)).Return(nil, gorm.ErrRecordNotFound).Once()
	svc.ProcessTask(context.Background())

	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestProcessTaskIgnoresEmptyRead(t *testing.T) {
	svc, redisMock, _, _, _ := newTestService(t, &fakeStrategy{})
	redisMock.ExpectXReadGroup(readArgs()).RedisNil()

	svc.ProcessTask(context.Background())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func retryArgs() (*redis.XAutoClaimArgs, *redis.XPendingExtArgs) {
	return &redis.XAutoClaimArgs{
			Stream:   common.RedisStreamSchedulerTaskExecution,
			Group:    common.RedisStreamGroup,
			Consumer: common.RedisStreamConsumer + "-retry",
			MinIdle:  15 * time.Minute,
			Start:    "0",
			Count:    1,
		}, &redis.XPendingExtArgs{
			Stream: common.RedisStreamSchedulerTaskExecution,
			Group:  common.RedisStreamGroup,
			Start:  "6-0",
			End:    "6-0",
			Count:  1,
		}
}

func TestProcessRetriesRerunsPendingTask(t *testing.T) {
	strat := &fakeStrategy{output: "done"}
	svc, redisMock, jobs, histories, notifier := newTestService(t, strat)
	claim, pending := retryArgs()

	redisMock.ExpectXAutoClaim(claim).SetVal([]redis.XMessage{{ID: "6-0", Values: map[string]interface{}{"payload": taskPayload}}}, "0-0")
	redisMock.ExpectXPendingExt(pending).SetVal([]redis.XPendingExt{{ID: "6-0", RetryCount: 1}})
	redisMock.ExpectXAck(common.RedisStreamSchedulerTaskExecution, common.RedisStreamGroup, "6-0").SetVal(1)
	redisMock.ExpectXDel(common.RedisStreamSchedulerTaskExecution, "6-0").SetVal(1)

	jobs.On("FindForExecution", mock.Anything, uint(3)).Return(&entity.Job{ID: 3, Type: entity.JobTypeDailySentimentAggregator}, nil).Once()
	histories.On("MarkFinished", mock.Anything, mock.Anything).Return(nil).Once()

	svc.ProcessRetries(context.Background())

	assert.Equal(t, 1, strat.calls)
	assert.Empty(t, notifier.messages)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestProcessRetriesGivesUpAfterMaxRetry(t *testing.T) {
	strat := &fakeStrategy{}
	svc, redisMock, _, _, notifier := newTestService(t, strat)
	claim, pending := retryArgs()

	redisMock.ExpectXAutoClaim(claim).SetVal([]redis.XMessage{{ID: "6-0", Values: map[string]interface{}{"payload": taskPayload}}}, "0-0")
	redisMock.ExpectXPendingExt(pending).SetVal([]redis.XPendingExt{{ID: "6-0", RetryCount: 3}})
	redisMock.ExpectXAck(common.RedisStreamSchedulerTaskExecution, common.RedisStreamGroup, "6-0").SetVal(1)
	redisMock.ExpectXDel(common.RedisStreamSchedulerTaskExecution, "6-0").SetVal(1)

	svc.ProcessRetries(context.Background())

	assert.Zero(t, strat.calls)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "retry count exceeded")
	assert.Contains(t, notifier.messages[0], `"job_id":3`)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestProcessRetriesWithNothingPending(t *testing.T) {
	svc, redisMock, _, _, _ := newTestService(t, &fakeStrategy{})
	claim, _ := retryArgs()
	redisMock.ExpectXAutoClaim(claim).SetVal([]redis.XMessage{}, "0-0")

	svc.ProcessRetries(context.Background())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
