package service

import (
	"context"
	"fmt"
	"time"

	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/internal/scheduler/repository"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/utils"
)

// SchedulerService defines the interface for the job scheduling service.
type SchedulerService interface {
	Start(ctx context.Context)
	ProcessJobs(ctx context.Context)
	TriggerJob(ctx context.Context, jobID uint) (*entity.TaskExecutionHistory, error)
}

// NewSchedulerService creates a new scheduler service.
func NewSchedulerService(
	jobRepo repository.JobRepository,
	scheduleRepo repository.TaskScheduleRepository,
	historyRepo repository.TaskExecutionHistoryRepository,
	publisher TaskPublisher,
	log *logger.Logger,
	pollingInterval time.Duration,
) SchedulerService {
	return &schedulerService{
		jobRepo:         jobRepo,
		scheduleRepo:    scheduleRepo,
		historyRepo:     historyRepo,
		publisher:       publisher,
		logger:          log,
		pollingInterval: pollingInterval,
		now:             utils.NowUTC,
	}
}

type schedulerService struct {
	jobRepo         repository.JobRepository
	scheduleRepo    repository.TaskScheduleRepository
	historyRepo     repository.TaskExecutionHistoryRepository
	publisher       TaskPublisher
	logger          *logger.Logger
	pollingInterval time.Duration
	now             func() time.Time
}

// Start begins the periodic job processing loop.
func (s *schedulerService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler service stopping")
			return
		case <-ticker.C:
			s.ProcessJobs(ctx)
		}
	}
}

// ProcessJobs finds and enqueues jobs that are due.
func (s *schedulerService) ProcessJobs(ctx context.Context) {
	schedules, err := s.scheduleRepo.FindDue(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to find jobs to schedule", logger.ErrorField(err))
		return
	}

	for _, schedule := range schedules {
		if !utils.ShouldContinue(ctx) {
			return
		}
		s.publishScheduled(ctx, schedule)
	}
}

// TriggerJob enqueues a job right away. Its schedules are left untouched.
func (s *schedulerService) TriggerJob(ctx context.Context, jobID uint) (*entity.TaskExecutionHistory, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return nil, notFound(err, ErrJobNotFound)
	}

	history, err := s.enqueue(ctx, job.ID, 0)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Job triggered manually", logger.Field("job_id", job.ID), logger.Field("history_id", history.ID))
	return history, nil
}

func (s *schedulerService) publishScheduled(ctx context.Context, schedule entity.TaskSchedule) {
	now := s.now()

	history, err := s.enqueue(ctx, schedule.JobID, schedule.ID)
	if err != nil {
		s.logger.Error("Failed to enqueue task", logger.ErrorField(err), logger.Field("schedule_id", schedule.ID))
		return
	}
	s.logger.Info("Task published successfully", logger.Field("history_id", history.ID), logger.Field("schedule_id", schedule.ID))

	cronSchedule, err := parseCron(schedule.CronExpression)
	if err != nil {
		// A schedule that cannot compute its next run would fire on every poll.
		s.logger.Error("Deactivating schedule with invalid cron expression", logger.ErrorField(err), logger.Field("schedule_id", schedule.ID))
		if err := s.scheduleRepo.Deactivate(ctx, schedule.ID, now); err != nil {
			s.logger.Error("Failed to deactivate schedule", logger.ErrorField(err), logger.Field("schedule_id", schedule.ID))
		}
		return
	}

	if err := s.scheduleRepo.RecordRun(ctx, schedule.ID, now, cronSchedule.Next(now)); err != nil {
		s.logger.Error("Failed to update next execution time", logger.ErrorField(err), logger.Field("schedule_id", schedule.ID))
	}
}

// enqueue records a running execution and publishes it. A failed publish is recorded on the history.
func (s *schedulerService) enqueue(ctx context.Context, jobID, scheduleID uint) (*entity.TaskExecutionHistory, error) {
	history := &entity.TaskExecutionHistory{
		JobID:      jobID,
		ScheduleID: scheduleID,
		Status:     entity.StatusRunning,
		StartedAt:  s.now(),
	}

	if err := s.historyRepo.Create(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to create task history: %w", err)
	}

	if err := s.publisher.Publish(ctx, history); err != nil {
		if errInner := s.historyRepo.MarkPublishFailed(ctx, history.ID, s.now(), err.Error()); errInner != nil {
			s.logger.Error("Failed to update task history", logger.ErrorField(errInner), logger.Field("history_id", history.ID))
		}
		return nil, fmt.Errorf("failed to publish task %d: %w", history.ID, err)
	}
	return history, nil
}
