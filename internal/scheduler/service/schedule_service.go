package service

import (
	"context"
	"database/sql"
	"time"

	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/internal/scheduler/dto"
	"golang-sentiment-quant/internal/scheduler/repository"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/utils"
)

// ScheduleService defines the interface for managing schedules.
type ScheduleService interface {
	CreateSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	GetScheduleByID(ctx context.Context, id uint) (*dto.ScheduleResponse, error)
	GetAllSchedules(ctx context.Context) ([]*dto.ScheduleResponse, error)
	UpdateSchedule(ctx context.Context, id uint, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error)
	DeleteSchedule(ctx context.Context, id uint) error
}

// NewScheduleService creates a new schedule service.
func NewScheduleService(scheduleRepo repository.TaskScheduleRepository, jobRepo repository.JobRepository, logger *logger.Logger) ScheduleService {
	return &scheduleService{
		scheduleRepo: scheduleRepo,
		jobRepo:      jobRepo,
		logger:       logger,
		now:          utils.NowUTC,
	}
}

type scheduleService struct {
	scheduleRepo repository.TaskScheduleRepository
	jobRepo      repository.JobRepository
	logger       *logger.Logger
	now          func() time.Time
}

// CreateSchedule attaches a new cron schedule to an existing job.
func (s *scheduleService) CreateSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	cronSchedule, err := parseCron(req.CronExpression)
	if err != nil {
		return nil, err
	}
	if _, err := s.jobRepo.FindByID(ctx, req.JobID); err != nil {
		return nil, notFound(err, ErrJobNotFound)
	}

	schedule := &entity.TaskSchedule{
		JobID:          req.JobID,
		CronExpression: req.CronExpression,
		IsActive:       req.IsActive,
		NextExecution:  sql.NullTime{Time: cronSchedule.Next(s.now()), Valid: true},
	}

	if err := s.scheduleRepo.Create(ctx, schedule); err != nil {
		s.logger.Error("Failed to create schedule", logger.ErrorField(err))
		return nil, err
	}

	s.logger.Info("Schedule created successfully", logger.Field("schedule_id", schedule.ID))
	return s.mapToScheduleResponse(schedule), nil
}

// GetScheduleByID retrieves a schedule by its ID.
func (s *scheduleService) GetScheduleByID(ctx context.Context, id uint) (*dto.ScheduleResponse, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrScheduleNotFound)
	}
	return s.mapToScheduleResponse(schedule), nil
}

// GetAllSchedules retrieves all schedules.
func (s *scheduleService) GetAllSchedules(ctx context.Context) ([]*dto.ScheduleResponse, error) {
	schedules, err := s.scheduleRepo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to get all schedules", logger.ErrorField(err))
		return nil, err
	}

	scheduleResponses := make([]*dto.ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		scheduleResponses = append(scheduleResponses, s.mapToScheduleResponse(&schedules[i]))
	}

	return scheduleResponses, nil
}

// UpdateSchedule changes the cron expression and active flag. The next run is recomputed.
func (s *scheduleService) UpdateSchedule(ctx context.Context, id uint, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	cronSchedule, err := parseCron(req.CronExpression)
	if err != nil {
		return nil, err
	}

	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to find schedule for update", logger.ErrorField(err), logger.Field("schedule_id", id))
		return nil, notFound(err, ErrScheduleNotFound)
	}

	schedule.CronExpression = req.CronExpression
	schedule.IsActive = req.IsActive
	schedule.NextExecution = sql.NullTime{Time: cronSchedule.Next(s.now()), Valid: true}

	if err := s.scheduleRepo.UpdateDefinition(ctx, schedule); err != nil {
		s.logger.Error("Failed to update schedule", logger.ErrorField(err), logger.Field("schedule_id", id))
		return nil, err
	}

	s.logger.Info("Schedule updated successfully", logger.Field("schedule_id", id))
	return s.mapToScheduleResponse(schedule), nil
}

// DeleteSchedule deletes a schedule by its ID.
func (s *scheduleService) DeleteSchedule(ctx context.Context, id uint) error {
	if _, err := s.scheduleRepo.FindByID(ctx, id); err != nil {
		return notFound(err, ErrScheduleNotFound)
	}
	if err := s.scheduleRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete schedule", logger.ErrorField(err), logger.Field("schedule_id", id))
		return err
	}
	s.logger.Info("Schedule deleted successfully", logger.Field("schedule_id", id))
	return nil
}

// mapToScheduleResponse maps an entity.TaskSchedule to a dto.ScheduleResponse.
func (s *scheduleService) mapToScheduleResponse(schedule *entity.TaskSchedule) *dto.ScheduleResponse {
	return &dto.ScheduleResponse{
		ID:             schedule.ID,
		JobID:          schedule.JobID,
		CronExpression: schedule.CronExpression,
		IsActive:       schedule.IsActive,
		NextExecution:  dto.OptionalTime(schedule.NextExecution),
		LastExecution:  dto.OptionalTime(schedule.LastExecution),
		CreatedAt:      schedule.CreatedAt,
		UpdatedAt:      schedule.UpdatedAt,
	}
}
