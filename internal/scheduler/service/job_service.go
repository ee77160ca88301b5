package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/internal/scheduler/dto"
	"golang-sentiment-quant/internal/scheduler/repository"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/utils"

	"gorm.io/datatypes"
)

// JobService defines the interface for managing jobs.
type JobService interface {
	CreateJob(ctx context.Context, req *dto.CreateJobRequest) (*dto.JobResponse, error)
	GetJobByID(ctx context.Context, id uint) (*dto.JobResponse, error)
	GetAllJobs(ctx context.Context) ([]*dto.JobResponse, error)
	UpdateJob(ctx context.Context, id uint, req *dto.UpdateJobRequest) (*dto.JobResponse, error)
	DeleteJob(ctx context.Context, id uint) error
}

// NewJobService creates a new job service. Jobs created without a timeout get defaultTimeout seconds.
func NewJobService(jobRepo repository.JobRepository, logger *logger.Logger, defaultTimeout int) JobService {
	return &jobService{
		jobRepo:        jobRepo,
		logger:         logger,
		defaultTimeout: defaultTimeout,
		now:            utils.NowUTC,
	}
}

type jobService struct {
	jobRepo        repository.JobRepository
	logger         *logger.Logger
	defaultTimeout int
	now            func() time.Time
}

// CreateJob handles the business logic for creating a new job.
func (s *jobService) CreateJob(ctx context.Context, req *dto.CreateJobRequest) (*dto.JobResponse, error) {
	if err := validateJobType(req.Type); err != nil {
		return nil, err
	}
	schedules, err := s.buildSchedules(0, req.Schedules)
	if err != nil {
		return nil, err
	}

	retryPolicyBytes, err := json.Marshal(req.RetryPolicy)
	if err != nil {
		return nil, err
	}

	job := &entity.Job{
		Name:        req.Name,
		Description: req.Description,
		Type:        entity.JobType(req.Type),
		Payload:     datatypes.JSON(normalizePayload(req.Payload)),
		RetryPolicy: datatypes.JSON(retryPolicyBytes),
		Timeout:     s.timeoutOrDefault(req.Timeout),
		Schedules:   schedules,
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		s.logger.Error("Failed to create job", logger.ErrorField(err))
		return nil, err
	}

	s.logger.Info("Job created successfully", logger.Field("job_id", job.ID), logger.StringField("type", req.Type))
	return s.mapToJobResponse(job), nil
}

// GetJobByID retrieves a job by its ID.
func (s *jobService) GetJobByID(ctx context.Context, id uint) (*dto.JobResponse, error) {
	job, err := s.jobRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrJobNotFound)
	}
	return s.mapToJobResponse(job), nil
}

// GetAllJobs retrieves all jobs.
func (s *jobService) GetAllJobs(ctx context.Context) ([]*dto.JobResponse, error) {
	jobs, err := s.jobRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	jobResponses := make([]*dto.JobResponse, 0, len(jobs))
	for i := range jobs {
		jobResponses = append(jobResponses, s.mapToJobResponse(&jobs[i]))
	}

	return jobResponses, nil
}

// DeleteJob deletes a job by its ID.
func (s *jobService) DeleteJob(ctx context.Context, id uint) error {
	if _, err := s.jobRepo.FindByID(ctx, id); err != nil {
		return notFound(err, ErrJobNotFound)
	}
	if err := s.jobRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete job", logger.ErrorField(err), logger.Field("job_id", id))
		return err
	}
	s.logger.Info("Job deleted successfully", logger.Field("job_id", id))
	return nil
}

// UpdateJob handles the business logic for updating an existing job.
func (s *jobService) UpdateJob(ctx context.Context, id uint, req *dto.UpdateJobRequest) (*dto.JobResponse, error) {
	if err := validateJobType(req.Type); err != nil {
		return nil, err
	}

	job, err := s.jobRepo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to find job for update", logger.ErrorField(err), logger.Field("job_id", id))
		return nil, notFound(err, ErrJobNotFound)
	}

	schedules, err := s.buildSchedules(job.ID, req.Schedules)
	if err != nil {
		return nil, err
	}

	// Update the job fields from the request.
	retryPolicyBytes, err := json.Marshal(req.RetryPolicy)
	if err != nil {
		s.logger.Error("Failed to marshal retry policy", logger.ErrorField(err))
		return nil, err
	}

	job.Name = req.Name
	job.Description = req.Description
	job.Type = entity.JobType(req.Type)
	job.Payload = datatypes.JSON(normalizePayload(req.Payload))
	job.RetryPolicy = datatypes.JSON(retryPolicyBytes)
	job.Timeout = s.timeoutOrDefault(req.Timeout)

	// Replace existing schedules with new ones from the request.
	job.Schedules = schedules // The repository update will handle deletion

	// Persist the updated job. The repository's Update method handles the transaction.
	if err := s.jobRepo.Update(ctx, job); err != nil {
		s.logger.Error("Failed to update job", logger.ErrorField(err), logger.Field("job_id", id))
		return nil, err
	}

	s.logger.Info("Job updated successfully", logger.Field("job_id", id))
	return s.mapToJobResponse(job), nil
}

// buildSchedules validates cron expressions and sets the first run so a new schedule waits for its slot.
func (s *jobService) buildSchedules(jobID uint, in []dto.ScheduleDTO) ([]entity.TaskSchedule, error) {
	now := s.now()
	out := make([]entity.TaskSchedule, 0, len(in))
	for _, sDto := range in {
		cronSchedule, err := parseCron(sDto.CronExpression)
		if err != nil {
			return nil, err
		}
		out = append(out, entity.TaskSchedule{
			JobID:          jobID,
			CronExpression: sDto.CronExpression,
			IsActive:       sDto.IsActive,
			NextExecution:  sql.NullTime{Time: cronSchedule.Next(now), Valid: true},
		})
	}
	return out, nil
}

func (s *jobService) timeoutOrDefault(timeout int) int {
	if timeout <= 0 {
		return s.defaultTimeout
	}
	return timeout
}

// normalizePayload stores a missing payload as an empty object.
func normalizePayload(p json.RawMessage) json.RawMessage {
	if len(p) == 0 || string(p) == "null" {
		return json.RawMessage("{}")
	}
	return p
}

// mapToJobResponse maps an entity.Job to a dto.JobResponse.
func (s *jobService) mapToJobResponse(job *entity.Job) *dto.JobResponse {
	var retryPolicy dto.RetryPolicyDTO
	_ = json.Unmarshal(job.RetryPolicy, &retryPolicy)

	schedules := make([]dto.ScheduleResponseDTO, 0, len(job.Schedules))
	for _, schedule := range job.Schedules {
		schedules = append(schedules, dto.ScheduleResponseDTO{
			ID:             schedule.ID,
			CronExpression: schedule.CronExpression,
			IsActive:       schedule.IsActive,
			NextExecution:  dto.OptionalTime(schedule.NextExecution),
			LastExecution:  dto.OptionalTime(schedule.LastExecution),
		})
	}

	return &dto.JobResponse{
		ID:          job.ID,
		Name:        job.Name,
		Description: job.Description,
		Type:        string(job.Type),
		Payload:     json.RawMessage(job.Payload),
		RetryPolicy: retryPolicy,
		Timeout:     job.Timeout,
		Schedules:   schedules,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}
