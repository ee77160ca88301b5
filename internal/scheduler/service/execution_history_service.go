package service

import (
	"context"

	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/internal/scheduler/dto"
	"golang-sentiment-quant/internal/scheduler/repository"
	"golang-sentiment-quant/pkg/logger"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// ExecutionHistoryService defines the interface for managing execution history.
type ExecutionHistoryService interface {
	GetExecutionHistoryByID(ctx context.Context, id uint) (*dto.ExecutionHistoryResponse, error)
	GetAllExecutionHistories(ctx context.Context, limit int) ([]*dto.ExecutionHistoryResponse, error)
	GetExecutionHistoriesByJobID(ctx context.Context, jobID uint, limit int) ([]*dto.ExecutionHistoryResponse, error)
}

// NewExecutionHistoryService creates a new execution history service.
func NewExecutionHistoryService(historyRepo repository.TaskExecutionHistoryRepository, logger *logger.Logger) ExecutionHistoryService {
	return &executionHistoryService{
		historyRepo: historyRepo,
		logger:      logger,
	}
}

type executionHistoryService struct {
	historyRepo repository.TaskExecutionHistoryRepository
	logger      *logger.Logger
}

// GetExecutionHistoryByID retrieves an execution history record by its ID.
func (s *executionHistoryService) GetExecutionHistoryByID(ctx context.Context, id uint) (*dto.ExecutionHistoryResponse, error) {
	history, err := s.historyRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrExecutionNotFound)
	}
	return s.mapToExecutionHistoryResponse(history), nil
}

// GetAllExecutionHistories retrieves the latest execution history records.
func (s *executionHistoryService) GetAllExecutionHistories(ctx context.Context, limit int) ([]*dto.ExecutionHistoryResponse, error) {
	histories, err := s.historyRepo.FindAll(ctx, clampLimit(limit))
	if err != nil {
		s.logger.Error("Failed to get all execution histories", logger.ErrorField(err))
		return nil, err
	}
	return s.mapAll(histories), nil
}

// GetExecutionHistoriesByJobID retrieves the latest execution history records for a specific job.
func (s *executionHistoryService) GetExecutionHistoriesByJobID(ctx context.Context, jobID uint, limit int) ([]*dto.ExecutionHistoryResponse, error) {
	histories, err := s.historyRepo.FindAllByJobID(ctx, jobID, clampLimit(limit))
	if err != nil {
		s.logger.Error("Failed to get execution histories by job ID", logger.ErrorField(err), logger.Field("job_id", jobID))
		return nil, err
	}
	return s.mapAll(histories), nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}

func (s *executionHistoryService) mapAll(histories []entity.TaskExecutionHistory) []*dto.ExecutionHistoryResponse {
	out := make([]*dto.ExecutionHistoryResponse, 0, len(histories))
	for i := range histories {
		out = append(out, s.mapToExecutionHistoryResponse(&histories[i]))
	}
	return out
}

// mapToExecutionHistoryResponse maps an entity.TaskExecutionHistory to a dto.ExecutionHistoryResponse.
// Runs without a schedule were triggered by hand.
func (s *executionHistoryService) mapToExecutionHistoryResponse(history *entity.TaskExecutionHistory) *dto.ExecutionHistoryResponse {
	resp := &dto.ExecutionHistoryResponse{
		ID:          history.ID,
		JobID:       history.JobID,
		ScheduleID:  history.ScheduleID,
		Trigger:     dto.TriggerSchedule,
		Status:      string(history.Status),
		StartedAt:   history.StartedAt,
		CompletedAt: dto.OptionalTime(history.CompletedAt),
		Output:      history.Output.String,
		Error:       history.ErrorMessage.String,
	}
	if history.ScheduleID == 0 {
		resp.Trigger = dto.TriggerManual
	}
	if history.CompletedAt.Valid {
		resp.DurationMs = history.CompletedAt.Time.Sub(history.StartedAt).Milliseconds()
	}
	return resp
}
