package http

import (
	"net/http"

	"golang-sentiment-quant/internal/scheduler/dto"
	"golang-sentiment-quant/internal/scheduler/service"
	"golang-sentiment-quant/pkg/logger"

	"github.com/labstack/echo/v4"
)

// JobHandler handles HTTP requests for jobs.
type JobHandler struct {
	jobService       service.JobService
	schedulerService service.SchedulerService
	logger           *logger.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobService service.JobService, schedulerService service.SchedulerService, logger *logger.Logger) *JobHandler {
	return &JobHandler{jobService: jobService, schedulerService: schedulerService, logger: logger}
}

// RegisterRoutes registers the job routes to the Echo group.
func (h *JobHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.CreateJob)
	g.GET("", h.GetAllJobs)
	g.GET("/:id", h.GetJobByID)
	g.PUT("/:id", h.UpdateJob)
	g.DELETE("/:id", h.DeleteJob)
	g.POST("/:id/trigger", h.TriggerJob)
}

// CreateJob creates a job together with its schedules.
func (h *JobHandler) CreateJob(c echo.Context) error {
	var req dto.CreateJobRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	jobResponse, err := h.jobService.CreateJob(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to create job")
	}

	return c.JSON(http.StatusCreated, jobResponse)
}

func (h *JobHandler) GetJobByID(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid job ID"})
	}

	jobResponse, err := h.jobService.GetJobByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get job")
	}

	return c.JSON(http.StatusOK, jobResponse)
}

func (h *JobHandler) GetAllJobs(c echo.Context) error {
	jobs, err := h.jobService.GetAllJobs(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get jobs")
	}
	return c.JSON(http.StatusOK, jobs)
}

func (h *JobHandler) DeleteJob(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid job ID"})
	}

	if err := h.jobService.DeleteJob(c.Request().Context(), id); err != nil {
		return respondError(c, h.logger, err, "Failed to delete job")
	}

	return c.NoContent(http.StatusNoContent)
}

// UpdateJob replaces a job's definition. Its schedules are replaced as a whole.
func (h *JobHandler) UpdateJob(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid job ID"})
	}

	var req dto.UpdateJobRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	jobResponse, err := h.jobService.UpdateJob(c.Request().Context(), id, &req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to update job")
	}

	return c.JSON(http.StatusOK, jobResponse)
}

// TriggerJob enqueues the job immediately.
func (h *JobHandler) TriggerJob(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid job ID"})
	}

	history, err := h.schedulerService.TriggerJob(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to trigger job")
	}

	return c.JSON(http.StatusAccepted, dto.TriggerResponse{
		JobID:     history.JobID,
		HistoryID: history.ID,
		Status:    string(history.Status),
		StartedAt: history.StartedAt,
	})
}
