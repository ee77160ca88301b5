package http

import (
	"net/http"

	"golang-sentiment-quant/internal/scheduler/dto"
	"golang-sentiment-quant/internal/scheduler/service"
	"golang-sentiment-quant/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ScheduleHandler handles HTTP requests for schedules.
type ScheduleHandler struct {
	scheduleService service.ScheduleService
	logger          *logger.Logger
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(scheduleService service.ScheduleService, logger *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService, logger: logger}
}

// RegisterRoutes registers the schedule routes to the Echo group.
func (h *ScheduleHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.CreateSchedule)
	g.GET("", h.GetAllSchedules)
	g.GET("/:id", h.GetScheduleByID)
	g.PUT("/:id", h.UpdateSchedule)
	g.DELETE("/:id", h.DeleteSchedule)
}

func (h *ScheduleHandler) CreateSchedule(c echo.Context) error {
	var req dto.CreateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	scheduleResponse, err := h.scheduleService.CreateSchedule(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to create schedule")
	}

	return c.JSON(http.StatusCreated, scheduleResponse)
}

func (h *ScheduleHandler) GetScheduleByID(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid schedule ID"})
	}

	scheduleResponse, err := h.scheduleService.GetScheduleByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get schedule")
	}

	return c.JSON(http.StatusOK, scheduleResponse)
}

func (h *ScheduleHandler) GetAllSchedules(c echo.Context) error {
	schedules, err := h.scheduleService.GetAllSchedules(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get schedules")
	}
	return c.JSON(http.StatusOK, schedules)
}

func (h *ScheduleHandler) UpdateSchedule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid schedule ID"})
	}

	var req dto.UpdateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	scheduleResponse, err := h.scheduleService.UpdateSchedule(c.Request().Context(), id, &req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to update schedule")
	}

	return c.JSON(http.StatusOK, scheduleResponse)
}

func (h *ScheduleHandler) DeleteSchedule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid schedule ID"})
	}

	if err := h.scheduleService.DeleteSchedule(c.Request().Context(), id); err != nil {
		return respondError(c, h.logger, err, "Failed to delete schedule")
	}

	return c.NoContent(http.StatusNoContent)
}
