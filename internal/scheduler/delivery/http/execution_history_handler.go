package http

import (
	"net/http"
	"strconv"

	"golang-sentiment-quant/internal/scheduler/service"
	"golang-sentiment-quant/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ExecutionHistoryHandler handles HTTP requests for execution history.
type ExecutionHistoryHandler struct {
	historyService service.ExecutionHistoryService
	logger         *logger.Logger
}

// NewExecutionHistoryHandler creates a new ExecutionHistoryHandler.
func NewExecutionHistoryHandler(historyService service.ExecutionHistoryService, logger *logger.Logger) *ExecutionHistoryHandler {
	return &ExecutionHistoryHandler{historyService: historyService, logger: logger}
}

// RegisterRoutes registers the execution history routes to the Echo group.
func (h *ExecutionHistoryHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetAllExecutionHistories)
	g.GET("/:id", h.GetExecutionHistoryByID)
}

// RegisterJobRoutes registers the job-specific execution history routes.
func (h *ExecutionHistoryHandler) RegisterJobRoutes(g *echo.Group) {
	g.GET("/:id/executions", h.GetExecutionHistoriesByJobID)
}

// GetAllExecutionHistories lists the latest executions, newest first. ?limit= caps the page.
func (h *ExecutionHistoryHandler) GetAllExecutionHistories(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid limit"})
	}
	histories, err := h.historyService.GetAllExecutionHistories(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get execution histories")
	}
	return c.JSON(http.StatusOK, histories)
}

func (h *ExecutionHistoryHandler) GetExecutionHistoryByID(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid history ID"})
	}

	history, err := h.historyService.GetExecutionHistoryByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get execution history")
	}

	return c.JSON(http.StatusOK, history)
}

func (h *ExecutionHistoryHandler) GetExecutionHistoriesByJobID(c echo.Context) error {
	jobID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid job ID"})
	}
	limit, err := limitParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid limit"})
	}

	histories, err := h.historyService.GetExecutionHistoriesByJobID(c.Request().Context(), jobID, limit)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get execution histories")
	}

	return c.JSON(http.StatusOK, histories)
}

func limitParam(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
