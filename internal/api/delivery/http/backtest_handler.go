package http

import (
	"errors"
	"net/http"

	"golang-sentiment-quant/internal/api/dto"
	"golang-sentiment-quant/internal/api/service"
	"golang-sentiment-quant/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BacktestHandler handles HTTP requests for backtest runs.
type BacktestHandler struct {
	backtestService service.BacktestService
	logger          *logger.Logger
}

// NewBacktestHandler creates a new BacktestHandler.
func NewBacktestHandler(backtestService service.BacktestService, logger *logger.Logger) *BacktestHandler {
	return &BacktestHandler{backtestService: backtestService, logger: logger}
}

// RegisterRoutes registers the backtest routes to the Echo group.
func (h *BacktestHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.ListBacktests)
	g.POST("/run", h.RunBacktest)
	g.GET("/:id", h.GetBacktest)
	g.DELETE("/:id", h.DeleteBacktest)
}

func (h *BacktestHandler) ListBacktests(c echo.Context) error {
	results, err := h.backtestService.ListBacktests(c.Request().Context(), currentUser(c))
	if err != nil {
		h.logger.Error("Failed to list backtests", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get backtests"})
	}
	return c.JSON(http.StatusOK, echo.Map{"backtests": results})
}

func (h *BacktestHandler) RunBacktest(c echo.Context) error {
	var req dto.RunBacktestRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
		}
	}

	resp, err := h.backtestService.RunBacktest(c.Request().Context(), currentUser(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDateRange):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Start date must be before end date"})
		case errors.Is(err, service.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to run backtest", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to run backtest"})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BacktestHandler) GetBacktest(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid backtest ID"})
	}
	resp, err := h.backtestService.GetBacktest(c.Request().Context(), currentUser(c), id)
	if err != nil {
		if errors.Is(err, service.ErrBacktestNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Backtest not found"})
		}
		h.logger.Error("Failed to get backtest", logger.ErrorField(err), logger.Field("id", id))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get backtest"})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BacktestHandler) DeleteBacktest(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid backtest ID"})
	}
	if err := h.backtestService.DeleteBacktest(c.Request().Context(), currentUser(c), id); err != nil {
		if errors.Is(err, service.ErrBacktestNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Backtest not found"})
		}
		h.logger.Error("Failed to delete backtest", logger.ErrorField(err), logger.Field("id", id))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete backtest"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Backtest deleted"})
}
