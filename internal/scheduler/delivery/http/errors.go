package http

import (
	"errors"
	"net/http"
	"strconv"

	"golang-sentiment-quant/internal/scheduler/service"
	"golang-sentiment-quant/pkg/logger"

	"github.com/labstack/echo/v4"
)

// respondError maps service errors to status codes. Unexpected errors are logged and hidden.
func respondError(c echo.Context, log *logger.Logger, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrScheduleNotFound),
		errors.Is(err, service.ErrExecutionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidJobType),
		errors.Is(err, service.ErrInvalidCron):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	log.Error(fallback, logger.ErrorField(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
