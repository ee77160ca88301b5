package http

import (
	"net/http"
	"strconv"
	"time"

	"golang-sentiment-quant/pkg/common"
	"golang-sentiment-quant/pkg/metrics"

	"github.com/labstack/echo/v4"
)

const (
	HeaderUserID = "X-User-ID"
	userIDKey    = "user_id"
)

// UserID resolves the acting user from the X-User-ID header. Requests without it act as the default user.
func UserID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := uint(common.DefaultUserID)
			if raw := c.Request().Header.Get(HeaderUserID); raw != "" {
				id, err := strconv.ParseUint(raw, 10, 32)
				if err != nil || id == 0 {
					return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
				}
				userID = uint(id)
			}
			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

func currentUser(c echo.Context) uint {
	if id, ok := c.Get(userIDKey).(uint); ok {
		return id
	}
	return uint(common.DefaultUserID)
}

// Metrics records request latency per route template.
func Metrics(registry *metrics.Registry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			registry.ObserveHTTP(c.Request().Method, c.Path(), strconv.Itoa(c.Response().Status), time.Since(start))
			return nil
		}
	}
}
