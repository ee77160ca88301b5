package http

import (
	"errors"
	"net/http"
	"strconv"

	"golang-sentiment-quant/internal/api/dto"
	"golang-sentiment-quant/internal/api/service"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/utils"

	"github.com/labstack/echo/v4"
)

// SentimentHandler handles HTTP requests for sentiment scores.
type SentimentHandler struct {
	sentimentService service.SentimentService
	logger           *logger.Logger
}

// NewSentimentHandler creates a new SentimentHandler.
func NewSentimentHandler(sentimentService service.SentimentService, logger *logger.Logger) *SentimentHandler {
	return &SentimentHandler{sentimentService: sentimentService, logger: logger}
}

// RegisterRoutes registers the sentiment routes to the Echo group.
func (h *SentimentHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetAllSentiments)
	g.GET("/history/:symbol", h.GetHistory)
	g.GET("/:symbol", h.GetSecuritySentiment)
}

// GetAllSentiments returns live WSS for every active security, strongest signal first.
func (h *SentimentHandler) GetAllSentiments(c echo.Context) error {
	sentiments, err := h.sentimentService.GetAllSentiments(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to get sentiments", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get sentiment data"})
	}
	return c.JSON(http.StatusOK, dto.SentimentListResponse{
		Sentiments: sentiments,
		Total:      len(sentiments),
		UpdatedAt:  utils.NowUTC(),
	})
}

func (h *SentimentHandler) GetSecuritySentiment(c echo.Context) error {
	days, err := queryInt(c, "days")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid days"})
	}

	resp, err := h.sentimentService.GetSecuritySentiment(c.Request().Context(), c.Param("symbol"), days)
	if err != nil {
		if errors.Is(err, service.ErrSecurityNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Stock not found"})
		}
		h.logger.Error("Failed to get security sentiment", logger.ErrorField(err), logger.StringField("symbol", c.Param("symbol")))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get sentiment data"})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SentimentHandler) GetHistory(c echo.Context) error {
	days, err := queryInt(c, "days")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid days"})
	}

	resp, err := h.sentimentService.GetHistory(c.Request().Context(), c.Param("symbol"), days)
	if err != nil {
		if errors.Is(err, service.ErrSecurityNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Stock not found"})
		}
		h.logger.Error("Failed to get sentiment history", logger.ErrorField(err), logger.StringField("symbol", c.Param("symbol")))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get sentiment history"})
	}
	return c.JSON(http.StatusOK, resp)
}

// queryInt parses an optional non-negative integer query parameter. Absent means 0.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("invalid " + name)
	}
	return v, nil
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
