package http

import (
	"errors"
	"net/http"

	"golang-sentiment-quant/internal/api/dto"
	"golang-sentiment-quant/internal/api/service"
	"golang-sentiment-quant/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PortfolioHandler handles HTTP requests for holdings, rebalancing and the ledger.
type PortfolioHandler struct {
	portfolioService service.PortfolioService
	logger           *logger.Logger
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioService service.PortfolioService, logger *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService, logger: logger}
}

// RegisterRoutes registers the portfolio routes to the Echo group.
func (h *PortfolioHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetPortfolio)
	g.POST("/initialize", h.Initialize)
	g.POST("/rebalance", h.Rebalance)
	g.GET("/performance", h.GetPerformance)
	g.GET("/transactions", h.GetTransactions)
}

func (h *PortfolioHandler) GetPortfolio(c echo.Context) error {
	resp, err := h.portfolioService.GetPortfolio(c.Request().Context(), currentUser(c))
	if err != nil {
		h.logger.Error("Failed to get portfolio", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get portfolio"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Initialize allocates the initial capital (10000 when omitted) across target weights.
func (h *PortfolioHandler) Initialize(c echo.Context) error {
	var req dto.InitializeRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
		}
	}

	resp, err := h.portfolioService.InitializePortfolio(c.Request().Context(), currentUser(c), req.InitialCapital)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPortfolioExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Portfolio already exists. Use rebalance instead."})
		case errors.Is(err, service.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to initialize portfolio", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to initialize portfolio"})
	}
	return c.JSON(http.StatusCreated, resp)
}

// Rebalance previews trades unless the body explicitly sets dry_run to false.
func (h *PortfolioHandler) Rebalance(c echo.Context) error {
	var req dto.RebalanceRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
		}
	}
	dryRun := req.DryRun == nil || *req.DryRun

	resp, err := h.portfolioService.Rebalance(c.Request().Context(), currentUser(c), dryRun)
	if err != nil {
		h.logger.Error("Failed to rebalance portfolio", logger.ErrorField(err), logger.BoolField("dry_run", dryRun))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to rebalance portfolio"})
	}
	if resp.Error != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": resp.Error})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PortfolioHandler) GetPerformance(c echo.Context) error {
	resp, err := h.portfolioService.GetPerformance(c.Request().Context(), currentUser(c))
	if err != nil {
		h.logger.Error("Failed to get performance", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get performance"})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PortfolioHandler) GetTransactions(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid limit"})
	}
	txns, err := h.portfolioService.GetTransactions(c.Request().Context(), currentUser(c), limit)
	if err != nil {
		h.logger.Error("Failed to get transactions", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get transactions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txns})
}
