package service

import (
	"errors"

	"golang-sentiment-quant/internal/analytics"
)

var (
	ErrSecurityNotFound = errors.New("security not found")
	ErrPortfolioExists  = errors.New("portfolio already exists, use rebalance instead")
	ErrBacktestNotFound = errors.New("backtest not found")
	ErrInvalidDateRange = analytics.ErrInvalidDateRange
	ErrInvalidInput     = errors.New("invalid input")
)
