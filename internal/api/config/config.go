package config

import (
	"fmt"

	"golang-sentiment-quant/internal/analytics"
	"golang-sentiment-quant/pkg/config"
)

const defaultSendBuffer = 32

// WebSocket holds settings for the live pipeline event feed.
type WebSocket struct {
	Enabled        bool     `mapstructure:"enabled"`
	OriginPatterns []string `mapstructure:"origin_patterns"`
	SendBuffer     int      `mapstructure:"send_buffer"`
}

// Config holds the full configuration for the API service.
type Config struct {
	App       config.App               `mapstructure:"app"`
	Logger    config.Logger            `mapstructure:"logger"`
	Database  config.Database          `mapstructure:"database"`
	Redis     config.Redis             `mapstructure:"redis"`
	API       config.API               `mapstructure:"api"`
	Portfolio analytics.Config         `mapstructure:"portfolio"`
	Backtest  analytics.BacktestConfig `mapstructure:"backtest"`
	WebSocket WebSocket                `mapstructure:"websocket"`
}

// Load loads the API configuration from the given path. The portfolio and backtest
// sections start from their defaults, so keys missing from the file keep the default
// while keys set to zero stay zero.
func Load(path string) (*Config, error) {
	cfg := Config{
		Portfolio: analytics.DefaultConfig(),
		Backtest:  analytics.DefaultBacktestConfig(),
		WebSocket: WebSocket{SendBuffer: defaultSendBuffer},
	}
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Portfolio.Validate(); err != nil {
		return nil, fmt.Errorf("invalid portfolio config: %w", err)
	}
	if cfg.WebSocket.SendBuffer <= 0 {
		cfg.WebSocket.SendBuffer = defaultSendBuffer
	}
	return &cfg, nil
}
