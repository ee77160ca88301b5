package config

import (
	"time"

	"golang-sentiment-quant/pkg/config"
)

// Scheduler holds scheduler-specific configuration.
type Scheduler struct {
	PollingInterval time.Duration `mapstructure:"polling_interval"`
	// DefaultTimeout is applied to jobs created without a timeout, in seconds.
	DefaultTimeout int `mapstructure:"default_timeout"`
}

// Config holds the full configuration for the scheduler service.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	Database  config.Database `mapstructure:"database"`
	Redis     config.Redis    `mapstructure:"redis"`
	API       config.API      `mapstructure:"api"`
	Scheduler Scheduler       `mapstructure:"scheduler"`
}

// Load loads the scheduler configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Scheduler.PollingInterval <= 0 {
		cfg.Scheduler.PollingInterval = 30 * time.Second
	}
	if cfg.Scheduler.DefaultTimeout <= 0 {
		cfg.Scheduler.DefaultTimeout = 600
	}
	if cfg.Redis.StreamMaxLen <= 0 {
		cfg.Redis.StreamMaxLen = 10000
	}
	return &cfg, nil
}
