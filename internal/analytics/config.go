// Package analytics holds the sentiment and portfolio math. Nothing in here performs I/O;
// callers fetch rows, convert them to the types below and persist the results.
package analytics

import (
	"errors"
	"fmt"
)

// Config carries the portfolio engine knobs.
type Config struct {
	SentimentWeight    float64 `mapstructure:"sentiment_weight" json:"sentiment_weight"`
	MaxPositionPercent float64 `mapstructure:"max_position_percent" json:"max_position_percent"`
	RebalanceThreshold float64 `mapstructure:"rebalance_threshold" json:"rebalance_threshold"`
	LookbackDays       int     `mapstructure:"lookback_days" json:"lookback_days"`
}

// DefaultConfig returns the production defaults. Loaders start from it so that an explicit
// zero in a config file is kept.
func DefaultConfig() Config {
	return Config{
		SentimentWeight:    0.6,
		MaxPositionPercent: 25,
		RebalanceThreshold: 0.05,
		LookbackDays:       7,
	}
}

// Validate rejects out-of-range knobs.
func (c Config) Validate() error {
	if c.SentimentWeight < 0 || c.SentimentWeight > 1 {
		return fmt.Errorf("sentiment_weight must be within [0,1], got %v", c.SentimentWeight)
	}
	if c.MaxPositionPercent <= 0 || c.MaxPositionPercent > 100 {
		return fmt.Errorf("max_position_percent must be within (0,100], got %v", c.MaxPositionPercent)
	}
	if c.RebalanceThreshold < 0 || c.RebalanceThreshold >= 1 {
		return fmt.Errorf("rebalance_threshold must be within [0,1), got %v", c.RebalanceThreshold)
	}
	if c.LookbackDays <= 0 {
		return errors.New("lookback_days must be positive")
	}
	return nil
}

// MaxPosition is the per-security weight ceiling as a fraction.
func (c Config) MaxPosition() float64 {
	return c.MaxPositionPercent / 100
}
