package config

import (
	"time"

	"golang-sentiment-quant/pkg/config"
)

// Executor holds executor-specific configuration.
type Executor struct {
	MaxConcurrentTasks int `mapstructure:"max_concurrent_tasks"`
	// RedisStreamTaskExecutionTimeout bounds a stream read and is the run timeout for jobs
	// without their own. A job's timeout is never cut short by it.
	RedisStreamTaskExecutionTimeout time.Duration `mapstructure:"redis_stream_task_execution_timeout"`

	// Pending task recovery
	RedisStreamTaskRetryInterval   time.Duration `mapstructure:"redis_stream_task_retry_interval"`
	RedisStreamTaskMaxIdleDuration time.Duration `mapstructure:"redis_stream_task_max_idle_duration"`
	RedisStreamTaskMaxRetry        int           `mapstructure:"redis_stream_task_max_retry"`

	HTTPJobTimeout time.Duration `mapstructure:"http_job_timeout"`
	// MetricsPort serves /metrics and /health. Zero disables the listener.
	MetricsPort int `mapstructure:"metrics_port"`
}

// FinBERT holds the configuration for the hosted FinBERT classifier.
type FinBERT struct {
	Enabled             bool          `mapstructure:"enabled"`
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxInputChars       int           `mapstructure:"max_input_chars"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	Enabled             bool   `mapstructure:"enabled"`
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// Classifier lists the providers tried in order. The keyword classifier is always the last resort.
type Classifier struct {
	Providers []string `mapstructure:"providers"`
}

// Feed is one news source.
type Feed struct {
	Name string `mapstructure:"name" json:"name"`
	URL  string `mapstructure:"url" json:"url"`
	// Kind is "rss" or "html". HTML sources are headline pages scraped with Selector.
	Kind     string `mapstructure:"kind" json:"kind"`
	Selector string `mapstructure:"selector" json:"selector"`
}

// Scraper holds defaults for the news scraper job.
type Scraper struct {
	Feeds           []Feed        `mapstructure:"feeds"`
	UserAgent       string        `mapstructure:"user_agent"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxItemsPerFeed int           `mapstructure:"max_items_per_feed"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	FetchContent    bool          `mapstructure:"fetch_content"`
}

// Alert holds the sentiment alert thresholds.
type Alert struct {
	Threshold float64       `mapstructure:"threshold"`
	DedupeTTL time.Duration `mapstructure:"dedupe_ttl"`
}

// Config holds the full configuration for the executor service.
type Config struct {
	App        config.App      `mapstructure:"app"`
	Logger     config.Logger   `mapstructure:"logger"`
	Database   config.Database `mapstructure:"database"`
	Redis      config.Redis    `mapstructure:"redis"`
	Executor   Executor        `mapstructure:"executor"`
	FinBERT    FinBERT         `mapstructure:"finbert"`
	Gemini     Gemini          `mapstructure:"gemini"`
	Classifier Classifier      `mapstructure:"classifier"`
	Scraper    Scraper         `mapstructure:"scraper"`
	Alert      Alert           `mapstructure:"alert"`
	Telegram   config.Telegram `mapstructure:"telegram"`
}

// Load loads the executor configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Executor.RedisStreamTaskExecutionTimeout <= 0 {
		c.Executor.RedisStreamTaskExecutionTimeout = 10 * time.Minute
	}
	if c.Executor.RedisStreamTaskRetryInterval <= 0 {
		c.Executor.RedisStreamTaskRetryInterval = time.Minute
	}
	if c.Executor.RedisStreamTaskMaxIdleDuration <= 0 {
		c.Executor.RedisStreamTaskMaxIdleDuration = 15 * time.Minute
	}
	if c.Executor.RedisStreamTaskMaxRetry <= 0 {
		c.Executor.RedisStreamTaskMaxRetry = 3
	}
	if c.Executor.HTTPJobTimeout <= 0 {
		c.Executor.HTTPJobTimeout = 30 * time.Second
	}
	if c.FinBERT.BaseURL == "" {
		c.FinBERT.BaseURL = "https://router.huggingface.co/hf-inference/models/ProsusAI/finbert"
	}
	if c.FinBERT.Timeout <= 0 {
		c.FinBERT.Timeout = 30 * time.Second
	}
	if c.FinBERT.MaxRequestPerMinute <= 0 {
		c.FinBERT.MaxRequestPerMinute = 120
	}
	if c.FinBERT.MaxInputChars <= 0 {
		c.FinBERT.MaxInputChars = 512
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Gemini.MaxRequestPerMinute <= 0 {
		c.Gemini.MaxRequestPerMinute = 15
	}
	if c.Scraper.RequestTimeout <= 0 {
		c.Scraper.RequestTimeout = 20 * time.Second
	}
	if c.Scraper.MaxItemsPerFeed <= 0 {
		c.Scraper.MaxItemsPerFeed = 50
	}
	if c.Scraper.MaxConcurrent <= 0 {
		c.Scraper.MaxConcurrent = 4
	}
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if c.Alert.Threshold <= 0 {
		c.Alert.Threshold = 0.5
	}
	if c.Alert.DedupeTTL <= 0 {
		c.Alert.DedupeTTL = 24 * time.Hour
	}
}
