package entity

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

// JobType identifies which executor strategy runs a job.
type JobType string

const (
	JobTypeHTTP                     JobType = "http_request"
	JobTypeNewsScraper              JobType = "news_scraper"
	JobTypeSentimentAnalyzer        JobType = "sentiment_analyzer"
	JobTypeDailySentimentAggregator JobType = "daily_sentiment_aggregator"
	JobTypeSentimentAlert           JobType = "sentiment_alert"
	JobTypeSentimentPipeline        JobType = "sentiment_pipeline"
)

// Valid reports whether an executor strategy exists for t.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeHTTP, JobTypeNewsScraper, JobTypeSentimentAnalyzer,
		JobTypeDailySentimentAggregator, JobTypeSentimentAlert, JobTypeSentimentPipeline:
		return true
	}
	return false
}

// Job is a unit of work the scheduler publishes and the executor runs.
type Job struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Type        JobType        `gorm:"not null" json:"type"`
	Payload     datatypes.JSON `json:"payload"`
	RetryPolicy datatypes.JSON `json:"retry_policy"`
	Timeout     int            `json:"timeout"`
	Schedules   []TaskSchedule `gorm:"foreignKey:JobID" json:"schedules"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

// TaskSchedule attaches a cron expression to a job.
type TaskSchedule struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	JobID          uint         `gorm:"not null;index" json:"job_id"`
	CronExpression string       `gorm:"not null" json:"cron_expression"`
	IsActive       bool         `gorm:"not null" json:"is_active"`
	NextExecution  sql.NullTime `json:"next_execution"`
	LastExecution  sql.NullTime `json:"last_execution"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TaskSchedule) TableName() string {
	return "task_schedules"
}

// TaskStatus is the lifecycle state of a single execution.
type TaskStatus string

const (
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// TaskExecutionHistory records one run of a scheduled job.
type TaskExecutionHistory struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	JobID        uint           `gorm:"not null;index" json:"job_id"`
	ScheduleID   uint           `gorm:"index" json:"schedule_id"`
	Status       TaskStatus     `gorm:"not null" json:"status"`
	StartedAt    time.Time      `gorm:"not null" json:"started_at"`
	CompletedAt  sql.NullTime   `json:"completed_at"`
	Output       sql.NullString `json:"output"`
	ErrorMessage sql.NullString `json:"error_message"`
}

func (TaskExecutionHistory) TableName() string {
	return "task_execution_histories"
}
