package dto

import (
	"database/sql"
	"time"
)

// CreateScheduleRequest attaches a cron expression to a job.
type CreateScheduleRequest struct {
	JobID          uint   `json:"job_id"`
	CronExpression string `json:"cron_expression"`
	IsActive       bool   `json:"is_active"`
}

// UpdateScheduleRequest replaces the cron expression and active flag of a schedule.
type UpdateScheduleRequest struct {
	CronExpression string `json:"cron_expression"`
	IsActive       bool   `json:"is_active"`
}

// ScheduleResponse describes a schedule. Run times are omitted until known.
type ScheduleResponse struct {
	ID             uint       `json:"id"`
	JobID          uint       `json:"job_id"`
	CronExpression string     `json:"cron_expression"`
	IsActive       bool       `json:"is_active"`
	NextExecution  *time.Time `json:"next_execution,omitempty"`
	LastExecution  *time.Time `json:"last_execution,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// OptionalTime renders a nullable column as a JSON-friendly pointer in UTC.
func OptionalTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
