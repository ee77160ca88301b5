package dto

import (
	"time"
)

// How a run was enqueued.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// ExecutionHistoryResponse describes one run of a job.
type ExecutionHistoryResponse struct {
	ID          uint       `json:"id"`
	JobID       uint       `json:"job_id"`
	ScheduleID  uint       `json:"schedule_id,omitempty"`
	Trigger     string     `json:"trigger"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMs  int64      `json:"duration_ms"`
	Output      string     `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
}
