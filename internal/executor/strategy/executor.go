package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"golang-sentiment-quant/internal/entity"
)

// Result statuses reported in job outputs.
const (
	SUCCESS = "SUCCESS"
	FAILED  = "FAILED"
	SKIPPED = "SKIPPED"
)

// JobExecutionStrategy defines the interface for different job execution strategies.
type JobExecutionStrategy interface {
	Execute(ctx context.Context, job *entity.Job) (string, error)
	GetType() entity.JobType
}

// decodePayload unmarshals the job payload into v. An empty payload leaves v untouched.
func decodePayload(job *entity.Job, v interface{}) error {
	if len(job.Payload) == 0 || string(job.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(job.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	return nil
}

func marshalResult(v interface{}) (string, error) {
	resultJSON, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	return string(resultJSON), nil
}
