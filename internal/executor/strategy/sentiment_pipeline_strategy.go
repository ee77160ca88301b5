package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/telegram"
	"golang-sentiment-quant/pkg/utils"
)

// SentimentPipelinePayload carries per-step payloads keyed by job type.
type SentimentPipelinePayload struct {
	Steps  map[entity.JobType]json.RawMessage `json:"steps"`
	Notify bool                               `json:"notify"`
}

type pipelineStepResult struct {
	Type   entity.JobType  `json:"type"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// SentimentPipelineStrategy runs scrape, analyze, aggregate and alert back to back.
// A failing step is recorded and the remaining steps still run on whatever data exists.
type SentimentPipelineStrategy struct {
	logger           *logger.Logger
	steps            []JobExecutionStrategy
	telegramNotifier telegram.Notifier
	now              func() time.Time
}

// NewSentimentPipelineStrategy creates a pipeline over the given steps, run in order.
func NewSentimentPipelineStrategy(log *logger.Logger, telegramNotifier telegram.Notifier, steps ...JobExecutionStrategy) *SentimentPipelineStrategy {
	return &SentimentPipelineStrategy{
		logger:           log,
		steps:            steps,
		telegramNotifier: telegramNotifier,
		now:              utils.NowUTC,
	}
}

// GetType returns the job type this strategy handles.
func (s *SentimentPipelineStrategy) GetType() entity.JobType {
	return entity.JobTypeSentimentPipeline
}

func (s *SentimentPipelineStrategy) Execute(ctx context.Context, job *entity.Job) (string, error) {
	var payload SentimentPipelinePayload
	if err := decodePayload(job, &payload); err != nil {
		s.logger.Error("Failed to unmarshal job payload", logger.ErrorField(err), logger.Field("job_id", job.ID))
		return "", err
	}

	results := make([]pipelineStepResult, 0, len(s.steps))
	summary := make([]telegram.PipelineStep, 0, len(s.steps))
	failed := 0

	for _, step := range s.steps {
		if !utils.ShouldContinue(ctx) {
			break
		}
		stepJob := &entity.Job{
			ID:      job.ID,
			Name:    fmt.Sprintf("%s/%s", job.Name, step.GetType()),
			Type:    step.GetType(),
			Payload: []byte(payload.Steps[step.GetType()]),
			Timeout: job.Timeout,
		}

		s.logger.Info("Running pipeline step", logger.StringField("step", string(step.GetType())), logger.Field("job_id", job.ID))
		output, err := step.Execute(ctx, stepJob)

		res := pipelineStepResult{Type: step.GetType(), Status: SUCCESS}
		if json.Valid([]byte(output)) {
			res.Output = json.RawMessage(output)
		}
		line := telegram.PipelineStep{Name: string(step.GetType()), Status: SUCCESS}
		if err != nil {
			failed++
			res.Status = FAILED
			res.Error = err.Error()
			line.Status = FAILED
			line.Detail = utils.Truncate(err.Error(), 120)
			s.logger.Error("Pipeline step failed", logger.ErrorField(err), logger.StringField("step", string(step.GetType())))
		} else if status := outputStatus(output); status != "" {
			res.Status = status
			line.Status = status
		}
		results = append(results, res)
		summary = append(summary, line)
	}

	if payload.Notify && s.telegramNotifier != nil {
		if err := s.telegramNotifier.SendMessage(telegram.FormatPipelineSummary(s.now(), summary)); err != nil {
			s.logger.Error("Failed to send pipeline summary", logger.ErrorField(err))
		}
	}

	output, err := marshalResult(results)
	if err != nil {
		return "", err
	}
	if len(results) > 0 && failed == len(results) {
		return output, fmt.Errorf("all %d pipeline steps failed", failed)
	}
	return output, nil
}

// outputStatus reads the "status" field of a step output, if it has one.
func outputStatus(output string) string {
	var probe struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(output), &probe); err != nil {
		return ""
	}
	return probe.Status
}
