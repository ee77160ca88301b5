package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"golang-sentiment-quant/internal/analytics"
	"golang-sentiment-quant/internal/executor/config"
	"golang-sentiment-quant/internal/executor/dto"
	"golang-sentiment-quant/pkg/logger"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// geminiClassifier asks a Gemini model for class probabilities.
type geminiClassifier struct {
	generator      contentGenerator
	cfg            config.Gemini
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewGeminiClassifier creates a classifier backed by the Gemini API.
func NewGeminiClassifier(cfg config.Gemini, log *logger.Logger, genAiClient *genai.Client) Classifier {
	return newGeminiClassifier(cfg, log, genAiClient.Models)
}

func newGeminiClassifier(cfg config.Gemini, log *logger.Logger, generator contentGenerator) *geminiClassifier {
	secondsPerRequest := time.Minute / time.Duration(max(cfg.MaxRequestPerMinute, 1))
	return &geminiClassifier{
		generator:      generator,
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}
}

func (r *geminiClassifier) Name() string { return "gemini" }

func (r *geminiClassifier) Classify(ctx context.Context, text string) (analytics.Classification, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return analytics.Classification{}, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(BuildSentimentPrompt(text), genai.RoleUser),
	}
	resp, err := r.generator.GenerateContent(ctx, r.cfg.Model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return analytics.Classification{}, fmt.Errorf("failed to generate content: %w", err)
	}

	result, err := parseGeminiSentiment(resp)
	if err != nil {
		r.logger.Error("Failed to parse Gemini response", logger.ErrorField(err))
		return analytics.Classification{}, err
	}

	return analytics.Classify(normalizeScores(analytics.ClassScores{
		Positive: result.Positive,
		Negative: result.Negative,
		Neutral:  result.Neutral,
	})), nil
}

func parseGeminiSentiment(resp *genai.GenerateContentResponse) (*dto.GeminiSentimentResult, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("invalid response from Gemini API: no content found")
	}

	rawJSON := strings.TrimSpace(resp.Text())
	rawJSON = strings.Trim(rawJSON, "`json\n`")
	if rawJSON == "" {
		return nil, fmt.Errorf("invalid response from Gemini API: no content found")
	}

	var result dto.GeminiSentimentResult
	if err := json.Unmarshal([]byte(rawJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sentiment from Gemini response: %w", err)
	}
	return &result, nil
}

// normalizeScores clamps each probability to [0,1] and rescales them to sum to 1.
func normalizeScores(s analytics.ClassScores) analytics.ClassScores {
	s.Positive = math.Max(0, math.Min(1, s.Positive))
	s.Negative = math.Max(0, math.Min(1, s.Negative))
	s.Neutral = math.Max(0, math.Min(1, s.Neutral))
	total := s.Positive + s.Negative + s.Neutral
	if total == 0 {
		return analytics.ClassScores{Neutral: 1}
	}
	return analytics.ClassScores{
		Positive: s.Positive / total,
		Negative: s.Negative / total,
		Neutral:  s.Neutral / total,
	}
}
