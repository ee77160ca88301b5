package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang-sentiment-quant/internal/analytics"
	"golang-sentiment-quant/internal/executor/config"
	"golang-sentiment-quant/internal/executor/dto"
	"golang-sentiment-quant/pkg/logger"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// finBERTClassifier calls the hosted FinBERT inference endpoint.
type finBERTClassifier struct {
	client         *http.Client
	cfg            config.FinBERT
	logger         *logger.Logger
	requestLimiter *rate.Limiter
	breaker        *gobreaker.CircuitBreaker
	loadingDelay   time.Duration
}

// NewFinBERTClassifier creates a FinBERT classifier with request limiting and a circuit breaker.
func NewFinBERTClassifier(cfg config.FinBERT, log *logger.Logger) Classifier {
	perRequest := time.Minute / time.Duration(max(cfg.MaxRequestPerMinute, 1))

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "finbert",
		MaxRequests: 1,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Classifier circuit breaker state changed",
				logger.StringField("name", name),
				logger.StringField("from", from.String()),
				logger.StringField("to", to.String()))
		},
	})

	return &finBERTClassifier{
		client:         &http.Client{Timeout: cfg.Timeout},
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(perRequest), 1),
		breaker:        breaker,
		loadingDelay:   2 * time.Second,
	}
}

func (r *finBERTClassifier) Name() string { return "finbert" }

// Classify sends at most MaxInputChars characters of text to the model.
func (r *finBERTClassifier) Classify(ctx context.Context, text string) (analytics.Classification, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return analytics.Classification{}, fmt.Errorf("empty text")
	}
	if runes := []rune(text); r.cfg.MaxInputChars > 0 && len(runes) > r.cfg.MaxInputChars {
		text = string(runes[:r.cfg.MaxInputChars])
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return analytics.Classification{}, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	out, err := r.breaker.Execute(func() (interface{}, error) {
		scores, err := r.request(ctx, text)
		if errors.Is(err, errModelLoading) {
			r.logger.Info("FinBERT model is loading, retrying once", logger.DurationField("delay", r.loadingDelay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.loadingDelay):
			}
			scores, err = r.request(ctx, text)
		}
		return scores, err
	})
	if err != nil {
		return analytics.Classification{}, err
	}
	return analytics.Classify(out.(analytics.ClassScores)), nil
}

var errModelLoading = errors.New("finbert model is loading")

func (r *finBERTClassifier) request(ctx context.Context, text string) (analytics.ClassScores, error) {
	payload, err := json.Marshal(dto.FinBERTRequest{Inputs: text})
	if err != nil {
		return analytics.ClassScores{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return analytics.ClassScores{}, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return analytics.ClassScores{}, fmt.Errorf("failed to send request to FinBERT: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return analytics.ClassScores{}, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return analytics.ClassScores{}, errModelLoading
	case resp.StatusCode != http.StatusOK:
		var apiErr dto.FinBERTError
		_ = json.Unmarshal(body, &apiErr)
		return analytics.ClassScores{}, fmt.Errorf("received non-OK response from FinBERT: %d - %s", resp.StatusCode, apiErr.Error)
	}

	return parseFinBERTScores(body)
}

// parseFinBERTScores accepts both the nested [[...]] and the flat [...] response shapes.
func parseFinBERTScores(body []byte) (analytics.ClassScores, error) {
	var nested [][]dto.FinBERTLabelScore
	var labels []dto.FinBERTLabelScore
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) > 0 {
			labels = nested[0]
		}
	} else if err := json.Unmarshal(body, &labels); err != nil {
		return analytics.ClassScores{}, fmt.Errorf("failed to decode FinBERT response: %w", err)
	}
	if len(labels) == 0 {
		return analytics.ClassScores{}, fmt.Errorf("invalid response from FinBERT: no labels found")
	}

	var scores analytics.ClassScores
	for _, l := range labels {
		switch strings.ToLower(l.Label) {
		case "positive":
			scores.Positive = l.Score
		case "negative":
			scores.Negative = l.Score
		case "neutral":
			scores.Neutral = l.Score
		}
	}
	return scores, nil
}
