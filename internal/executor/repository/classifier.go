package repository

import (
	"context"

	"golang-sentiment-quant/internal/analytics"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/metrics"
)

// Classifier turns text into a sentiment classification.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, text string) (analytics.Classification, error)
}

// ClassifierChain tries each provider in order and falls back to keyword scoring,
// so classification of a non-empty text never fails.
type ClassifierChain struct {
	providers []Classifier
	fallback  Classifier
	logger    *logger.Logger
	metrics   *metrics.Registry
}

// NewClassifierChain creates a chain over the given providers.
func NewClassifierChain(log *logger.Logger, registry *metrics.Registry, providers ...Classifier) *ClassifierChain {
	return &ClassifierChain{
		providers: providers,
		fallback:  NewKeywordClassifier(),
		logger:    log,
		metrics:   registry,
	}
}

// Classify returns the first successful classification and the provider that produced it.
func (c *ClassifierChain) Classify(ctx context.Context, text string) (analytics.Classification, string) {
	for _, p := range c.providers {
		result, err := p.Classify(ctx, text)
		if err == nil {
			c.metrics.ClassifierCall(p.Name(), "ok")
			return result, p.Name()
		}
		c.metrics.ClassifierCall(p.Name(), "error")
		c.logger.Warn("Classifier failed, trying next provider",
			logger.StringField("provider", p.Name()),
			logger.ErrorField(err))
	}

	result, _ := c.fallback.Classify(ctx, text)
	c.metrics.ClassifierCall(c.fallback.Name(), "ok")
	return result, c.fallback.Name()
}

// Providers lists the provider names in the order they are tried, fallback included.
func (c *ClassifierChain) Providers() []string {
	names := make([]string, 0, len(c.providers)+1)
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return append(names, c.fallback.Name())
}

type keywordClassifier struct{}

// NewKeywordClassifier returns the word-list classifier used when no model is reachable.
func NewKeywordClassifier() Classifier {
	return keywordClassifier{}
}

func (keywordClassifier) Name() string { return "keyword" }

func (keywordClassifier) Classify(_ context.Context, text string) (analytics.Classification, error) {
	return analytics.KeywordClassify(text), nil
}
