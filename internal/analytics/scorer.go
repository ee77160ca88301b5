package analytics

import (
	"math"
	"regexp"
	"strings"
)

type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelNeutral  Label = "neutral"
)

// ClassScores are per-class probabilities from a classifier.
type ClassScores struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// Classification is the scorer output for one text.
type Classification struct {
	Label      Label       `json:"label"`
	Confidence float64     `json:"confidence"`
	Scores     ClassScores `json:"scores"`
	RawScore   float64     `json:"raw_score"`
}

// RawScore folds class probabilities into one scalar in [-1,1].
// Neutral mass dampens the positive/negative spread by up to half.
func RawScore(s ClassScores) float64 {
	return ClampUnit((s.Positive - s.Negative) * (1 - s.Neutral*0.5))
}

// Classify picks the arg-max class. Ties resolve positive, negative, then neutral.
func Classify(s ClassScores) Classification {
	label, conf := LabelPositive, s.Positive
	if s.Negative > conf {
		label, conf = LabelNegative, s.Negative
	}
	if s.Neutral > conf {
		label, conf = LabelNeutral, s.Neutral
	}
	return Classification{
		Label:      label,
		Confidence: Clamp(conf, 0, 1),
		Scores:     s,
		RawScore:   RawScore(s),
	}
}

var (
	positiveWords = []string{"up", "gain", "rise", "surge", "profit", "beat", "growth", "bullish", "strong"}
	negativeWords = []string{"down", "fall", "drop", "loss", "miss", "decline", "bearish", "weak", "crash"}

	wordPattern = regexp.MustCompile(`[a-z0-9']+`)
)

// KeywordClassify is the deterministic fallback used when no model is reachable.
// Each word list hit counts once per occurrence; the winning class gets
// 0.6 + min(hits*0.1, 0.35) and the others keep fixed baseline mass.
func KeywordClassify(text string) Classification {
	counts := map[string]int{}
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		counts[w]++
	}

	pos, neg := 0, 0
	for _, w := range positiveWords {
		pos += counts[w]
	}
	for _, w := range negativeWords {
		neg += counts[w]
	}

	scores := ClassScores{Positive: 0.2, Negative: 0.2, Neutral: 0.3}
	label := LabelNeutral
	switch {
	case pos > neg:
		scores.Positive = 0.6 + math.Min(float64(pos)*0.1, 0.35)
		label = LabelPositive
	case neg > pos:
		scores.Negative = 0.6 + math.Min(float64(neg)*0.1, 0.35)
		label = LabelNegative
	default:
		scores.Neutral = 0.5
	}

	return Classification{
		Label:      label,
		Confidence: scoreFor(scores, label),
		Scores:     scores,
		RawScore:   RawScore(scores),
	}
}

func scoreFor(s ClassScores, l Label) float64 {
	switch l {
	case LabelPositive:
		return s.Positive
	case LabelNegative:
		return s.Negative
	default:
		return s.Neutral
	}
}
