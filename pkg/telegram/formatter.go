package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-sentiment-quant/pkg/utils"
)

// MaxMessageLength stays just under the Telegram limit of 4096 characters.
const MaxMessageLength = 4090

// AlertType represents the type of alert
type AlertType string

const (
	SentimentSurge AlertType = "sentiment_surge"
	SentimentDrop  AlertType = "sentiment_drop"
)

// AlertTypeFor classifies a weighted sentiment as a surge or a drop.
func AlertTypeFor(weightedSentiment float64) AlertType {
	if weightedSentiment > 0 {
		return SentimentSurge
	}
	return SentimentDrop
}

// FormatSentimentAlert formats a daily sentiment extreme of one security.
func FormatSentimentAlert(alertType AlertType, symbol, name string, weightedSentiment float64, articleCount int, date time.Time) string {
	var builder strings.Builder

	switch alertType {
	case SentimentSurge:
		builder.WriteString(fmt.Sprintf("📈 *%s sentiment surging*\n", symbol))
	default:
		builder.WriteString(fmt.Sprintf("📉 *%s sentiment dropping*\n", symbol))
	}
	builder.WriteString(fmt.Sprintf("%s has a weighted sentiment score of %.1f%% across %d articles.\n",
		name, weightedSentiment*100, articleCount))
	if alertType == SentimentSurge {
		builder.WriteString("Consider increasing allocation.\n")
	} else {
		builder.WriteString("Review your position.\n")
	}
	builder.WriteString(fmt.Sprintf("🗓 %s\n", utils.FormatDate(date)))
	return builder.String()
}

// PipelineStep is one line of a pipeline summary.
type PipelineStep struct {
	Name   string
	Status string
	Detail string
}

// FormatPipelineSummary formats the outcome of one ingestion run.
func FormatPipelineSummary(at time.Time, steps []PipelineStep) string {
	var builder strings.Builder
	builder.WriteString("🗞️ *Pipeline complete*\n")
	builder.WriteString(fmt.Sprintf("%s\n\n", utils.PrettyDate(at)))
	for _, s := range steps {
		icon := "✅"
		switch s.Status {
		case "FAILED":
			icon = "❌"
		case "SKIPPED":
			icon = "⏭"
		}
		builder.WriteString(fmt.Sprintf("%s *%s*", icon, s.Name))
		if s.Detail != "" {
			builder.WriteString(": " + s.Detail)
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

func FormatErrorAlertMessage(time time.Time, errType string, errMsg string, data string) string {
	return fmt.Sprintf(`📛 [ERROR ALERT]
%s
🔧 %s
⚠️ %s

📄 Data: %s
`, utils.PrettyDate(time), errType, errMsg, data)
}

// SplitMessage cuts text into parts no longer than maxLen, preferring line breaks.
func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	var current strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > maxLen {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			parts = append(parts, line[:maxLen])
			line = line[maxLen:]
		}
		if current.Len()+len(line) > maxLen {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}
