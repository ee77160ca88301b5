package repository

import (
	"fmt"
)

// BuildSentimentPrompt asks the model for FinBERT-style class probabilities of a financial text.
func BuildSentimentPrompt(text string) string {
	return fmt.Sprintf(`You are a financial news sentiment classifier. Read the text below and estimate how it affects the outlook of the companies it mentions.

Rules:
- "positive", "negative" and "neutral" are probabilities between 0.0 and 1.0 that sum to 1.0
- "sentiment" is the class with the highest probability
- Judge the market impact, not the tone of the writing
- "reasoning" is one short sentence

Text:
"""
%s
"""

Respond with JSON only, using this structure:
{
  "sentiment": "positive | negative | neutral",
  "positive": <float 0.0-1.0>,
  "negative": <float 0.0-1.0>,
  "neutral": <float 0.0-1.0>,
  "reasoning": "<string>"
}`, text)
}
